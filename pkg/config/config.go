package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrNilPointer is returned when Load receives a nil destination.
	ErrNilPointer = errors.New("config: nil pointer")

	// ErrParse is returned when the environment cannot be parsed into
	// the destination struct.
	ErrParse = errors.New("config: parse environment")
)

// dotenvOnce loads the optional .env file exactly once per process, so
// every config struct sees the same environment no matter the order the
// packages load in.
var dotenvOnce sync.Once

// Load fills v from the process environment. A missing .env file is not
// an error; a malformed value or an unmet `required` tag is.
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})
	if err := env.Parse(v); err != nil {
		return fmt.Errorf("%w: %w", ErrParse, err)
	}
	return nil
}

// MustLoad is Load for configuration the process cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(err)
	}
}
