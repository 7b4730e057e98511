// Package config parses environment variables into typed structs using
// caarlos0/env tags, loading a .env file first when one exists.
//
// Configuration is declared where it is consumed:
//
//	type ServerConfig struct {
//		Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
//		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
//	}
//
//	var cfg ServerConfig
//	if err := config.Load(&cfg); err != nil {
//		...
//	}
//
// MustLoad is the startup variant: configuration the process cannot run
// without has no meaningful error path beyond exiting.
package config
