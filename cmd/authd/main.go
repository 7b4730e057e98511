// Command authd runs the authentication service: password and OAuth
// login over HTTP, sessions in Redis, users in PostgreSQL.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/edulab/authcore/migrations"
	authmodule "github.com/edulab/authcore/modules/auth"
	"github.com/edulab/authcore/pkg/auth"
	"github.com/edulab/authcore/pkg/config"
	"github.com/edulab/authcore/pkg/httpserver"
	"github.com/edulab/authcore/pkg/logger"
	"github.com/edulab/authcore/pkg/password"
	"github.com/edulab/authcore/pkg/pg"
	"github.com/edulab/authcore/pkg/redis"
	"github.com/edulab/authcore/pkg/sessions"
	"github.com/edulab/authcore/pkg/tokens"
	"github.com/edulab/authcore/pkg/users"
)

type appConfig struct {
	TokenSecret string        `env:"TOKEN_SECRET,required"`
	TokenTTL    time.Duration `env:"TOKEN_TTL" envDefault:"30m"`
	FlowTTL     time.Duration `env:"OAUTH_FLOW_TTL" envDefault:"5m"`
}

func main() {
	ctx := context.Background()

	var logCfg logger.Config
	config.MustLoad(&logCfg)
	log := logger.New(logCfg, os.Stderr)

	if err := run(ctx, log); err != nil {
		log.ErrorContext(ctx, "service failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger) error {
	var (
		appCfg    appConfig
		pgCfg     pg.Config
		redisCfg  redis.Config
		httpCfg   httpserver.Config
		googleCfg auth.GoogleConfig
		vkCfg     auth.VKConfig
		yandexCfg auth.YandexConfig
	)
	if err := config.Load(&appCfg); err != nil {
		return err
	}
	if err := config.Load(&pgCfg); err != nil {
		return err
	}
	if err := config.Load(&redisCfg); err != nil {
		return err
	}
	if err := config.Load(&httpCfg); err != nil {
		return err
	}
	if err := config.Load(&googleCfg); err != nil {
		return err
	}
	if err := config.Load(&vkCfg); err != nil {
		return err
	}
	if err := config.Load(&yandexCfg); err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, migrations.FS, ".", log); err != nil {
		return err
	}

	redisClient, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.ErrorContext(ctx, "close redis client", logger.Error(err))
		}
	}()

	codec, err := tokens.New([]byte(appCfg.TokenSecret))
	if err != nil {
		return err
	}

	store := sessions.NewRedisStore(redisClient)
	directory := users.NewDirectory(pool)
	hasher := password.New()

	authSvc := auth.NewService(directory, store, codec, hasher,
		auth.WithLogger(log.With(logger.Component("auth"))),
		auth.WithTokenTTL(appCfg.TokenTTL),
	)

	// Adapters with incomplete credentials stay registered; Start
	// rejects them per request so one unset provider does not block the
	// rest.
	adapters := []auth.ProviderAdapter{
		auth.NewGoogleAdapter(googleCfg),
		auth.NewVKAdapter(vkCfg),
		auth.NewYandexAdapter(yandexCfg),
	}
	oauthFlow := auth.NewOAuthFlow(store, directory, authSvc, adapters,
		auth.WithOAuthLogger(log.With(logger.Component("oauth"))),
		auth.WithFlowTTL(appCfg.FlowTTL),
	)

	module := authmodule.New(authSvc, oauthFlow,
		authmodule.WithLogger(log.With(logger.Component("http"))),
	)

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", httpserver.HealthHandler(log))
	r.Get("/readyz", httpserver.HealthHandler(log,
		pg.Healthcheck(pool),
		redis.Healthcheck(redisClient),
	))
	r.Mount("/", module.Handler())

	return httpserver.New(httpCfg, log).Run(ctx, r)
}
