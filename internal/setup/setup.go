package setup

import (
	"github.com/keygate-dev/keygate/internal/config"
	"github.com/keygate-dev/keygate/internal/email"
	"github.com/keygate-dev/keygate/internal/handler"
	"github.com/keygate-dev/keygate/internal/jwt"
	"github.com/keygate-dev/keygate/internal/middleware"
	"github.com/keygate-dev/keygate/internal/service"
	"github.com/keygate-dev/keygate/internal/storage/pg"
)

// Dependencies holds all initialized dependencies.
type Dependencies struct {
	Storage        *pg.Storage
	Handler        *handler.Handler
	AuthMiddleware *middleware.Auth
	Jwt            jwt.JwtService
	Config         *config.Config
}

// SetupDependencies initializes all dependencies required for the application.
func SetupDependencies(cfg *config.Config) (*Dependencies, error) {
	storage, err := pg.New(cfg)
	if err != nil {
		return nil, err
	}

	notifier := email.New(&cfg.Private.Email, cfg.Public.ClientURL)
	jwtService := jwt.New(cfg.Private.JwtAccessKey, cfg.Private.JwtRefreshKey,
		cfg.Public.AccessTokenTTL, cfg.Public.RefreshTokenTTL)

	auth := service.NewAuth(storage, notifier, jwtService)
	users := service.NewUsers(storage)

	h := handler.New(auth, users, cfg, storage)
	authMw := middleware.NewAuth(jwtService, storage)

	return &Dependencies{
		Storage:        storage,
		Handler:        h,
		AuthMiddleware: authMw,
		Jwt:            jwtService,
		Config:         cfg,
	}, nil
}
