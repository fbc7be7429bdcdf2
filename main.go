package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"recipe-restful/auth"
	"recipe-restful/config"
	"recipe-restful/controllers"
	"recipe-restful/database"
	grpcserver "recipe-restful/grpc_server"
	"recipe-restful/interceptors"
	"recipe-restful/registry"
	"recipe-restful/repositories"
	"recipe-restful/services"

	consulapi "github.com/hashicorp/consul/api"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 10 * time.Second

func newLogger(level string) (*zap.Logger, error) {
	switch level {
	case "debug":
		return zap.NewDevelopment()
	default:
		return zap.NewProduction()
	}
}

func main() {
	// Initialize configs
	config.InitConfig()
	cfg := config.AppConfig

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() // Make sure the buffer is flushed before the program exits

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server stopped with error", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	if cfg.TokenSecret == config.DefaultTokenSecret {
		logger.Warn("token_secret is the built-in default; set RECIPE_TOKEN_SECRET in production")
	}

	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access connection pool: %w", err)
	}
	defer sqlDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Repositories, services and the token authenticator
	userRepo := repositories.NewUserRepository(db)
	tokenRepo := repositories.NewTokenRepository(db)
	recipeRepo := repositories.NewRecipeRepository(db)
	tagRepo := repositories.NewTagRepository(db)
	ingredientRepo := repositories.NewIngredientRepository(db)

	signer := auth.NewSigner([]byte(cfg.TokenSecret), cfg.ServiceName)
	authenticator := auth.NewAuthenticator(signer, tokenRepo, logger.Named("auth"))
	authFilter := authenticator.AuthFilter()

	userService := services.NewUserService(userRepo, tokenRepo, signer, cfg.BcryptCost, logger.Named("users"))
	recipeService := services.NewRecipeService(db, recipeRepo, tagRepo, ingredientRepo, logger.Named("recipes"))
	tagService := services.NewTagService(tagRepo, logger.Named("tags"))
	ingredientService := services.NewIngredientService(ingredientRepo, logger.Named("ingredients"))

	if cfg.Superuser.Email != "" {
		if _, err := userService.EnsureSuperuser(ctx, cfg.Superuser.Email, cfg.Superuser.Password); err != nil {
			return fmt.Errorf("failed to seed superuser: %w", err)
		}
	}

	container := controllers.NewContainer(controllers.Controllers{
		Users:       controllers.NewUserController(userService, authFilter, logger),
		Recipes:     controllers.NewRecipeController(recipeService, authFilter, logger),
		Tags:        controllers.NewTagController(tagService, authFilter, logger),
		Ingredients: controllers.NewIngredientController(ingredientService, authFilter, logger),
	})
	// Container filters run in the order they are added.
	container.Filter(interceptors.RequestID())
	container.Filter(interceptors.Metrics())
	container.Filter(interceptors.RateLimit(newLimiter(cfg)))
	container.Filter(interceptors.AccessLog(logger.Named("http")))
	container.Filter(interceptors.Recover(logger))
	container.Handle("/metrics", promhttp.Handler())

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           container,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcLis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port: %w", err)
	}
	grpcServer := grpcserver.New(cfg.ServiceName, logger.Named("grpc"))

	deregister, regErr := registerWithConsul(cfg, logger)
	if regErr != nil {
		logger.Error("Consul registration failed; continuing without it", zap.Error(regErr))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := grpcServer.Serve(grpcLis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		grpcServer.MonitorDependency(gctx, sqlDB, 15*time.Second)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")
		if deregister != nil {
			deregister()
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP shutdown failed", zap.Error(err))
		}
		grpcServer.Stop()
		return nil
	})

	serveErr := g.Wait()
	logger.Info("Servers stopped")
	return serveErr
}

// newLimiter returns nil when rate limiting is disabled.
func newLimiter(cfg config.Config) *rate.Limiter {
	if cfg.RateLimit <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)
}

// registerWithConsul announces the instance with an HTTP and a gRPC check
// and returns the matching deregistration. It is a no-op when disabled.
func registerWithConsul(cfg config.Config, logger *zap.Logger) (func(), error) {
	if !cfg.Consul.Enabled {
		return nil, nil
	}
	reg, err := registry.NewConsulRegistry(cfg.Consul.Address, logger.Sugar())
	if err != nil {
		return nil, err
	}

	host := cfg.Consul.ServiceHost
	id := registry.ServiceID(cfg.ServiceName, host, cfg.HTTPPort)
	checks := consulapi.AgentServiceChecks{
		registry.CreateHTTPCheck(id, host, cfg.HTTPPort, "/api/health-check", "10s", "2s"),
		registry.CreateGRPCCheck(id, fmt.Sprintf("%s:%d/%s", host, cfg.GRPCPort, cfg.ServiceName), "10s", "2s", false),
	}
	if err := reg.Register(id, cfg.ServiceName, host, cfg.HTTPPort, []string{"http", "grpc"}, checks); err != nil {
		return nil, err
	}
	return func() { _ = reg.Deregister(id) }, nil
}
