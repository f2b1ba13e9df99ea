package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/imagehub/imagehub/go-services/handlers"
	"github.com/imagehub/imagehub/go-services/internal/config"
	"github.com/imagehub/imagehub/go-services/internal/database"
	"github.com/imagehub/imagehub/go-services/internal/oidc"
	"github.com/imagehub/imagehub/go-services/internal/storage"
	"github.com/imagehub/imagehub/go-services/internal/tokens"
	"github.com/imagehub/imagehub/go-services/internal/users"
	"github.com/imagehub/imagehub/go-services/pkg/logger"
	"github.com/imagehub/imagehub/go-services/pkg/metrics"
	"github.com/imagehub/imagehub/go-services/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	// LoadConfig validates the auth mode and its required settings; a
	// misconfigured process must die here, not degrade per-request.
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: mode=%s redis=%v mongo=%v", cfg.Auth.Mode, cfg.Redis.Host != "", cfg.MongoDB.URI != "")

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple — production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// shared runtime vars used by handlers/readiness
	var (
		authenticator middleware.Authenticator
		userSvc       *users.Service
		issuer        *tokens.Issuer
		oidcClient    handlers.OIDCClient
	)

	ctx := context.Background()

	switch cfg.Auth.Mode {
	case config.ModeAPIKey:
		authenticator = middleware.NewAPIKeyAuthenticator(cfg.Auth.APIKey)
		logger.Info("API key authentication mode - OIDC and user store not initialized")

	case config.ModeOIDC:
		repo, cleanup, err := buildUserRepository(ctx, cfg)
		if err != nil {
			logger.Fatalf("failed to initialize user store: %v", err)
		}
		defer cleanup()
		userSvc = users.NewService(repo)

		issuer = tokens.NewIssuer(cfg.Auth.JWTSigningKey)
		validator := tokens.NewValidator(cfg.Auth.JWTSigningKey, userSvc)
		authenticator = middleware.NewSessionAuthenticator(validator)

		provider, err := oidc.NewProvider(ctx, cfg)
		if err != nil {
			logger.Fatalf("failed to initialize OIDC provider: %v", err)
		}
		oidcClient = provider
		logger.Infof("OIDC provider initialized: issuer=%s", cfg.Auth.OIDCIssuer)
	}

	requireAuth := middleware.RequireAuth(authenticator)

	// Basic health endpoint
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness endpoint — return 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		ready := true
		deps := map[string]bool{"auth": authenticator != nil}
		if authenticator == nil {
			ready = false
		}
		if cfg.Auth.Mode == config.ModeOIDC {
			deps["users"] = userSvc != nil
			deps["oidc"] = oidcClient != nil
			if userSvc == nil || oidcClient == nil {
				ready = false
			}
		}
		status := http.StatusOK
		state := "ready"
		if !ready {
			status = http.StatusServiceUnavailable
			state = "not_ready"
		}
		c.JSON(status, gin.H{"status": state, "deps": deps, "uptime": fmt.Sprintf("%s", time.Since(startTime))})
	})

	root := r.Group("/")

	authHandler := handlers.NewAuthHandler(cfg, userSvc, issuer, oidcClient)
	authHandler.Register(root, requireAuth)

	if userSvc != nil {
		handlers.NewUsersHandler(userSvc).Register(root, requireAuth)
	}

	// asset endpoints are registered when object storage is configured
	if mcfg := storage.LoadMinIOConfig(); mcfg.Endpoint != "" {
		store, err := storage.NewMinIOStorage(mcfg)
		if err != nil {
			logger.Fatalf("failed to initialize object storage: %v", err)
		}
		handlers.NewAssetsHandler(cfg, store).Register(root, requireAuth)
		logger.Infof("object storage initialized: endpoint=%s bucket=%s", mcfg.Endpoint, mcfg.Bucket)
	} else {
		logger.Warn("object storage not configured; asset endpoints disabled")
	}

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("starting image service on %s (mode=%s)", addr, cfg.Auth.Mode)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

// buildUserRepository wires the configured user store backend. Redis is the
// default; Mongo is kept as an alternative for deployments that already run
// it. The returned cleanup closes the underlying client.
func buildUserRepository(ctx context.Context, cfg *config.Config) (users.Repository, func(), error) {
	switch cfg.Auth.UserStoreBackend {
	case "mongo":
		// Retry/backoff when connecting to MongoDB to tolerate startup races
		const maxAttempts = 5
		backoff := time.Second
		var lastErr error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
			if err == nil {
				col := client.Database(cfg.MongoDB.Database).Collection("users")
				cleanup := func() { _ = client.Disconnect(ctx) }
				return users.NewMongoRepository(col), cleanup, nil
			}
			lastErr = err
			logger.Warnf("attempt %d/%d: failed to connect to MongoDB: %v", attempt, maxAttempts, err)
			if attempt < maxAttempts {
				time.Sleep(backoff)
				backoff *= 2
			}
		}
		return nil, nil, lastErr

	default:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		cleanup := func() { _ = client.Close() }
		return users.NewRedisRepository(client, cfg.Redis.Prefix), cleanup, nil
	}
}
