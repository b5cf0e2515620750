package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weiawesome/vlog-interaction-service/internal/config"
	"github.com/weiawesome/vlog-interaction-service/internal/events"
	"github.com/weiawesome/vlog-interaction-service/internal/handler"
	"github.com/weiawesome/vlog-interaction-service/internal/reconciler"
	"github.com/weiawesome/vlog-interaction-service/internal/repository"
	"github.com/weiawesome/vlog-interaction-service/internal/service"
	"github.com/weiawesome/vlog-interaction-service/internal/store"
	"github.com/weiawesome/vlog-interaction-service/pkg/database"
	"github.com/weiawesome/vlog-interaction-service/pkg/jwt"
	pkglog "github.com/weiawesome/vlog-interaction-service/pkg/log"
	"github.com/weiawesome/vlog-interaction-service/pkg/middleware"
)

const serviceName = "interaction-service"

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		l := pkglog.L()
		l.Fatal().Err(err).Msg("failed to load config")
	}

	// 2. Initialize structured logger
	pkglog.Init(pkglog.Config{
		Level:       cfg.Log.Level,
		Pretty:      cfg.Log.Pretty || cfg.Log.Level == "debug",
		ServiceName: serviceName,
	})
	logger := pkglog.L()

	// 3. Durable store
	var repo repository.Store
	if cfg.Database.Driver == "memory" {
		repo = repository.NewMemoryStore()
		logger.Warn().Msg("using in-memory store; data is lost on restart")
	} else {
		db, err := database.New(&database.Config{
			Driver:          cfg.Database.Driver,
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			DBName:          cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			FilePath:        cfg.Database.FilePath,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			Debug:           cfg.Database.Debug,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to database")
		}

		sqlDB, err := db.DB()
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to get underlying sql.DB")
		}
		defer sqlDB.Close()

		gormStore := repository.NewGormStore(db)
		if err := gormStore.Migrate(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("failed to auto-migrate")
		}
		logger.Info().Str("driver", cfg.Database.Driver).Msg("database migration completed")
		repo = gormStore
	}

	// 4. Redis dedup store. An unreachable Redis is not fatal: views are
	// counted in degraded mode until it comes back.
	redisCfg := store.Config{
		Address:      cfg.Redis.Address,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Interaction.DedupTimeout,
		WriteTimeout: cfg.Interaction.DedupTimeout,
	}
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisStore, err := store.NewRedisStore(pingCtx, redisCfg)
	pingCancel()
	if err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Address).Msg("redis unreachable at startup; view dedup degraded")
		redisStore = store.NewRedisStoreFromClient(store.NewClient(redisCfg))
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}
	defer redisStore.Close()

	// 5. Event publisher
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Brokers != "" {
		kp, err := events.NewKafkaPublisher(events.KafkaConfig{
			Brokers:    cfg.Kafka.Brokers,
			Topic:      cfg.Kafka.Topic,
			Partitions: cfg.Kafka.Partitions,
		})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create kafka publisher, interaction events disabled")
		} else {
			publisher = kp
			logger.Info().Str("topic", cfg.Kafka.Topic).Msg("kafka event publisher started")
		}
	} else {
		logger.Warn().Msg("KAFKA_BROKERS not configured; interaction events disabled")
	}

	// 6. Engine
	engine := service.NewEngine(repo, redisStore, service.Config{
		ViewWindow:       cfg.Interaction.ViewWindow,
		TxTimeout:        cfg.Interaction.TxTimeout,
		DedupTimeout:     cfg.Interaction.DedupTimeout,
		CommentMaxLength: cfg.Interaction.CommentMaxLength,
	}, service.WithPublisher(publisher), service.WithDirtyTracker(redisStore))

	// 7. Auth middleware
	verifier, err := jwt.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create token verifier")
	}
	authMiddleware := middleware.NewAuthMiddleware(verifier)

	// 8. Reconciler
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var rec *reconciler.Reconciler
	if cfg.Reconciler.Enabled {
		rec = reconciler.New(redisStore, repo, reconciler.Config{
			Enabled:  true,
			Interval: cfg.Reconciler.Interval,
			TopN:     cfg.Reconciler.TopN,
		})
		rec.Start(ctx)
		logger.Info().Dur("interval", cfg.Reconciler.Interval).Int("top_n", cfg.Reconciler.TopN).Msg("reconciler started")
	}

	// 9. Setup Gin router + HTTP server
	httpHandler := handler.NewHandler(engine, authMiddleware, cfg.Auth.PrivilegedRole)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(pkglog.GinMiddleware(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	httpHandler.RegisterRoutes(r)

	// 10. Start server goroutine
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info().Str("addr", addr).Msg(serviceName + " starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	// 11. Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutdown signal received")

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)

		// 1. server.Shutdown(5s): drain in-flight interactions
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP server forced to shutdown")
		}

		// 2. reconciler.Stop(): stop ticker; <-reconciler.Done()
		cancel()
		if rec != nil {
			rec.Stop()
			<-rec.Done()
		}

		// 3. publisher.Close(): flush events of drained requests
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("error closing event publisher")
		}
	}()

	select {
	case <-shutdownDone:
		logger.Info().Msg(serviceName + " stopped")
	case <-time.After(30 * time.Second):
		logger.Warn().Msg("shutdown timed out after 30s")
	}
}
