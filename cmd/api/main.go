package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Bos243/appointment-booking-app/config"
	"github.com/Bos243/appointment-booking-app/internal/email"
	"github.com/Bos243/appointment-booking-app/internal/handler"
	adminhandler "github.com/Bos243/appointment-booking-app/internal/handler/admin"
	appointmenthandler "github.com/Bos243/appointment-booking-app/internal/handler/appointment"
	authhandler "github.com/Bos243/appointment-booking-app/internal/handler/auth"
	employeehandler "github.com/Bos243/appointment-booking-app/internal/handler/employee"
	"github.com/Bos243/appointment-booking-app/internal/lifecycle"
	"github.com/Bos243/appointment-booking-app/internal/middleware"
	"github.com/Bos243/appointment-booking-app/internal/repository/postgres"
	"github.com/Bos243/appointment-booking-app/internal/router"
	appointmentsvc "github.com/Bos243/appointment-booking-app/internal/service/appointment"
	authsvc "github.com/Bos243/appointment-booking-app/internal/service/auth"
	"github.com/Bos243/appointment-booking-app/internal/service/session"
	"github.com/Bos243/appointment-booking-app/internal/service/watch"
	"github.com/Bos243/appointment-booking-app/pkg/auth"
	"github.com/Bos243/appointment-booking-app/pkg/logger"
	"github.com/Bos243/appointment-booking-app/pkg/messaging"
	"github.com/Bos243/appointment-booking-app/pkg/messaging/memory"
	redisbroker "github.com/Bos243/appointment-booking-app/pkg/messaging/redis"
	"github.com/Bos243/appointment-booking-app/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := *logger.NewLogger(&logger.Config{
		Level:  level,
		Pretty: cfg.Log.Pretty,
	}).Zerolog()

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	userRepo := postgres.NewUserRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	tokenRepo := postgres.NewTokenRepository(db)

	var broker messaging.Broker
	if cfg.Redis.Enabled {
		broker, err = redisbroker.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis broker")
		}
	} else {
		log.Info().Msg("redis disabled, using in-process broker")
		broker = memory.NewBroker()
	}
	defer broker.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(cfg.Monitoring.MetricsNamespace, registry)

	var mailer email.Service
	if cfg.SMTP.Enabled {
		mailer = email.NewSMTPService(email.SMTPConfig{
			Host:      cfg.SMTP.Host,
			Port:      cfg.SMTP.Port,
			Username:  cfg.SMTP.Username,
			Password:  cfg.SMTP.Password,
			From:      cfg.SMTP.From,
			PublicURL: cfg.SMTP.PublicURL,
		}, &log, m)
	} else {
		log.Info().Msg("smtp disabled, logging emails instead of sending")
		mailer = email.NewNoopService(&log)
	}

	jwtService := auth.NewJWTService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)

	authService := authsvc.NewService(userRepo, tokenRepo, jwtService, mailer, &log)
	sessionService := session.NewService(userRepo, authService, &log)

	publisher := watch.NewPublisher(broker, &log)
	hub := watch.NewHub(appointmentRepo, broker, &log, m)

	policy := lifecycle.Policy{AllowTerminalOverride: cfg.Booking.AllowTerminalOverride}
	appointmentService := appointmentsvc.NewService(appointmentRepo, userRepo, policy, publisher, &log, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := hub.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("live query hub stopped")
		}
	}()

	authMiddleware := middleware.NewAuthMiddleware(authService, userRepo)
	baseHandler := handler.NewHandler(db, registry)

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.Security.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.Security.AllowedOrigins
	}

	r := router.NewRouter(
		authMiddleware,
		authhandler.NewHandler(authService, sessionService),
		appointmenthandler.NewHandler(appointmentService, hub),
		employeehandler.NewHandler(appointmentService, hub),
		adminhandler.NewHandler(appointmentService, hub),
		baseHandler,
		router.Config{
			RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:     cfg.RateLimit.Burst,
			CORSConfig:    corsConfig,
			MetricsPrefix: cfg.Monitoring.MetricsNamespace,
			Registry:      registry,
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server stopped")
}
