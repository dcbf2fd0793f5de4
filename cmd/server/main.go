package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apphandler "leaseguard/internal/application/handler"
	appmetrics "leaseguard/internal/application/metrics"
	appservice "leaseguard/internal/application/service"
	appstore "leaseguard/internal/application/store/application"
	docstore "leaseguard/internal/application/store/document"
	jwttoken "leaseguard/internal/jwt_token"
	"leaseguard/internal/platform/config"
	"leaseguard/internal/platform/httpserver"
	"leaseguard/internal/platform/logger"
	"leaseguard/internal/platform/metrics"
	platformpg "leaseguard/internal/platform/postgres"
	platformredis "leaseguard/internal/platform/redis"
	reviewmetrics "leaseguard/internal/review/metrics"
	"leaseguard/internal/review/scorer"
	reviewservice "leaseguard/internal/review/service"
	resultstore "leaseguard/internal/review/store/result"
	auditconsumer "leaseguard/pkg/platform/audit/consumer"
	"leaseguard/pkg/platform/audit/outbox"
	"leaseguard/pkg/platform/audit/publisher"
	auditmemory "leaseguard/pkg/platform/audit/store/memory"
	auditpg "leaseguard/pkg/platform/audit/store/postgres"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Persistence: Postgres when configured, in-memory otherwise.
	var (
		applications interface {
			appservice.ApplicationStore
			reviewservice.ApplicationStore
		}
		documents interface {
			appservice.DocumentStore
			reviewservice.DocumentStore
		}
		results reviewservice.ResultStore
	)

	streamAudit := len(cfg.Kafka.Brokers) > 0 && cfg.DatabaseURL != ""

	var auditor *publisher.Publisher
	var relay *outbox.Relay

	if cfg.DatabaseURL != "" {
		db, err := platformpg.Open(cfg.DatabaseURL)
		if err != nil {
			log.Error("postgres connection failed", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := platformpg.EnsureSchema(ctx, db); err != nil {
			log.Error("schema setup failed", "error", err)
			os.Exit(1)
		}

		applications = appstore.NewPostgresStore(db)
		documents = docstore.NewPostgresStore(db)
		results = resultstore.NewPostgresStore(db)
		auditStore := auditpg.New(db, streamAudit)
		auditor = publisher.NewPublisher(auditStore, publisher.WithLogger(log))

		if streamAudit {
			relay, err = outbox.New(db, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
			if err != nil {
				log.Error("kafka client setup failed", "error", err)
				os.Exit(1)
			}
			defer relay.Close()
			go func() {
				if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.Error("outbox relay stopped", "error", err)
				}
			}()

			if cfg.Kafka.Group != "" {
				materializer := auditconsumer.NewMaterializer(auditStore, auditStore, log)
				auditConsumer, err := auditconsumer.New(
					cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Group, materializer, log)
				if err != nil {
					log.Error("kafka consumer setup failed", "error", err)
					os.Exit(1)
				}
				defer auditConsumer.Close()
				go func() {
					if err := auditConsumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
						log.Error("audit consumer stopped", "error", err)
					}
				}()
			}
		}
	} else {
		log.Warn("no DATABASE_URL configured, using in-memory stores")
		applications = appstore.NewMemoryStore()
		documents = docstore.NewMemoryStore()
		results = resultstore.NewMemoryStore()
		auditor = publisher.NewPublisher(auditmemory.NewInMemoryStore(), publisher.WithLogger(log))
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Remote scorer with optional Redis cache; nil means local only.
	var remote scorer.Scorer
	if r := scorer.NewRemoteScorer(cfg.Scorer); r != nil {
		remote = r
		if redisClient != nil {
			remote = scorer.NewCachedScorer(r, redisClient.Client, log)
		}
	} else {
		log.Warn("no ANTHROPIC_API_KEY configured, scoring is local only")
	}

	reviews := reviewservice.NewService(
		applications, documents, results,
		remote, scorer.NewLocalScorer(),
		auditor, reviewmetrics.New(), log,
	)
	intake := appservice.NewService(
		applications, documents, reviews,
		auditor, appmetrics.New(), log,
	)

	jwtService := jwttoken.NewJWTService(cfg.JWTSigningKey, "leaseguard", "leaseguard")
	httpMetrics := metrics.New()
	handler := apphandler.New(intake, log, httpMetrics, jwttoken.NewJWTServiceAdapter(jwtService))

	router := chi.NewRouter()
	if len(cfg.AllowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())
	handler.Register(router)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting leaseguard", "addr", cfg.Addr,
		"postgres", cfg.DatabaseURL != "",
		"redis", redisClient != nil,
		"kafka", streamAudit,
		"remote_scorer", remote != nil,
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	auditor.Close()
}
