// server runs the TeamOS HTTP API and, when GRPC_ADDR is set, the gRPC health endpoint.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"teamos/backend/internal/audit"
	audithandler "teamos/backend/internal/audit/handler"
	"teamos/backend/internal/config"
	"teamos/backend/internal/db"
	"teamos/backend/internal/email"
	healthhandler "teamos/backend/internal/health/handler"
	identityhandler "teamos/backend/internal/identity/handler"
	identityservice "teamos/backend/internal/identity/service"
	invitationhandler "teamos/backend/internal/invitation/handler"
	invitationservice "teamos/backend/internal/invitation/service"
	membershiphandler "teamos/backend/internal/membership/handler"
	membershipservice "teamos/backend/internal/membership/service"
	organizationhandler "teamos/backend/internal/organization/handler"
	organizationservice "teamos/backend/internal/organization/service"
	"teamos/backend/internal/platform/httpx"
	"teamos/backend/internal/platform/logging"
	"teamos/backend/internal/policy/engine"
	projecthandler "teamos/backend/internal/project/handler"
	projectservice "teamos/backend/internal/project/service"
	"teamos/backend/internal/security"
	"teamos/backend/internal/server"
	"teamos/backend/internal/storage"
	"teamos/backend/internal/telemetry"
	telemetryotel "teamos/backend/internal/telemetry/otel"
	"teamos/backend/internal/tenant"
)

const (
	serviceName     = "teamos-api"
	shutdownTimeout = 15 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, serviceName, cfg.OTLPInsecure)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()

	conn, err := db.OpenWithRetry(cfg.DatabaseURL, time.Minute, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer conn.Close()
	store := storage.NewPostgres(conn)

	policy, err := engine.NewOPAEvaluator(ctx)
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}

	signer, verifier, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey, !cfg.IsProduction())
	if err != nil {
		return fmt.Errorf("session keys: %w", err)
	}
	if cfg.JWTPrivateKey == "" {
		log.Warn("JWT keys not configured, using an ephemeral key pair; sessions end on restart")
	}
	tokens := security.NewTokenProvider(signer, verifier, cfg.JWTIssuer, cfg.JWTAudience)
	hasher := security.NewHasher(cfg.BcryptCost)

	bg := telemetry.NewBackground(log)
	sink, closeSink := auditSink(cfg, store, providers, bg, log)
	defer closeSink()

	metrics, err := telemetryotel.NewInvitationMetrics(providers.MeterProvider)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	var sender email.Sender = email.LogSender{Log: log}
	if cfg.ResendAPIKey != "" {
		sender = email.NewResendSender(cfg.ResendAPIKey, cfg.EmailBaseURL, cfg.EmailFrom)
	} else {
		log.Info("RESEND_API_KEY not set, invitation emails are logged only")
	}

	cookies := httpx.CookiePolicy{Secure: cfg.IsProduction()}
	auth := identityservice.NewAuthService(store, hasher, tokens, cfg.SessionDuration(), log)
	resolver := tenant.NewResolver(store)
	invitations := invitationservice.New(invitationservice.Config{
		Store:     store,
		Hasher:    hasher,
		Auth:      auth,
		Mailer:    email.NewDispatcher(sender, bg, log),
		Audit:     sink,
		Metrics:   metrics,
		AppOrigin: cfg.AppOrigin,
		Log:       log,
	})
	checker := healthhandler.NewChecker(conn, policy)

	app := server.NewApp(server.Deps{
		Auth:          auth,
		Resolver:      resolver,
		Cookies:       cookies,
		Identity:      identityhandler.New(auth, cookies),
		Organizations: organizationhandler.New(organizationservice.New(store, policy, sink), resolver, policy, cookies),
		Members:       membershiphandler.New(membershipservice.New(store, sink, log)),
		Invitations:   invitationhandler.New(invitations, cookies, !cfg.IsProduction()),
		Projects:      projecthandler.New(projectservice.New(store, sink)),
		Activity:      audithandler.New(audit.NewFeed(store.AuditLogs(), policy)),
		Health:        checker,
		Tracer:        providers.TracerProvider.Tracer(serviceName),
		Log:           log,
	})

	var grpcListener net.Listener
	if cfg.GRPCAddr != "" {
		if grpcListener, err = net.Listen("tcp", cfg.GRPCAddr); err != nil {
			return fmt.Errorf("grpc listen: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		return app.Listen(cfg.HTTPAddr)
	})
	if grpcListener != nil {
		grpcServer, healthServer := server.NewGRPCServer()
		g.Go(func() error {
			checker.Watch(gctx, healthServer, 10*time.Second)
			return nil
		})
		g.Go(func() error {
			log.Info("gRPC health server listening", zap.String("addr", cfg.GRPCAddr))
			return grpcServer.Serve(grpcListener)
		})
		g.Go(func() error {
			<-gctx.Done()
			grpcServer.GracefulStop()
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	err = g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if werr := bg.Wait(shutdownCtx); werr != nil {
		log.Warn("background tasks did not finish", zap.Error(werr))
	}
	if serr := providers.Shutdown(shutdownCtx); serr != nil {
		log.Warn("otel shutdown", zap.Error(serr))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// auditSink publishes to Kafka when brokers are configured (the worker persists the events);
// otherwise it writes to the audit_logs table directly. Both paths also emit OTel log records.
func auditSink(cfg *config.Config, store storage.Store, providers *telemetryotel.Providers, bg *telemetry.Background, log *zap.Logger) (audit.EventSink, func()) {
	otelSink := telemetryotel.NewAuditSink(providers.LoggerProvider)
	if kafka := audit.NewKafkaSink(cfg.KafkaBrokersList(), cfg.AuditKafkaTopic, log); kafka != nil {
		log.Info("audit events published to Kafka", zap.String("topic", cfg.AuditKafkaTopic))
		return audit.Async(bg, audit.Multi(kafka, otelSink)), func() {
			if err := kafka.Close(); err != nil {
				log.Warn("close kafka writer", zap.Error(err))
			}
		}
	}
	return audit.Async(bg, audit.Multi(audit.NewRepoSink(store.AuditLogs(), log), otelSink)), func() {}
}
