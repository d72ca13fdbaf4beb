package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"xhuma/internal/adapters"
	"xhuma/internal/adapters/gpconnect"
	"xhuma/internal/adapters/pds"
	"xhuma/internal/adapters/sds"
	"xhuma/internal/orchestrator"
	"xhuma/internal/platform/config"
	"xhuma/internal/platform/httpserver"
	"xhuma/internal/platform/logger"
	"xhuma/internal/platform/metrics"
	httptransport "xhuma/internal/transport/http"
	"xhuma/pkg/platform/middleware/auth"
)

func serveCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the ITI-47/38/39 HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log := logger.New(cfg.Log)
	slog.SetDefault(log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	c, err := buildCache(cfg, b, log, reg)
	if err != nil {
		return err
	}
	registry, err := buildRegistry(ctx, cfg, b, log)
	if err != nil {
		return err
	}
	authn, err := buildAuthenticator(cfg.Auth, log)
	if err != nil {
		return err
	}
	publisher, err := buildPublisher(ctx, cfg, b, log, reg)
	if err != nil {
		return err
	}

	upstream := &http.Client{
		Timeout:   cfg.Adapters.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	runner := adapters.NewRunner(adapters.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		CallTimeout: cfg.Adapters.Timeout,
	}, adapters.WithMetrics(adapters.NewMetrics(reg)))

	svc, err := orchestrator.New(orchestrator.Ports{
		Demographics: pds.New(cfg.Adapters.PDSBaseURL, cfg.Adapters.PDSTokenURL, cfg.Adapters.PDSClientID, authn,
			pds.WithHTTPClient(upstream),
			pds.WithKeyID(cfg.Adapters.PDSKeyID),
		),
		Routing: sds.New(cfg.Adapters.SDSBaseURL, cfg.Adapters.SDSAPIKey,
			sds.WithHTTPClient(upstream),
			sds.WithInteractionID(cfg.Adapters.InteractionID),
		),
		Records: gpconnect.New(authn, gpconnect.Identity{ASID: cfg.Adapters.ASID, ODSCode: cfg.Adapters.ODSCode},
			gpconnect.WithHTTPClient(upstream),
			gpconnect.WithInteractionID(cfg.Adapters.InteractionID),
		),
		Registry: registry,
		Cache:    c,
	},
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(orchestrator.NewMetrics(reg)),
		orchestrator.WithAuditPublisher(publisher),
		orchestrator.WithRunner(runner),
		orchestrator.WithTTLs(cfg.Cache.RoutingTTL, cfg.Cache.DocumentTTL),
		orchestrator.WithTransactionTimeout(cfg.Retry.TransactionTimeout),
		orchestrator.WithDefaultFamily(cfg.Registry.DefaultFamily),
	)
	if err != nil {
		return err
	}

	var verifier auth.TokenVerifier
	if cfg.Server.RequireAuth {
		verifier = authn
	}
	srv := httpserver.New(cfg.Server.Addr, httptransport.NewRouter(httptransport.RouterConfig{
		Service:  svc,
		Logger:   log,
		Verifier: verifier,
		Checks:   b.healthChecks(),
		Metrics:  metrics.NewHTTP(reg),
		Gatherer: reg,
	}), cfg.Retry.TransactionTimeout)

	// The publisher outlives the server so records from in-flight requests
	// are drained after Shutdown returns.
	auditCtx, stopAudit := context.WithCancel(context.WithoutCancel(ctx))
	defer stopAudit()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return publisher.Run(auditCtx)
	})
	g.Go(func() error {
		log.Info("xhuma listening",
			"addr", cfg.Server.Addr,
			"cache_backend", cfg.Cache.Backend,
			"registry_backend", cfg.Registry.Backend,
			"audit_sink", cfg.Audit.Sink,
			"require_auth", cfg.Server.RequireAuth,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		defer stopAudit()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
