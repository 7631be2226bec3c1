// Command print-service is the example workload: it boots an Identity
// Agent and runs two listeners on distinct ports:
//
//   - a plain HTTP listener where the Auth Filter validates end-user
//     delegation bearer tokens in front of the print-job handlers;
//   - an mTLS listener, built from the Identity Agent's current SVID, for
//     workload-to-workload calls authenticated by peer SPIFFE ID instead
//     of a delegation token.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/authfilter"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/config"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/delegation"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/identityagent"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/mtls"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
	startupTimeout    = 30 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to the trust core YAML config file")
	issuerURL := flag.String("issuer-url", "http://localhost:8081", "base URL of the identity-issuer service")
	useRemoteValidator := flag.Bool("remote-validator", false, "validate delegation tokens via the issuer's /auth/validate instead of locally")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	var fc config.FileConfig
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Error("failed to load config", "error", err)
			os.Exit(1)
		}
		fc = loaded
	}

	cfg, err := config.Resolve(fc)
	if err != nil {
		logger.Error("failed to resolve config", "error", err)
		os.Exit(1)
	}

	trustDomain, err := domain.NewTrustDomain(cfg.TrustDomain)
	if err != nil {
		logger.Error("invalid trust domain", "trust_domain", cfg.TrustDomain, "error", err)
		os.Exit(1)
	}
	selfSpiffeID, err := trustDomain.IDForWorkload(cfg.ServiceName)
	if err != nil {
		logger.Error("invalid service name", "service_name", cfg.ServiceName, "error", err)
		os.Exit(1)
	}

	agent := identityagent.New(identityagent.Config{
		WorkloadAPIURL:   cfg.WorkloadAPIURL,
		ServiceName:      cfg.ServiceName,
		AttestationProof: map[string]string{"token": cfg.AttestationToken},
		RotationFraction: cfg.RotationFraction,
		Logger:           logger,
	})

	startCtx, startCancel := context.WithTimeout(context.Background(), startupTimeout)
	defer startCancel()
	if err := agent.Start(startCtx); err != nil {
		logger.Error("failed to start identity agent", "error", err)
		os.Exit(1)
	}
	defer agent.Close()

	var validator authfilter.Validator
	if *useRemoteValidator || len(cfg.DelegationSigningKey) == 0 {
		validator = delegation.NewRemoteValidator(selfSpiffeID, *issuerURL, http.DefaultClient)
	} else {
		localValidator, err := delegation.NewLocalValidator(selfSpiffeID, cfg.DelegationSigningKey)
		if err != nil {
			logger.Error("failed to build local delegation validator", "error", err)
			os.Exit(1)
		}
		validator = localValidator
	}

	authMiddleware := authfilter.New(validator, []string{"/healthz"}, logger)
	jobs := newJobStore()

	// Auth Filter surface: end users present a delegation bearer token,
	// not a workload SVID, so this listener is plain HTTP.
	authRouter := chi.NewRouter()
	authRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	authRouter.Group(func(r chi.Router) {
		r.Use(authMiddleware.Enforce)
		r.With(authfilter.RequireAnyPermission(logger, "submit:print")).Post("/jobs", jobs.createJob)
		r.With(authfilter.RequireAnyPermission(logger, "read:print")).Get("/jobs/{id}", jobs.getJob)
	})

	httpServer := &http.Server{
		Addr:              ":" + portOrDefault(cfg.HTTPPort, "8082"),
		Handler:           authRouter,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	// mTLS surface: workload-to-workload calls authenticated by the
	// caller's own SVID rather than a delegation token.
	mtlsRouter := chi.NewRouter()
	mtlsRouter.Get("/jobs/{id}", jobs.getJob)

	tlsConfig, err := mtls.NewServerConfig(context.Background(), agent)
	if err != nil {
		logger.Error("failed to build mtls server config", "error", err)
		os.Exit(1)
	}

	mtlsServer := &http.Server{
		Addr:              ":" + portOrDefault(cfg.MTLSPort, "8443"),
		Handler:           mtls.PeerMiddleware(mtlsRouter),
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		logger.Info("print service auth filter listener", "addr", httpServer.Addr, "spiffe_id", selfSpiffeID.String())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("print service auth filter listener error", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		logger.Info("print service mtls listener", "addr", mtlsServer.Addr, "spiffe_id", selfSpiffeID.String())
		if err := mtlsServer.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("print service mtls listener error", "error", err)
		}
	}()

	<-sigCh
	logger.Info("shutting down print service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	var shutdownFailed bool
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("print service auth filter shutdown error", "error", err)
		shutdownFailed = true
	}
	if err := mtlsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("print service mtls shutdown error", "error", err)
		shutdownFailed = true
	}
	wg.Wait()
	if shutdownFailed {
		os.Exit(1)
	}
}

func portOrDefault(port int, fallback string) string {
	if port == 0 {
		return fallback
	}
	return strconv.Itoa(port)
}
