// Command identity-issuer runs the user-auth shell and the issuer-hosted
// Delegation HTTP service together, so /auth/register, /auth/login,
// /auth/delegate, and /auth/validate all live behind one address.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/config"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/delegation"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/userauth"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to the trust core YAML config file")
	addr := flag.String("addr", ":8081", "address the identity issuer HTTP service listens on")
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
	if len(cfg.DelegationSigningKey) == 0 {
		logger.Error("delegation_signing_key is required to run the identity issuer")
		os.Exit(1)
	}

	trustDomain, err := domain.NewTrustDomain(cfg.TrustDomain)
	if err != nil {
		logger.Error("invalid trust domain", "trust_domain", cfg.TrustDomain, "error", err)
		os.Exit(1)
	}

	issuer, err := delegation.NewIssuer(trustDomain, cfg.ServiceName, cfg.DelegationSigningKey, cfg.DefaultDelegationTTL, cfg.MaxDelegationTTL)
	if err != nil {
		logger.Error("failed to build delegation issuer", "error", err)
		os.Exit(1)
	}
	delegationHandlers := delegation.NewHandlers(issuer, logger)

	userStore := userauth.NewStore()
	userHandlers := userauth.NewHandlers(userStore, cfg.DelegationSigningKey, cfg.DefaultDelegationTTL, logger)

	router := chi.NewRouter()
	router.Post("/auth/register", userHandlers.Register)
	router.Post("/auth/login", userHandlers.Login)
	router.Post("/auth/delegate", delegationHandlers.Delegate)
	router.Post("/auth/validate", delegationHandlers.Validate)

	server := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("identity issuer listening", "addr", *addr, "trust_domain", cfg.TrustDomain)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("identity issuer server error", "error", err)
		}
	}()

	<-sigCh
	logger.Info("shutting down identity issuer")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("identity issuer shutdown error", "error", err)
		os.Exit(1)
	}
}
