// Command workload-api runs the CA Core, the Attestation Registry, and the
// Workload API HTTP service.
//
// Build with `-tags dev`: it links keystore.NewFilesystemStore, which is
// gated behind that build tag because it is a development-only
// SecureKeyStore. A production build swaps in a real secret-manager or
// HSM-backed SecureKeyStore and drops the tag.
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

	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/attestation"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/ca"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/config"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/domain"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/keystore"
	"github.com/delegation-platform-spiffe/workload-identity-platform/internal/workloadapi"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to the trust core YAML config file")
	addr := flag.String("addr", ":8080", "address the Workload API HTTP service listens on")
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

	store, err := keystore.NewFilesystemStore(cfg.KeyStoreDir)
	if err != nil {
		logger.Error("failed to open ca key store", "key_store_dir", cfg.KeyStoreDir, "error", err)
		os.Exit(1)
	}

	signingCA := ca.New(trustDomain, store, cfg.DefaultCertificateTTL)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := signingCA.Init(ctx); err != nil {
		logger.Error("failed to initialize ca", "error", err)
		os.Exit(1)
	}

	scheme := attestation.NewStaticSecretScheme(map[string]string{
		cfg.ServiceName: cfg.AttestationToken,
	})
	registry := attestation.NewRegistry(scheme, attestation.DefaultTicketTTL)

	router := workloadapi.NewRouter(registry, signingCA, logger)
	server := &http.Server{
		Addr:              *addr,
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("workload api listening", "addr", *addr, "trust_domain", cfg.TrustDomain)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("workload api server error", "error", err)
		}
	}()

	<-sigCh
	logger.Info("shutting down workload api")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("workload api shutdown error", "error", err)
		os.Exit(1)
	}
}
