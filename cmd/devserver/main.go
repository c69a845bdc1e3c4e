// Command devserver serves the storefront REST API from memory, seeded with
// a demo catalog, so the CLI can run without the real backend.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/example/ec-storefront/internal/api"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/config"
	"github.com/example/ec-storefront/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Component("devserver").WithError(err).Fatal("failed to load configuration")
	}
	logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log := logging.Component("devserver")

	secret := cfg.JWTSecret
	if secret == "" {
		secret = strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
		log.Warn("JWT_SECRET not set, using a random secret for this run")
	} else if err := cfg.RequireJWTSecret(); err != nil {
		log.WithError(err).Fatal("invalid JWT secret")
	}

	backend := api.NewBackend(auth.NewHasher(auth.DefaultBcryptCost))
	backend.PaymentBaseURL = "http://" + publicHost(cfg.DevServerAddr)
	if err := api.Seed(backend); err != nil {
		log.WithError(err).Fatal("failed to seed backend")
	}
	for _, acct := range api.SeedAccounts {
		log.WithField("email", acct.Email).WithField("role", acct.Role).Info("seeded account")
	}

	jwtService := auth.NewJWTService(secret, 15*time.Minute, 7*24*time.Hour)
	router := api.NewRouter(api.RouterConfig{
		Backend:    backend,
		JWTService: jwtService,
		Logger:     logging.Component("http"),
	})

	server := &http.Server{
		Addr:              cfg.DevServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.DevServerAddr).Info("dev server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown failed")
	}
}

// publicHost turns a listen address such as ":8080" into a dialable host
func publicHost(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
