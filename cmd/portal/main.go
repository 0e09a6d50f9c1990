// Command portal serves the Communication LTD customer portal: a web
// front end over the company's REST backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/communication-ltd/portal/internal/config"
	"github.com/communication-ltd/portal/internal/gateway"
	"github.com/communication-ltd/portal/internal/session"
	"github.com/communication-ltd/portal/internal/web"
	"github.com/communication-ltd/portal/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "portal:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "portal.yaml", "path to the configuration file")
		addr       = flag.String("addr", "", "listen address (overrides config)")
		backendURL = flag.String("backend", "", "backend base URL (overrides config)")
	)
	flag.Parse()

	// Local development keeps secrets in .env; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}
	if *backendURL != "" {
		cfg.Backend.BaseURL = *backendURL
	}
	if cfg.Session.CookieSecret == "" {
		return fmt.Errorf("a cookie secret is required, set PORTAL_COOKIE_SECRET")
	}

	log := logger.New("portal", cfg.Log.Level)

	backend, err := gateway.New(gateway.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var repo session.Repository
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer client.Close()
		repo = session.NewRedisRepository(client)
		log.WithFields(map[string]interface{}{"addr": cfg.Redis.Addr}).Info("sessions stored in redis")
	} else {
		memory := session.NewMemoryRepository()
		memory.StartSweep(ctx, time.Minute)
		repo = memory
		log.Info("sessions stored in memory")
	}

	sessions, err := session.NewManager(session.ManagerConfig{
		Repository:  repo,
		Backend:     backend,
		Logger:      log,
		TTL:         cfg.Session.TTL,
		RememberTTL: cfg.Session.RememberTTL,
	})
	if err != nil {
		return err
	}

	srv, err := web.NewServer(web.Config{
		Backend:       backend,
		Sessions:      sessions,
		Logger:        log,
		CookieName:    cfg.Session.CookieName,
		CookieSecret:  []byte(cfg.Session.CookieSecret),
		SecureCookies: cfg.Session.SecureCookies,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      srv,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(map[string]interface{}{
			"addr":    cfg.Server.Addr,
			"backend": cfg.Backend.BaseURL,
		}).Info("portal listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
