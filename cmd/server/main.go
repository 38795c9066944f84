package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/planfest/planfest-auth/directory"
	"github.com/planfest/planfest-auth/identity"
	"github.com/planfest/planfest-auth/internal/config"
	"github.com/planfest/planfest-auth/internal/metrics"
	"github.com/planfest/planfest-auth/internal/secretbox"
	"github.com/planfest/planfest-auth/providers"
	"github.com/planfest/planfest-auth/roles"
	"github.com/planfest/planfest-auth/server"
	"github.com/planfest/planfest-auth/session"
)

func main() {
	log := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(log zerolog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}
	displayAppname(cfg.AppName)

	registry, err := providers.NewRegistry(cfg.ProviderCredentials())
	if err != nil {
		return fmt.Errorf("build provider registry: %w", err)
	}

	validator := identity.NewValidator(context.Background(), registry)

	codec, err := session.NewCodec(
		[]byte(cfg.Session.Secret),
		cfg.Session.TTL,
		cfg.Session.RefreshWithin,
		cfg.Session.CookieSecure,
	)
	if err != nil {
		return fmt.Errorf("build session codec: %w", err)
	}

	txBox, err := secretbox.NewFromBase64(cfg.Login.StateKey)
	if err != nil {
		return fmt.Errorf("build login state box: %w", err)
	}

	var dir directory.Directory = directory.NewHTTPClient(cfg.Directory.BaseURL)
	if cfg.Directory.CacheTTL > 0 {
		dir = directory.NewCached(dir, cfg.Directory.CacheTTL)
	}

	if err := metrics.Register(nil); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	opts, err := upstreamOptions(cfg, log)
	if err != nil {
		return err
	}
	handler := server.New(log, registry, validator, codec, dir, txBox, cfg.Login.TransactionTTL, opts...)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func upstreamOptions(cfg config.Config, log zerolog.Logger) ([]server.Option, error) {
	var opts []server.Option
	for role, target := range map[roles.Role]string{
		roles.Organizer: cfg.Upstreams.Organizer,
		roles.Supplier:  cfg.Upstreams.Supplier,
		roles.Buyer:     cfg.Upstreams.Buyer,
	} {
		if target == "" {
			continue
		}
		proxy, err := server.NewUpstreamProxy(target, log)
		if err != nil {
			return nil, fmt.Errorf("upstream for %s: %w", role, err)
		}
		opts = append(opts, server.WithUpstream(role, proxy))
	}
	return opts, nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
