package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tomwright0/dustin-schedule/access"
	"github.com/tomwright0/dustin-schedule/auth"
	"github.com/tomwright0/dustin-schedule/internal/config"
	"github.com/tomwright0/dustin-schedule/provider/google"
	"github.com/tomwright0/dustin-schedule/scheduler"
	"github.com/tomwright0/dustin-schedule/server"
	"github.com/tomwright0/dustin-schedule/sessions"
	"github.com/tomwright0/dustin-schedule/sessions/memory"
	sessionsredis "github.com/tomwright0/dustin-schedule/sessions/redis"
)

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
			time.Sleep(1 * time.Second)
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	setupLogging(c)
	displayAppname(c.GetAppName())
	warnAboutConfig(c)

	repo, closeRepo, err := newSessionRepo(c)
	if err != nil {
		return err
	}
	defer closeRepo()

	handler, err := newServer(c, repo)
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- listenAndServe(httpServer) }()

	select {
	case err := <-errCh:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func newServer(c config.Config, repo sessions.Repo) (*server.Server, error) {
	provider := google.New(google.Config{
		ClientID:     c.GetClientID(),
		ClientSecret: c.GetClientSecret(),
		RedirectURL:  c.GetRedirectURI(),
	})

	policy := access.NewPolicy(c.GetAllowedEmails())
	if !policy.Restricted() {
		log.Warn().Msg("ALLOWED_GOOGLE_EMAILS is empty: any Google account can sign in")
	}

	flow, err := auth.NewFlow(provider, policy, repo, auth.WithRevokeOnSignOut(c.GetRevokeOnLogout()))
	if err != nil {
		return nil, err
	}
	sched, err := scheduler.New(provider, repo, c.GetTargetCalendarID(), scheduler.WithDuration(c.GetEventDuration()))
	if err != nil {
		return nil, err
	}
	codec, err := sessions.NewCodec(c.GetSessionSecret(), c.GetMaxSessionAge())
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return server.New(c, flow, sched, codec, server.WithRegistry(registry))
}

func newSessionRepo(c config.Config) (sessions.Repo, func(), error) {
	switch strings.ToLower(c.GetSessionStore()) {
	case "", "memory":
		return memory.NewInMemoryRepo(c.GetMaxSessionAge()), func() {}, nil
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: c.GetRedisAddr(), DB: c.GetRedisDB()})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", c.GetRedisAddr(), err)
		}
		log.Info().Str("addr", c.GetRedisAddr()).Msg("Using Redis session store")
		return sessionsredis.NewRepo(client, c.GetMaxSessionAge()), func() { _ = client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown SESSION_STORE %q", c.GetSessionStore())
	}
}

func setupLogging(c config.Config) {
	level, err := zerolog.ParseLevel(c.GetLogLevel())
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	if c.GetEnv() == "DEV" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

func warnAboutConfig(c config.Config) {
	if missing := config.MissingProviderSettings(c); len(missing) > 0 {
		log.Warn().Strs("missing", missing).Msg("Google OAuth is not fully configured; sign in will fail")
	}
	if c.GetSessionSecret() == config.DefaultSessionSecret {
		log.Warn().Msg("SESSION_SECRET is not set; using an insecure default")
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Msgf("Server listening on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
