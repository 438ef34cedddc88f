package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	EventBus "github.com/asaskevich/EventBus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/essencia-app/essencia-cli/internal/adapters/api"
	tomlrepo "github.com/essencia-app/essencia-cli/internal/adapters/repo/toml"
	filestore "github.com/essencia-app/essencia-cli/internal/adapters/secrets/file"
	"github.com/essencia-app/essencia-cli/internal/application"
	"github.com/essencia-app/essencia-cli/internal/logging"
	"github.com/essencia-app/essencia-cli/internal/ports"
)

const (
	defaultBaseURL = "https://api.essencia.app/v1"
	configDir      = ".essencia"
)

type app struct {
	client   *api.Client
	session  *application.SessionService
	profiles *application.ProfileService
	center   *application.Center
	feed     *feedSink
	log      logging.Logger
	debug    bool

	restored bool
}

func wireApp() (*app, error) {
	debug := os.Getenv("ESS_DEBUG") != ""
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	log := logging.New(os.Stderr, level)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}

	cfg := viper.New()
	cfg.SetConfigName("config")
	cfg.SetConfigType("toml")
	cfg.AddConfigPath(filepath.Join(homeDir, configDir))
	cfg.SetDefault("api.base_url", defaultBaseURL)
	cfg.SetDefault("api.timeout", 10*time.Second)
	cfg.SetDefault("storage.path", filepath.Join(homeDir, configDir, "tokens"))

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	tokens := filestore.NewStore(cfg.GetString("storage.path"))

	client, err := api.NewClient(api.Config{
		BaseURL: envOrDefault("ESS_API_BASE_URL", cfg.GetString("api.base_url")),
		Timeout: cfg.GetDuration("api.timeout"),
		Tokens:  tokens,
		Logger:  log,
	})
	if err != nil {
		return nil, fmt.Errorf("wire api client: %w", err)
	}

	drafts, err := tomlrepo.NewRepository(cfg)
	if err != nil {
		return nil, fmt.Errorf("wire draft repository: %w", err)
	}

	bus := EventBus.New()
	center := application.NewCenter(0, ports.SystemClock{}, bus)
	session := application.NewSessionService(client, tokens, bus, log)
	profiles := application.NewProfileService(client, drafts, center, log, debug)

	sink := newFeedSink(center)
	if err := bus.Subscribe(application.TopicNotificationsChanged, sink.onChange); err != nil {
		return nil, fmt.Errorf("subscribe notification feed: %w", err)
	}
	if err := bus.Subscribe(application.TopicSessionChanged, func() {
		log.Debug(context.Background(), "session state changed", "authenticated", session.IsAuthenticated())
	}); err != nil {
		return nil, fmt.Errorf("subscribe session events: %w", err)
	}

	return &app{
		client:   client,
		session:  session,
		profiles: profiles,
		center:   center,
		feed:     sink,
		log:      log,
		debug:    debug,
	}, nil
}

// ensureSession restores the in-memory session from durable storage once per
// process. Commands that need an authenticated user call it before running.
func (a *app) ensureSession(ctx context.Context) error {
	if a.restored {
		return nil
	}
	a.restored = true
	if _, err := a.session.RestoreOnBoot(ctx); err != nil {
		return err
	}
	return nil
}

// reportError classifies a failure into the notification queue. Callers
// still return the original error for the exit code.
func (a *app) reportError(err error) {
	a.center.ShowApp(application.Classify(err, a.debug))
}

// printFeed flushes the bus-fed notification batch to the terminal.
func printFeed(cmd *cobra.Command, a *app) {
	a.feed.flush(cmd.OutOrStdout())
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
