// Package cli provides the basket command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/freshcart/basket/internal/api"
	"github.com/freshcart/basket/internal/auth"
	"github.com/freshcart/basket/internal/cache"
	"github.com/freshcart/basket/internal/config"
	"github.com/freshcart/basket/internal/logging"
	"github.com/freshcart/basket/internal/ui"
)

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// NewRootCmd builds the command tree. Without a subcommand it starts the TUI.
func NewRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "basket",
		Short: "Basket - grocery catalog and price watcher",
		Long: `Basket is a terminal client for the store: sign in, scan barcodes,
look up products and watch their prices.

Configuration:
  Config is loaded from basket.yaml in the current directory or the user
  config directory (e.g. ~/.config/basket/basket.yaml).

  Environment variables override config values with the BASKET_ prefix.
  Example: BASKET_API_BASE_URL=https://shop.example.com

Commands:
  login       Sign in and remember the session
  register    Create an account and sign in
  logout      Sign out and forget the session
  whoami      Show the signed in user
  lookup      Look up a product by barcode
  location    Set the delivery location
  version     Print version information`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(contextOf(cmd), cfgFile)
		},
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./basket.yaml)")

	root.AddCommand(
		newLoginCmd(&cfgFile),
		newRegisterCmd(&cfgFile),
		newLogoutCmd(&cfgFile),
		newWhoamiCmd(&cfgFile),
		newLookupCmd(&cfgFile),
		newLocationCmd(&cfgFile),
		newVersionCmd(),
	)
	return root
}

// env holds everything a command needs, opened from the config.
type env struct {
	cfg      config.Config
	log      *logrus.Logger
	logFile  io.Closer
	db       *cache.DB
	redis    *redis.Client
	client   *api.Client
	sessions *auth.Manager
}

// setup loads the config and opens the cache, the credential store and
// the API client. Without a configured log file, logs go to stderr, or
// nowhere when stderr is nil.
func setup(cfgFile string, stderr io.Writer) (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.CacheDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	log, logFile, err := logging.New(cfg.LogPath, cfg.LogLevel, stderr)
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: log, logFile: logFile}

	e.db, err = cache.Open(cfg.DBPath)
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	store, err := e.openStore()
	if err != nil {
		e.Close()
		return nil, err
	}

	e.client, err = api.NewClient(cfg.APIBaseURL, api.Options{Timeout: cfg.APITimeout, Logger: log})
	if err != nil {
		e.Close()
		return nil, err
	}
	e.sessions = auth.NewManager(e.client, store, auth.Options{Logger: log, MaxAge: cfg.SessionMaxAge})
	e.client.SetTokenSource(e.sessions)

	log.WithFields(logrus.Fields{
		"api":   cfg.APIBaseURL,
		"store": cfg.SessionStore,
	}).Debug("basket starting")
	return e, nil
}

func (e *env) openStore() (auth.Store, error) {
	switch e.cfg.SessionStore {
	case config.StoreSQLite:
		return e.db.SessionStore(), nil
	case config.StoreRedis:
		client, err := cache.DialRedis(e.cfg.RedisAddr, e.cfg.RedisPassword, e.cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("connecting to redis at %s: %w", e.cfg.RedisAddr, err)
		}
		e.redis = client
		return cache.NewRedisStore(client, e.cfg.RedisPrefix, e.cfg.SessionMaxAge), nil
	case config.StoreMemory:
		return auth.NewMemoryStore(), nil
	default:
		return auth.NewFileStore(e.cfg.SessionDir), nil
	}
}

// Close releases whatever setup opened.
func (e *env) Close() {
	if e.redis != nil {
		e.redis.Close()
	}
	if e.db != nil {
		e.db.Close()
	}
	if e.logFile != nil {
		e.logFile.Close()
	}
}

// restore loads the saved session, reporting store failures as warnings.
func (e *env) restore(ctx context.Context) auth.Session {
	s, err := e.sessions.Restore(ctx)
	if err != nil {
		e.log.WithError(err).Warn("restoring session")
	}
	return s
}

func runTUI(ctx context.Context, cfgFile string) error {
	// The TUI owns the terminal, so nothing may log to stderr.
	e, err := setup(cfgFile, nil)
	if err != nil {
		return err
	}
	defer e.Close()

	app := ui.NewApp(e.cfg, e.client, e.db, e.sessions, e.log)
	defer app.Shutdown()

	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	app.SetProgram(p)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running TUI: %w", err)
	}
	return nil
}
