package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/pocketledger/pocketledger-go/api"
	"github.com/pocketledger/pocketledger-go/authapi"
	"github.com/pocketledger/pocketledger-go/credentials"
	"github.com/pocketledger/pocketledger-go/gateway"
	"github.com/pocketledger/pocketledger-go/internal/config"
	"github.com/pocketledger/pocketledger-go/session"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatalf("Error: %s\n", err)
	}
}

func run(args []string) (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	// Missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.New()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	app, err := newApp(cfg, logger)
	if err != nil {
		return err
	}

	if len(args) == 0 {
		displayBanner()
		usage()
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()

	return app.dispatch(ctx, args[0], args[1:])
}

// app wires the credential store, session manager, gateway, and resource
// clients together.
type app struct {
	sessions      *session.Manager
	budget        *api.BudgetClient
	categories    *api.CategoriesClient
	goals         *api.GoalsClient
	notifications *api.NotificationsClient
	profile       *api.ProfileClient
}

func newApp(cfg *config.Config, logger zerolog.Logger) (*app, error) {
	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	authClient, err := authapi.NewClient(cfg.BaseURL,
		authapi.WithHTTPClient(httpClient),
		authapi.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	sessions, err := session.NewManager(store, authClient, session.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	sessions.OnSessionExpired(func(err error) {
		fmt.Fprintln(os.Stderr, err.Error())
	})

	gw, err := gateway.NewClient(cfg.BaseURL, store, authClient,
		gateway.WithHTTPClient(httpClient),
		gateway.WithLogger(logger),
		gateway.WithSessionExpiredHook(sessions.NotifySessionExpired),
	)
	if err != nil {
		return nil, err
	}

	return &app{
		sessions:      sessions,
		budget:        api.NewBudgetClient(gw),
		categories:    api.NewCategoriesClient(gw),
		goals:         api.NewGoalsClient(gw),
		notifications: api.NewNotificationsClient(gw),
		profile:       api.NewProfileClient(gw),
	}, nil
}

func newStore(cfg *config.Config) (credentials.Store, error) {
	if cfg.CredentialsFile != "" {
		return credentials.NewFileStore(cfg.CredentialsFile, cfg.CredentialsPassphrase)
	}
	return credentials.NewMemoryStore(), nil
}

func newLogger(level string) (zerolog.Logger, error) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(writer).Level(parsed).With().Timestamp().Logger(), nil
}

func displayBanner() {
	figure.NewFigure("PocketLedger", "cybermedium", true).Print()
	fmt.Println()
}

func usage() {
	fmt.Println(`Usage: pocketledger <command> [arguments]

Commands:
  login <email> <password>
  register <full-name> <email> <password> [mobile] [date-of-birth]
  logout
  whoami
  budget
  categories
  goals
  notifications
  forgot-password <email>
  verify-reset-code <email> <code>
  reset-password <email> <code> <new-password>`)
}
