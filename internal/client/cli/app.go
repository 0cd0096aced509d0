package cli

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/groupshare/internal/client/client"
	"github.com/dmitrijs2005/groupshare/internal/client/config"
	"github.com/dmitrijs2005/groupshare/internal/client/poller"
	"github.com/dmitrijs2005/groupshare/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/groupshare/internal/client/services"
	"github.com/dmitrijs2005/groupshare/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
)

// App is the interactive client: one group sharing service plus the
// terminal it talks to.
type App struct {
	config   *config.Config
	service  services.GroupSharingService
	api      client.Client
	db       *sql.DB
	registry *prometheus.Registry
	logger   logging.Logger
	validate *validator.Validate
	reader   *bufio.Reader
	out      io.Writer
}

// NewApp opens the local cache, builds the API client and the group sharing
// service from c.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	db, err := client.InitDatabase(ctx, c.DBPath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "path", c.DBPath, "error", err)
		return nil, err
	}

	apiClient, err := client.NewHTTPClient(c.APIBaseURL, c.RequestTimeout)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	reg := prometheus.NewRegistry()
	svc := services.NewGroupSharingService(apiClient, metadata.NewSQLiteRepository(db),
		services.WithLogger(logger),
		services.WithPollInterval(c.PollInterval),
		services.WithSessionTTL(c.SessionTTL),
		services.WithMetrics(reg),
	)

	return &App{
		config:   c,
		service:  svc,
		api:      apiClient,
		db:       db,
		registry: reg,
		logger:   logger.With("module", "cli"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		reader:   bufio.NewReader(os.Stdin),
		out:      os.Stdout,
	}, nil
}

// Run restores a cached session, if any, and blocks in the REPL until the
// user exits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.Close()

	if s, err := a.service.Restore(ctx); err != nil {
		a.logger.Warn(ctx, "could not restore session", "error", err)
	} else if s != nil {
		a.println("Resumed session", s.Code, "("+string(s.Status)+")")
	}

	go a.StartSessionWatcher(ctx)

	a.Root(ctx)
}

// Close stops polling and releases the API client and the local cache.
func (a *App) Close() {
	a.service.Close()
	if a.api != nil {
		_ = a.api.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn(context.Background(), "close database", "error", err)
		}
	}
}

// StartSessionWatcher prints an alert when polling finds that the session
// ended or completed elsewhere. It returns when ctx is done or the service
// is closed.
func (a *App) StartSessionWatcher(ctx context.Context) {
	updates, unsubscribe := a.service.Subscribe()
	defer unsubscribe()

	var last poller.Update
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			if msg := watcherAlert(last, u); msg != "" {
				a.println(msg)
			}
			last = u
		}
	}
}

// watcherAlert returns the line to show for a transition from prev to u, or
// "" when nothing changed that the user did not cause.
func watcherAlert(prev, u poller.Update) string {
	switch {
	case u.Kind == poller.NotFound && prev.Kind == poller.Found:
		if errors.Is(u.Err, services.ErrNoActiveSession) {
			return ""
		}
		return "! " + alertMessage(u.Err)
	case u.Kind == poller.Found && u.Session != nil && u.Session.Status.IsTerminal():
		if prev.Kind == poller.Found && prev.Session != nil && prev.Session.ID == u.Session.ID && prev.Session.Status == u.Session.Status {
			return ""
		}
		return fmt.Sprintf("! Session %s is %s", u.Session.Code, u.Session.Status)
	default:
		return ""
	}
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}
