package cli

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/groupshare/internal/client/config"
	"github.com/dmitrijs2005/groupshare/internal/client/models"
	"github.com/dmitrijs2005/groupshare/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp_WiresDependencies(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.APIBaseURL = srv.URL
	cfg.DBPath = filepath.Join(t.TempDir(), "nested", "groupshare.db")

	app, err := NewApp(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)
	t.Cleanup(app.Close)

	assert.NotNil(t, app.service)
	assert.NotNil(t, app.db)
	assert.Nil(t, app.service.GetCurrentSession())
	assert.FileExists(t, cfg.DBPath)
}

func TestNewApp_BadURL(t *testing.T) {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.APIBaseURL = "localhost"
	cfg.DBPath = ":memory:"

	_, err := NewApp(context.Background(), cfg, logging.Nop())
	require.Error(t, err)
}

func TestGetStatus(t *testing.T) {
	svc := &fakeService{}
	app, _ := newTestApp(svc, "")
	assert.Equal(t, "", app.getStatus())

	svc.current = &models.Session{Code: "4321", Status: models.StatusConnected}
	assert.Equal(t, "(4321 connected)", app.getStatus())
}

func TestRun_RestoresAndCloses(t *testing.T) {
	lines := silencePrintln(t)
	svc := &fakeService{current: &models.Session{Code: "4321", Status: models.StatusWaiting}}
	app, out := newTestApp(svc, "exit\n")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	app.Run(ctx)

	assert.Equal(t, "restore", svc.calls[0])
	assert.Equal(t, "close", svc.calls[len(svc.calls)-1])
	assert.True(t, strings.HasPrefix(out.String(), "Resumed session 4321 (waiting)"))
	assert.Contains(t, *lines, "Bye!")
}
