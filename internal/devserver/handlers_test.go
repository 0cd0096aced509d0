package devserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/groupshare/internal/api"
	"github.com/dmitrijs2005/groupshare/internal/client/client"
	"github.com/dmitrijs2005/groupshare/internal/client/models"
	"github.com/dmitrijs2005/groupshare/internal/logging"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*httptest.Server, *client.HTTPClient, *clock, *Server) {
	t.Helper()
	store, c := newTestStore()
	server := NewServer(store, logging.Nop(), 10*time.Minute, nil)
	srv := httptest.NewServer(server.NewRouter())
	t.Cleanup(srv.Close)

	cl, err := client.NewHTTPClient(srv.URL, 5*time.Second)
	require.NoError(t, err)
	return srv, cl, c, server
}

func TestHandlers_Lifecycle(t *testing.T) {
	_, cl, _, server := newTestServer(t)
	ctx := context.Background()

	sess, err := cl.CreateSession(ctx, api.CreateSessionRequest{Code: "4821", AdminID: "a", AdminName: "Ann", ExpirationMinutes: 5})
	require.NoError(t, err)
	assert.Equal(t, "4821", sess.Code)
	assert.Equal(t, 5*time.Minute, sess.ExpiresAt.Sub(sess.CreatedAt))

	joined, err := cl.JoinSession(ctx, api.JoinSessionRequest{Code: "4821", UserID: "u1", UserName: "Bob"})
	require.NoError(t, err)
	assert.Len(t, joined.Participants, 1)

	got, err := cl.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Participants, 1)

	connected, err := cl.ConnectParticipants(ctx, sess.ID, api.ConnectRequest{AdminID: "a"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusConnected, connected.Status)

	require.NoError(t, cl.SetCards(ctx, sess.ID, api.SetCardsRequest{UserID: "a", CardIDs: []string{"ca"}}))
	require.NoError(t, cl.SetCards(ctx, sess.ID, api.SetCardsRequest{UserID: "u1", CardIDs: []string{"c1"}, DefaultCardID: "c1"}))

	res, err := cl.Execute(ctx, sess.ID, api.ExecuteRequest{AdminID: "a", GroupName: "Pair"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Summary.TotalShares)
	assert.Equal(t, "Pair", res.Summary.GroupName)

	require.NoError(t, cl.EndSession(ctx, sess.ID, api.EndRequest{UserID: "a"}))
	_, err = cl.GetSession(ctx, sess.ID)
	require.ErrorIs(t, err, client.ErrSessionNotFound)

	assert.Equal(t, 2.0, testutil.ToFloat64(server.metrics.shares))
}

func TestHandlers_Errors(t *testing.T) {
	_, cl, clk, _ := newTestServer(t)
	ctx := context.Background()

	_, err := cl.JoinSession(ctx, api.JoinSessionRequest{Code: "0000", UserID: "u1"})
	require.ErrorIs(t, err, client.ErrSessionNotFound)

	sess, err := cl.CreateSession(ctx, api.CreateSessionRequest{Code: "1234", AdminID: "a"})
	require.NoError(t, err)

	_, err = cl.CreateSession(ctx, api.CreateSessionRequest{Code: "1234", AdminID: "b"})
	var apiErr *client.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Code already in use", apiErr.Message)

	_, err = cl.ConnectParticipants(ctx, sess.ID, api.ConnectRequest{AdminID: "u1"})
	require.ErrorIs(t, err, client.ErrUnauthorized)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Only admin can connect participants", apiErr.Message)

	_, err = cl.Execute(ctx, sess.ID, api.ExecuteRequest{AdminID: "a"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)

	clk.Advance(11 * time.Minute)
	_, err = cl.JoinSession(ctx, api.JoinSessionRequest{Code: "1234", UserID: "u1"})
	require.ErrorIs(t, err, client.ErrSessionExpired)

	got, err := cl.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, got.Status)
}

func TestHandlers_Validation(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{"bad json", api.PathCreate, `{`, "invalid JSON body"},
		{"short code", api.PathCreate, `{"code":"12","adminId":"a"}`, "invalid Code"},
		{"letters in code", api.PathJoin, `{"code":"12ab","userId":"u"}`, "invalid Code"},
		{"missing user", api.PathJoin, `{"code":"1234"}`, "invalid UserID"},
		{"ttl too long", api.PathCreate, `{"code":"1234","adminId":"a","expirationMinutes":5000}`, "invalid ExpirationMinutes"},
		{"empty card id", api.SetCardsPath("x"), `{"userId":"u","cardIds":[""]}`, "invalid CardIDs[0]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(srv.URL+tt.path, "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			b, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			assert.Contains(t, string(b), tt.want)
		})
	}
}

func TestHandlers_HealthAndMetrics(t *testing.T) {
	srv, cl, _, _ := newTestServer(t)

	_, err := cl.GetSession(context.Background(), "nope")
	require.ErrorIs(t, err, client.ErrSessionNotFound)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := string(b)
	assert.Contains(t, body, `groupshare_devserver_requests_total{code="404",route="/group-sharing/session/{id}"} 1`)
	assert.Contains(t, body, "groupshare_devserver_sessions 0")
}

func TestDetail(t *testing.T) {
	assert.Equal(t, "Only admin can execute sharing", detail(fmt.Errorf("%w: only admin can execute sharing", ErrForbidden)))
	assert.Equal(t, "Forbidden", detail(ErrForbidden))
}
