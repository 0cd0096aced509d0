package cli

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/dmitrijs2005/groupshare/internal/client/models"
	"github.com/dmitrijs2005/groupshare/internal/client/poller"
	"github.com/dmitrijs2005/groupshare/internal/client/services"
	"github.com/dmitrijs2005/groupshare/internal/logging"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
)

// fakeService records calls and returns canned results.
type fakeService struct {
	calls []string

	current   *models.Session
	createRes *services.CreateResult
	joinCode  string
	sess      *models.Session
	cardIDs   []string
	defCard   string
	groupName string
	execRes   *models.ExecuteResult
	me        models.Identity
	err       error

	updates chan poller.Update
}

func (f *fakeService) GenerateGroupCode() string { return "1234" }

func (f *fakeService) CreateGroupSession(context.Context) (*services.CreateResult, error) {
	f.calls = append(f.calls, "create")
	return f.createRes, f.err
}

func (f *fakeService) JoinGroupSession(_ context.Context, code string) (*models.Session, error) {
	f.calls = append(f.calls, "join")
	f.joinCode = code
	return f.sess, f.err
}

func (f *fakeService) GetSessionStatus(context.Context) (*models.Session, error) {
	f.calls = append(f.calls, "status")
	return f.sess, f.err
}

func (f *fakeService) GetCurrentSession() *models.Session { return f.current }

func (f *fakeService) ConnectAllParticipants(context.Context) error {
	f.calls = append(f.calls, "connect")
	return f.err
}

func (f *fakeService) SetCardsToShare(_ context.Context, ids []string, def string) error {
	f.calls = append(f.calls, "cards")
	f.cardIDs, f.defCard = ids, def
	return f.err
}

func (f *fakeService) ExecuteCardSharing(_ context.Context, groupName string) (*models.ExecuteResult, error) {
	f.calls = append(f.calls, "execute")
	f.groupName = groupName
	return f.execRes, f.err
}

func (f *fakeService) EndSession(context.Context) error {
	f.calls = append(f.calls, "end")
	f.current = nil
	return f.err
}

func (f *fakeService) Restore(context.Context) (*models.Session, error) {
	f.calls = append(f.calls, "restore")
	return f.current, nil
}

func (f *fakeService) Subscribe() (<-chan poller.Update, func()) {
	if f.updates == nil {
		f.updates = make(chan poller.Update, 8)
	}
	return f.updates, func() {}
}

func (f *fakeService) Identity(context.Context) (models.Identity, error) { return f.me, f.err }
func (f *fakeService) IsPolling() bool                                  { return false }
func (f *fakeService) Close()                                            { f.calls = append(f.calls, "close") }

func newTestApp(svc services.GroupSharingService, input string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	return &App{
		service:  svc,
		registry: prometheus.NewRegistry(),
		logger:   logging.Nop(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		reader:   bufio.NewReader(strings.NewReader(input)),
		out:      &out,
	}, &out
}

func silencePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}
