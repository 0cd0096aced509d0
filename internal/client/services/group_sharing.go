// Package services contains the application services of the groupshare
// client. This file defines GroupSharingService: the client-side proxy and
// cache of one group sharing session, with its polling loop.
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/groupshare/internal/api"
	"github.com/dmitrijs2005/groupshare/internal/client/client"
	"github.com/dmitrijs2005/groupshare/internal/client/identity"
	"github.com/dmitrijs2005/groupshare/internal/client/models"
	"github.com/dmitrijs2005/groupshare/internal/client/poller"
	"github.com/dmitrijs2005/groupshare/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/groupshare/internal/common"
	"github.com/dmitrijs2005/groupshare/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
)

// ErrNoActiveSession is returned by operations that need a session when
// none is cached. It matches client.ErrSessionNotFound.
var ErrNoActiveSession = fmt.Errorf("no active session: %w", client.ErrSessionNotFound)

// GroupSharingService defines the group sharing operations for the UI.
//
// Contract:
//   - CreateGroupSession / JoinGroupSession: obtain a session from the server,
//     cache it (memory and device store) and start polling.
//   - GetSessionStatus: one poll; client.ErrSessionNotFound means the session
//     is gone, other errors are transient.
//   - ConnectAllParticipants, SetCardsToShare, ExecuteCardSharing: act on the
//     cached session.
//   - EndSession: tear down remotely (best effort) and locally (always).
//
// All methods are safe for concurrent use and honor context cancellation.
type GroupSharingService interface {
	GenerateGroupCode() string
	CreateGroupSession(ctx context.Context) (*CreateResult, error)
	JoinGroupSession(ctx context.Context, code string) (*models.Session, error)
	GetSessionStatus(ctx context.Context) (*models.Session, error)
	GetCurrentSession() *models.Session
	ConnectAllParticipants(ctx context.Context) error
	SetCardsToShare(ctx context.Context, cardIDs []string, defaultCardID string) error
	ExecuteCardSharing(ctx context.Context, groupName string) (*models.ExecuteResult, error)
	EndSession(ctx context.Context) error
	Restore(ctx context.Context) (*models.Session, error)
	Subscribe() (<-chan poller.Update, func())
	Identity(ctx context.Context) (models.Identity, error)
	IsPolling() bool
	Close()
}

// CreateResult is returned by CreateGroupSession. Code is the one to show
// to other users; the server's value wins over the generated one.
type CreateResult struct {
	Session *models.Session
	Code    string
}

// GenerateGroupCode returns a random 4-digit join code in 1000..9999.
func GenerateGroupCode() string {
	return strconv.Itoa(1000 + rand.IntN(9000))
}

type Option func(*groupSharingService)

func WithLogger(l logging.Logger) Option {
	return func(s *groupSharingService) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *groupSharingService) { s.now = now }
}

func WithPollInterval(d time.Duration) Option {
	return func(s *groupSharingService) { s.pollInterval = d }
}

// WithSessionTTL sets the expiration requested on create. It is sent in
// whole minutes.
func WithSessionTTL(d time.Duration) Option {
	return func(s *groupSharingService) { s.ttl = d }
}

func WithCodeGenerator(gen func() string) Option {
	return func(s *groupSharingService) { s.codeGen = gen }
}

// WithMetrics registers the polling metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *groupSharingService) { s.registerer = reg }
}

// groupSharingService owns one session slot. Every poll and local write
// carries a sequence number; a poll result is applied only if nothing newer
// reached the cache since the poll was issued.
type groupSharingService struct {
	client       client.Client
	repo         metadata.Repository
	identity     *identity.Resolver
	logger       logging.Logger
	now          func() time.Time
	ttl          time.Duration
	pollInterval time.Duration
	codeGen      func() string
	registerer   prometheus.Registerer

	poller     *poller.Poller
	pollCtx    context.Context
	stopPolls  context.CancelFunc
	flight     singleflight.Group
	fetchSeq   atomic.Uint64
	mu         sync.Mutex
	current    *models.Session
	epoch      uint64
	appliedSeq uint64
}

// NewGroupSharingService wires a service to the remote API and the device
// store.
func NewGroupSharingService(c client.Client, repo metadata.Repository, opts ...Option) GroupSharingService {
	s := &groupSharingService{
		client:       c,
		repo:         repo,
		logger:       logging.Nop(),
		now:          time.Now,
		ttl:          common.DefaultSessionTTLMinutes * time.Minute,
		pollInterval: poller.DefaultInterval,
		codeGen:      GenerateGroupCode,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("module", "group_sharing")
	s.identity = identity.NewResolver(repo, s.logger, s.now)
	s.pollCtx, s.stopPolls = context.WithCancel(context.Background())
	s.poller = poller.New(s.GetSessionStatus,
		poller.WithInterval(s.pollInterval),
		poller.WithLogger(s.logger),
		poller.WithClock(s.now),
		poller.WithMetrics(poller.NewMetrics(s.registerer)),
	)
	return s
}

func (s *groupSharingService) GenerateGroupCode() string {
	return s.codeGen()
}

func (s *groupSharingService) Identity(ctx context.Context) (models.Identity, error) {
	return s.identity.Resolve(ctx)
}

// CreateGroupSession generates a join code, asks the server for a session
// that expires after the configured TTL, and makes it the current one,
// replacing any previous session without merging.
func (s *groupSharingService) CreateGroupSession(ctx context.Context) (*CreateResult, error) {
	code := s.codeGen()

	me, err := s.identity.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	sess, err := s.client.CreateSession(ctx, api.CreateSessionRequest{
		Code:              code,
		AdminID:           me.ID,
		AdminName:         me.Name,
		AdminPhone:        me.Phone,
		AdminPhoto:        me.Photo,
		ExpirationMinutes: int(s.ttl / time.Minute),
	})
	if err != nil {
		s.logger.Error(ctx, "create session failed", "error", err)
		return nil, fmt.Errorf("create session: %w", err)
	}
	if sess.Code == "" {
		sess.Code = code
	}

	s.replaceSession(ctx, sess)
	s.logger.Info(ctx, "session created", "session_id", sess.ID, "code", sess.Code)

	return &CreateResult{Session: sess.Clone(), Code: sess.Code}, nil
}

// JoinGroupSession joins the session identified by code. The code is not
// validated here; client.ErrSessionNotFound and client.ErrSessionExpired tell
// an unknown code from a stale one.
func (s *groupSharingService) JoinGroupSession(ctx context.Context, code string) (*models.Session, error) {
	code = strings.TrimSpace(code)

	me, err := s.identity.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	sess, err := s.client.JoinSession(ctx, api.JoinSessionRequest{
		Code:      code,
		UserID:    me.ID,
		UserName:  me.Name,
		UserPhone: me.Phone,
		UserPhoto: me.Photo,
	})
	if err != nil {
		s.logger.Error(ctx, "join session failed", "code", code, "error", err)
		return nil, fmt.Errorf("join session %s: %w", code, err)
	}

	s.replaceSession(ctx, sess)
	s.logger.Info(ctx, "session joined", "session_id", sess.ID, "participants", len(sess.Participants))

	return sess.Clone(), nil
}

// GetSessionStatus fetches the current session from the server. Concurrent
// callers share one request, which runs detached from their contexts so
// that one caller giving up does not fail the others; it is bounded by the
// client's request timeout. A gone or expired session is dropped from the
// cache before the error is returned.
func (s *groupSharingService) GetSessionStatus(ctx context.Context) (*models.Session, error) {
	s.mu.Lock()
	cur, epoch := s.current, s.epoch
	s.mu.Unlock()

	if cur == nil {
		return nil, ErrNoActiveSession
	}

	key := cur.ID + "/" + strconv.FormatUint(epoch, 10)
	fetchCtx := context.WithoutCancel(ctx)
	ch := s.flight.DoChan(key, func() (any, error) {
		seq := s.fetchSeq.Add(1)

		fetched, err := s.client.GetSession(fetchCtx, cur.ID)
		switch {
		case errors.Is(err, client.ErrSessionNotFound), errors.Is(err, client.ErrSessionExpired):
			s.logger.Info(fetchCtx, "session is gone", "session_id", cur.ID, "reason", err)
			s.clearIfEpoch(fetchCtx, epoch)
			return nil, err
		case err != nil:
			s.logger.Warn(fetchCtx, "session status unavailable", "session_id", cur.ID, "error", err)
			return nil, err
		}

		if fetched.IsExpired(s.now()) {
			s.logger.Info(fetchCtx, "session expired", "session_id", cur.ID)
			s.clearIfEpoch(fetchCtx, epoch)
			return nil, fmt.Errorf("session %s: %w", cur.ID, client.ErrSessionExpired)
		}

		return s.applyFetched(fetchCtx, seq, epoch, fetched), nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.Session).Clone(), nil
	}
}

func (s *groupSharingService) GetCurrentSession() *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current.Clone()
}

func (s *groupSharingService) IsPolling() bool {
	return s.poller.Running()
}

// ConnectAllParticipants moves the session to connected. Only the admin may
// do this; the server enforces it.
func (s *groupSharingService) ConnectAllParticipants(ctx context.Context) error {
	cur, me, err := s.sessionAndIdentity(ctx)
	if err != nil {
		return err
	}

	updated, err := s.client.ConnectParticipants(ctx, cur.ID, api.ConnectRequest{AdminID: me.ID})
	if err != nil {
		s.logger.Error(ctx, "connect participants failed", "session_id", cur.ID, "error", err)
		return fmt.Errorf("connect participants: %w", err)
	}

	s.applyLocal(ctx, cur.ID, func(*models.Session) *models.Session { return updated })
	s.logger.Info(ctx, "participants connected", "session_id", cur.ID, "status", updated.Status)
	return nil
}

// SetCardsToShare declares the current user's cards. The first card is the
// default unless defaultCardID names another one of them. On success the
// cached participant is patched right away instead of waiting for a poll.
func (s *groupSharingService) SetCardsToShare(ctx context.Context, cardIDs []string, defaultCardID string) error {
	cardIDs = slices.Clone(cardIDs)
	if defaultCardID == "" && len(cardIDs) > 0 {
		defaultCardID = cardIDs[0]
	}
	if defaultCardID != "" && !slices.Contains(cardIDs, defaultCardID) {
		return fmt.Errorf("%w: default card %q is not among the cards to share", common.ErrorValidation, defaultCardID)
	}

	cur, me, err := s.sessionAndIdentity(ctx)
	if err != nil {
		return err
	}

	err = s.client.SetCards(ctx, cur.ID, api.SetCardsRequest{
		UserID:        me.ID,
		CardIDs:       cardIDs,
		DefaultCardID: defaultCardID,
	})
	if err != nil {
		s.logger.Error(ctx, "set cards failed", "session_id", cur.ID, "error", err)
		return fmt.Errorf("set cards to share: %w", err)
	}

	patched := s.applyLocal(ctx, cur.ID, func(next *models.Session) *models.Session {
		p := next.Participant(me.ID)
		if p == nil {
			return nil
		}
		p.CardsToShare = cardIDs
		p.DefaultCardID = defaultCardID
		return next
	})
	if !patched {
		s.logger.Debug(ctx, "no cached participant to patch", "session_id", cur.ID, "user_id", me.ID)
	}
	return nil
}

// ExecuteCardSharing asks the server to fan every participant's cards out to
// every other participant. A non-empty groupName also saves the group.
func (s *groupSharingService) ExecuteCardSharing(ctx context.Context, groupName string) (*models.ExecuteResult, error) {
	cur, me, err := s.sessionAndIdentity(ctx)
	if err != nil {
		return nil, err
	}

	res, err := s.client.Execute(ctx, cur.ID, api.ExecuteRequest{
		AdminID:   me.ID,
		GroupName: strings.TrimSpace(groupName),
	})
	if err != nil {
		s.logger.Error(ctx, "execute sharing failed", "session_id", cur.ID, "error", err)
		return nil, fmt.Errorf("execute card sharing: %w", err)
	}

	s.logger.Info(ctx, "card sharing executed",
		"session_id", cur.ID,
		"total", res.Summary.TotalShares,
		"new", res.Summary.NewShares,
		"duplicates", res.Summary.DuplicateShares,
	)
	return res, nil
}

// EndSession ends the session on the server, then stops polling and clears
// the cache whatever the server said. It is safe to call repeatedly.
func (s *groupSharingService) EndSession(ctx context.Context) error {
	s.mu.Lock()
	cur := s.current
	s.mu.Unlock()

	if cur != nil {
		me, err := s.identity.Resolve(ctx)
		if err != nil {
			s.logger.Warn(ctx, "resolve identity for end failed", "error", err)
		}
		if err := s.client.EndSession(ctx, cur.ID, api.EndRequest{UserID: me.ID}); err != nil {
			s.logger.Warn(ctx, "remote end failed, clearing locally anyway", "session_id", cur.ID, "error", err)
		}
	}

	s.poller.Stop()

	s.mu.Lock()
	s.current = nil
	s.epoch++
	s.appliedSeq = s.fetchSeq.Load()
	err := s.repo.Delete(ctx, common.KeyCurrentSession)
	s.mu.Unlock()

	if cur != nil {
		s.logger.Info(ctx, "session ended", "session_id", cur.ID)
		s.poller.Notify(poller.Update{Kind: poller.NotFound, Err: ErrNoActiveSession})
	}
	if err != nil {
		return fmt.Errorf("clear cached session: %w", err)
	}
	return nil
}

// Restore reloads the session cached in the device store, e.g. after an app
// restart, and resumes polling. Expired sessions are discarded; a completed
// one is polled again until the server drops it.
func (s *groupSharingService) Restore(ctx context.Context) (*models.Session, error) {
	raw, err := s.repo.Get(ctx, common.KeyCurrentSession)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	if raw == nil {
		return nil, nil
	}

	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil || sess.ID == "" {
		s.logger.Warn(ctx, "discarding unreadable cached session", "error", err)
		return nil, s.dropCached(ctx)
	}
	if sess.IsExpired(s.now()) {
		s.logger.Info(ctx, "discarding expired cached session", "session_id", sess.ID, "status", sess.Status)
		return nil, s.dropCached(ctx)
	}

	s.replaceSession(ctx, &sess)
	s.logger.Info(ctx, "session restored", "session_id", sess.ID)
	return sess.Clone(), nil
}

func (s *groupSharingService) Subscribe() (<-chan poller.Update, func()) {
	return s.poller.Subscribe()
}

// Close stops polling and closes every subscription.
func (s *groupSharingService) Close() {
	s.stopPolls()
	s.poller.Close()
}

func (s *groupSharingService) dropCached(ctx context.Context) error {
	if err := s.repo.Delete(ctx, common.KeyCurrentSession); err != nil {
		return fmt.Errorf("clear cached session: %w", err)
	}
	return nil
}

func (s *groupSharingService) sessionAndIdentity(ctx context.Context) (*models.Session, models.Identity, error) {
	s.mu.Lock()
	cur := s.current.Clone()
	s.mu.Unlock()

	if cur == nil {
		return nil, models.Identity{}, ErrNoActiveSession
	}

	me, err := s.identity.Resolve(ctx)
	if err != nil {
		return nil, models.Identity{}, fmt.Errorf("resolve identity: %w", err)
	}
	return cur, me, nil
}

// replaceSession makes sess the current session and (re)starts polling.
// The poller is stopped first, without holding mu, because its loop may be
// waiting for mu inside GetSessionStatus.
func (s *groupSharingService) replaceSession(ctx context.Context, sess *models.Session) {
	s.poller.Stop()

	s.mu.Lock()
	s.current = sess.Clone()
	s.epoch++
	s.appliedSeq = s.fetchSeq.Load()
	s.persistLocked(ctx)
	snapshot := s.current.Clone()
	s.mu.Unlock()

	s.poller.Reset()
	s.poller.Notify(poller.Update{Kind: poller.Found, Session: snapshot})
	s.poller.Start(s.pollCtx)
}

// applyFetched stores a polled session unless the cache moved on since the
// poll was issued, and returns what the cache now holds for that session.
func (s *groupSharingService) applyFetched(ctx context.Context, seq, epoch uint64, fetched *models.Session) *models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch || s.current == nil || s.current.ID != fetched.ID {
		return fetched
	}
	if seq <= s.appliedSeq {
		s.logger.Debug(ctx, "dropping stale poll result", "session_id", fetched.ID, "seq", seq, "applied", s.appliedSeq)
		return s.current.Clone()
	}
	if !s.current.Status.CanTransitionTo(fetched.Status) {
		s.logger.Warn(ctx, "server moved session backwards", "from", s.current.Status, "to", fetched.Status)
	}

	s.current = fetched.Clone()
	s.appliedSeq = seq
	s.persistLocked(ctx)
	return fetched
}

// applyLocal replaces the current session with mutate's result, if the
// current session is still sessionID and mutate returns non-nil. Polls
// issued before the write can no longer overwrite it.
func (s *groupSharingService) applyLocal(ctx context.Context, sessionID string, mutate func(next *models.Session) *models.Session) bool {
	s.mu.Lock()
	if s.current == nil || s.current.ID != sessionID {
		s.mu.Unlock()
		return false
	}
	next := mutate(s.current.Clone())
	if next == nil {
		s.mu.Unlock()
		return false
	}
	s.current = next.Clone()
	s.appliedSeq = s.fetchSeq.Load()
	s.persistLocked(ctx)
	snapshot := s.current.Clone()
	s.mu.Unlock()

	s.poller.Notify(poller.Update{Kind: poller.Found, Session: snapshot})
	return true
}

// clearIfEpoch drops the current session if it is still the one a poll was
// issued for.
func (s *groupSharingService) clearIfEpoch(ctx context.Context, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if epoch != s.epoch {
		return
	}
	s.current = nil
	s.epoch++
	s.appliedSeq = s.fetchSeq.Load()
	if err := s.repo.Delete(ctx, common.KeyCurrentSession); err != nil {
		s.logger.Warn(ctx, "could not clear cached session", "error", err)
	}
}

// persistLocked writes the current session to the device store. Failures
// only cost a restore after restart, so they are logged.
func (s *groupSharingService) persistLocked(ctx context.Context) {
	if err := metadata.SetJSON(ctx, s.repo, common.KeyCurrentSession, s.current); err != nil {
		s.logger.Warn(ctx, "could not persist session", "session_id", s.current.ID, "error", err)
	}
}
