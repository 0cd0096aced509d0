// Package devserver is an in-memory implementation of the group sharing
// REST API. It backs the client's integration tests and manual runs; it is
// not meant for production.
package devserver

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dmitrijs2005/groupshare/internal/client/models"
	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrExpired      = errors.New("session has expired")
	ErrForbidden    = errors.New("forbidden")
	ErrCodeInUse    = errors.New("code already in use")
	ErrInvalidState = errors.New("invalid session state")
)

// member is a session user that may declare cards, the admin included.
type member struct {
	id            string
	cardIDs       []string
	defaultCardID string
}

type session struct {
	models.Session
	adminCards member
}

// Store keeps sessions, share history and saved groups in memory. It is
// safe for concurrent use.
type Store struct {
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	byCode   map[string]string
	shared   map[shareKey]struct{}
	groups   map[string][]string
}

// shareKey identifies a card shared from one user to another. History is
// kept across sessions so repeated shares are reported as duplicates.
type shareKey struct {
	from, to, card string
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{
		now:      now,
		sessions: make(map[string]*session),
		byCode:   make(map[string]string),
		shared:   make(map[shareKey]struct{}),
		groups:   make(map[string][]string),
	}
}

// expiredRetention is how long a session stays readable after its expiry,
// so clients still polling it learn it expired before it disappears.
const expiredRetention = 30 * time.Minute

// CreateParams describes a new session.
type CreateParams struct {
	Code       string
	AdminID    string
	AdminName  string
	AdminPhoto string
	TTL        time.Duration
}

// Create opens a waiting session. A code is unique among sessions that are
// neither expired nor completed.
func (s *Store) Create(p CreateParams) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)
	if id, ok := s.byCode[p.Code]; ok {
		if old := s.sessions[id]; old != nil && !s.expireLocked(old, now) && old.Status != models.StatusCompleted {
			return nil, ErrCodeInUse
		}
		delete(s.byCode, p.Code)
	}

	sess := &session{
		Session: models.Session{
			ID:           uuid.NewString(),
			Code:         p.Code,
			AdminID:      p.AdminID,
			AdminName:    p.AdminName,
			AdminPhoto:   p.AdminPhoto,
			Participants: []models.Participant{},
			CreatedAt:    now,
			ExpiresAt:    now.Add(p.TTL),
			IsActive:     true,
			Status:       models.StatusWaiting,
		},
		adminCards: member{id: p.AdminID},
	}
	s.sessions[sess.ID] = sess
	s.byCode[p.Code] = sess.ID

	return sess.Clone(), nil
}

// JoinParams describes a user joining by code.
type JoinParams struct {
	Code  string
	ID    string
	Name  string
	Phone string
	Photo string
}

// Join adds a participant. Joining twice, or as the admin, returns the
// session unchanged. Late joins are refused once sharing has started.
func (s *Store) Join(p JoinParams) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[p.Code]
	if !ok {
		return nil, ErrNotFound
	}
	sess, err := s.liveLocked(id)
	if err != nil {
		return nil, err
	}

	if sess.IsAdmin(p.ID) || sess.Participant(p.ID) != nil {
		return sess.Clone(), nil
	}
	if sess.Status != models.StatusWaiting && sess.Status != models.StatusConnected {
		return nil, fmt.Errorf("%w: session is no longer accepting participants", ErrInvalidState)
	}

	sess.Participants = append(sess.Participants, models.Participant{
		ID:       p.ID,
		Name:     p.Name,
		Phone:    p.Phone,
		Photo:    p.Photo,
		IsOnline: sess.Status == models.StatusConnected,
		JoinedAt: s.now(),
	})
	return sess.Clone(), nil
}

// Get returns the session. A session read past its expiry is reported with
// status expired.
func (s *Store) Get(id string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.expireLocked(sess, s.now())
	return sess.Clone(), nil
}

// Connect marks every participant online and moves the session to
// connected. Only the admin may connect.
func (s *Store) Connect(id, adminID string) (*models.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveLocked(id)
	if err != nil {
		return nil, err
	}
	if !sess.IsAdmin(adminID) {
		return nil, fmt.Errorf("%w: only admin can connect participants", ErrForbidden)
	}
	if sess.Status != models.StatusWaiting && sess.Status != models.StatusConnected {
		return nil, fmt.Errorf("%w: session is %s", ErrInvalidState, sess.Status)
	}

	for i := range sess.Participants {
		sess.Participants[i].IsOnline = true
	}
	sess.Status = models.StatusConnected
	return sess.Clone(), nil
}

// SetCards replaces the cards userID shares. The default card must be one
// of them; an empty default means the first card.
func (s *Store) SetCards(id, userID string, cardIDs []string, defaultCardID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveLocked(id)
	if err != nil {
		return err
	}
	if sess.Status != models.StatusWaiting && sess.Status != models.StatusConnected {
		return fmt.Errorf("%w: session is not accepting cards", ErrInvalidState)
	}
	if defaultCardID == "" && len(cardIDs) > 0 {
		defaultCardID = cardIDs[0]
	}
	if defaultCardID != "" && !slices.Contains(cardIDs, defaultCardID) {
		return fmt.Errorf("%w: default card is not among the cards", ErrInvalidState)
	}

	cards := slices.Clone(cardIDs)
	switch {
	case sess.IsAdmin(userID):
		sess.adminCards.cardIDs = cards
		sess.adminCards.defaultCardID = defaultCardID
	case sess.Participant(userID) != nil:
		p := sess.Participant(userID)
		p.CardsToShare = cards
		p.DefaultCardID = defaultCardID
	default:
		return fmt.Errorf("%w: not a member of this session", ErrForbidden)
	}
	return nil
}

// Execute fans every member's cards out to every other member and
// completes the session. Shares seen before, in any session, come back
// flagged as duplicates. A non-empty groupName saves the members as a group.
func (s *Store) Execute(id, adminID, groupName string) (*models.ExecuteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, err := s.liveLocked(id)
	if err != nil {
		return nil, err
	}
	if !sess.IsAdmin(adminID) {
		return nil, fmt.Errorf("%w: only admin can execute sharing", ErrForbidden)
	}
	if sess.Status != models.StatusConnected {
		return nil, fmt.Errorf("%w: participants are not connected", ErrInvalidState)
	}
	sess.Status = models.StatusSharing

	members := sess.members()
	now := s.now()
	res := &models.ExecuteResult{
		Success:    true,
		Results:    []models.CardShare{},
		Duplicates: []models.CardShare{},
	}
	for _, from := range members {
		for _, to := range members {
			if from.id == to.id {
				continue
			}
			for _, card := range from.cardIDs {
				key := shareKey{from: from.id, to: to.id, card: card}
				_, dup := s.shared[key]
				share := models.CardShare{
					ID:              uuid.NewString(),
					FromUserID:      from.id,
					ToUserID:        to.id,
					CardID:          card,
					SessionID:       sess.ID,
					SharedAt:        now,
					IsAlreadyShared: dup,
				}
				res.Results = append(res.Results, share)
				if dup {
					res.Duplicates = append(res.Duplicates, share)
					continue
				}
				s.shared[key] = struct{}{}
			}
		}
	}

	res.Summary = models.ShareSummary{
		TotalShares:     len(res.Results),
		NewShares:       len(res.Results) - len(res.Duplicates),
		DuplicateShares: len(res.Duplicates),
		Participants:    len(members),
		GroupName:       groupName,
	}
	if groupName != "" {
		ids := make([]string, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.id)
		}
		s.groups[groupName] = ids
	}

	sess.Status = models.StatusCompleted
	return res, nil
}

// End deletes the session when the admin ends it. A participant ending it
// only leaves.
func (s *Store) End(id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}

	if sess.IsAdmin(userID) {
		delete(s.sessions, id)
		if s.byCode[sess.Code] == id {
			delete(s.byCode, sess.Code)
		}
		return nil
	}

	i := slices.IndexFunc(sess.Participants, func(p models.Participant) bool { return p.ID == userID })
	if i < 0 {
		return fmt.Errorf("%w: not a member of this session", ErrForbidden)
	}
	sess.Participants = slices.Delete(sess.Participants, i, i+1)
	return nil
}

// Group returns the members saved under name.
func (s *Store) Group(name string) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, ok := s.groups[name]
	return slices.Clone(ids), ok
}

// Len returns the number of stored sessions, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// liveLocked returns a session that exists and has not expired.
func (s *Store) liveLocked(id string) (*session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	if s.expireLocked(sess, s.now()) {
		return nil, ErrExpired
	}
	return sess, nil
}

// Sweep drops sessions whose expiry is older than expiredRetention,
// completed ones included, and reports how many it dropped. Share history
// and saved groups are kept.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *Store) sweepLocked(now time.Time) int {
	n := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.ExpiresAt) <= expiredRetention {
			continue
		}
		delete(s.sessions, id)
		if s.byCode[sess.Code] == id {
			delete(s.byCode, sess.Code)
		}
		n++
	}
	return n
}

// expireLocked moves a session past its expiry to expired and reports
// whether it is expired.
func (s *Store) expireLocked(sess *session, now time.Time) bool {
	if sess.Status == models.StatusExpired {
		return true
	}
	if sess.Status == models.StatusCompleted || !now.After(sess.ExpiresAt) {
		return false
	}
	sess.Status = models.StatusExpired
	sess.IsActive = false
	return true
}

func (s *session) members() []member {
	out := make([]member, 0, len(s.Participants)+1)
	out = append(out, s.adminCards)
	for _, p := range s.Participants {
		out = append(out, member{id: p.ID, cardIDs: p.CardsToShare, defaultCardID: p.DefaultCardID})
	}
	return out
}
