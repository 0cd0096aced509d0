// Package models defines the client-side data model of a group sharing
// session as it travels over the wire and sits in the local cache.
package models

import (
	"slices"
	"time"
)

// SessionStatus is the server-driven lifecycle state of a session.
// The client only observes it.
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusConnected SessionStatus = "connected"
	StatusSharing   SessionStatus = "sharing"
	StatusCompleted SessionStatus = "completed"
	StatusExpired   SessionStatus = "expired"
)

// Rank orders the forward states. Expired ranks above everything because it
// can follow any state; unknown values rank 0.
func (s SessionStatus) Rank() int {
	switch s {
	case StatusWaiting:
		return 1
	case StatusConnected:
		return 2
	case StatusSharing:
		return 3
	case StatusCompleted:
		return 4
	case StatusExpired:
		return 5
	default:
		return 0
	}
}

// IsTerminal reports whether no further transition is expected.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusExpired
}

// CanTransitionTo reports whether moving from s to next respects the
// forward-only rule (staying put is allowed).
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	if next == StatusExpired {
		return true
	}
	if s == StatusExpired {
		return false
	}
	return next.Rank() >= s.Rank()
}

// Session is a time-boxed, code-identified group sharing interaction between
// one admin and zero or more participants.
type Session struct {
	ID           string        `json:"id"`
	Code         string        `json:"code"`
	AdminID      string        `json:"adminId"`
	AdminName    string        `json:"adminName"`
	AdminPhoto   string        `json:"adminPhoto,omitempty"`
	Participants []Participant `json:"participants"`
	CreatedAt    time.Time     `json:"createdAt"`
	ExpiresAt    time.Time     `json:"expiresAt"`
	IsActive     bool          `json:"isActive"`
	Status       SessionStatus `json:"status"`
}

// Participant is one user taking part in a session, admin excluded.
type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Photo    string    `json:"photo,omitempty"`
	Phone    string    `json:"phone,omitempty"`
	IsOnline bool      `json:"isOnline"`
	JoinedAt time.Time `json:"joinedAt"`

	// CardsToShare is only meaningful once set through set-cards.
	CardsToShare  []string `json:"cardsToShare"`
	DefaultCardID string   `json:"defaultCardId,omitempty"`
}

// IsExpired reports whether the session can no longer be used at now.
func (s *Session) IsExpired(now time.Time) bool {
	if s.Status == StatusExpired {
		return true
	}
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// Participant returns a pointer into s.Participants for the given user id.
func (s *Session) Participant(id string) *Participant {
	for i := range s.Participants {
		if s.Participants[i].ID == id {
			return &s.Participants[i]
		}
	}
	return nil
}

// IsAdmin reports whether userID created the session.
func (s *Session) IsAdmin(userID string) bool {
	return s.AdminID != "" && s.AdminID == userID
}

// Clone returns a deep copy, so cached sessions are never shared with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Participants != nil {
		c.Participants = make([]Participant, len(s.Participants))
		for i, p := range s.Participants {
			p.CardsToShare = slices.Clone(p.CardsToShare)
			c.Participants[i] = p
		}
	}
	return &c
}
