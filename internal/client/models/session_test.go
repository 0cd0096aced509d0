package models

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to SessionStatus
		want     bool
	}{
		{StatusWaiting, StatusConnected, true},
		{StatusConnected, StatusSharing, true},
		{StatusSharing, StatusCompleted, true},
		{StatusWaiting, StatusWaiting, true},
		{StatusConnected, StatusWaiting, false},
		{StatusCompleted, StatusSharing, false},
		{StatusWaiting, StatusExpired, true},
		{StatusCompleted, StatusExpired, true},
		{StatusExpired, StatusWaiting, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSessionStatus_IsTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusExpired.IsTerminal())
	assert.False(t, StatusWaiting.IsTerminal())
	assert.False(t, StatusSharing.IsTerminal())
}

func TestSession_IsExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	s := &Session{Status: StatusWaiting, ExpiresAt: now.Add(time.Minute)}
	assert.False(t, s.IsExpired(now))
	assert.True(t, s.IsExpired(now.Add(2*time.Minute)))

	s.Status = StatusExpired
	assert.True(t, s.IsExpired(now))

	assert.False(t, (&Session{Status: StatusWaiting}).IsExpired(now), "zero ExpiresAt never expires by time")
}

func TestSession_CloneIsDeep(t *testing.T) {
	orig := &Session{
		ID:   "s1",
		Code: "4821",
		Participants: []Participant{
			{ID: "u2", Name: "Bob", CardsToShare: []string{"c1"}},
		},
	}

	c := orig.Clone()
	require.Empty(t, cmp.Diff(orig, c))

	c.Participants[0].CardsToShare[0] = "changed"
	c.Participants[0].Name = "Eve"
	assert.Equal(t, "c1", orig.Participants[0].CardsToShare[0])
	assert.Equal(t, "Bob", orig.Participants[0].Name)

	var nilSession *Session
	assert.Nil(t, nilSession.Clone())
}

func TestSession_ParticipantAndAdmin(t *testing.T) {
	s := &Session{AdminID: "u1", Participants: []Participant{{ID: "u2"}, {ID: "u3"}}}

	p := s.Participant("u3")
	require.NotNil(t, p)
	p.DefaultCardID = "cardA"
	assert.Equal(t, "cardA", s.Participants[1].DefaultCardID, "Participant returns a pointer into the slice")

	assert.Nil(t, s.Participant("nobody"))
	assert.True(t, s.IsAdmin("u1"))
	assert.False(t, s.IsAdmin("u2"))
	assert.False(t, (&Session{}).IsAdmin(""))
}
