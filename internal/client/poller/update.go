package poller

import (
	"errors"
	"time"

	"github.com/dmitrijs2005/groupshare/internal/client/client"
	"github.com/dmitrijs2005/groupshare/internal/client/models"
)

// Kind tags the outcome of one poll.
type Kind int

const (
	// Found: the server returned the session.
	Found Kind = iota + 1
	// NotFound: the session is gone (ended, unknown or expired). Terminal.
	NotFound
	// TransientError: the poll failed in a way a later poll may not.
	TransientError
)

func (k Kind) String() string {
	switch k {
	case Found:
		return "found"
	case NotFound:
		return "not_found"
	case TransientError:
		return "transient_error"
	default:
		return "unknown"
	}
}

// Update is what subscribers receive after every poll.
type Update struct {
	Kind    Kind
	Session *models.Session
	Err     error
	At      time.Time
}

// Terminal reports whether no further poll will follow this update. Only a
// session the server no longer has ends polling; a completed session is
// still polled so its end is noticed.
func (u Update) Terminal() bool {
	return u.Kind == NotFound
}

// Classify turns a fetch result into a tagged update.
func Classify(s *models.Session, err error) Update {
	switch {
	case err == nil && s != nil:
		return Update{Kind: Found, Session: s}
	case errors.Is(err, client.ErrSessionNotFound), errors.Is(err, client.ErrSessionExpired):
		return Update{Kind: NotFound, Err: err}
	case err == nil:
		return Update{Kind: TransientError, Err: errors.New("empty poll result")}
	default:
		return Update{Kind: TransientError, Err: err}
	}
}
