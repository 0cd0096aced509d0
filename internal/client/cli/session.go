package cli

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/groupshare/internal/client/models"
	"github.com/dmitrijs2005/groupshare/internal/client/poller"
	"github.com/dmitrijs2005/groupshare/internal/client/services"
	"github.com/dmitrijs2005/groupshare/internal/common"
)

const (
	joinCodeRule        = "required,len=4,numeric"
	defaultWatchSeconds = 30
)

// ValidateJoinCode checks that code is exactly four digits.
func (a *App) ValidateJoinCode(code string) error {
	if err := a.validate.Var(code, joinCodeRule); err != nil {
		return &userError{
			msg: "Join code must be exactly 4 digits",
			err: fmt.Errorf("%w: join code %q: %w", common.ErrorValidation, code, err),
		}
	}
	return nil
}

// Create starts a new session as admin and prints its join code.
func (a *App) Create(ctx context.Context) error {
	res, err := a.service.CreateGroupSession(ctx)
	if err != nil {
		return alert(err)
	}
	a.printf("Session created. Join code: %s\n", res.Code)
	if !res.Session.ExpiresAt.IsZero() {
		a.printf("Expires at %s\n", res.Session.ExpiresAt.Local().Format(time.Kitchen))
	}
	return nil
}

// Join validates code locally and joins the session it names.
func (a *App) Join(ctx context.Context, code string) error {
	if err := a.ValidateJoinCode(code); err != nil {
		return err
	}

	s, err := a.service.JoinGroupSession(ctx, code)
	if err != nil {
		return &userError{msg: joinAlert(err), err: err}
	}
	a.printf("Joined session %s hosted by %s\n", s.Code, s.AdminName)
	return nil
}

// Status polls the server once and prints the session.
func (a *App) Status(ctx context.Context) error {
	s, err := a.service.GetSessionStatus(ctx)
	if err != nil {
		return alert(err)
	}
	a.printSession(s)
	return nil
}

func (a *App) Connect(ctx context.Context) error {
	if err := a.service.ConnectAllParticipants(ctx); err != nil {
		return alert(err)
	}
	a.println("All participants connected")
	return nil
}

// Cards parses "<id...> [-d <id>]" and declares the cards to share.
func (a *App) Cards(ctx context.Context, args []string) error {
	ids, def, err := parseCardArgs(args)
	if err != nil {
		return err
	}
	if err := a.service.SetCardsToShare(ctx, ids, def); err != nil {
		return alert(err)
	}
	if def == "" {
		def = ids[0]
	}
	a.printf("Sharing %d card(s), default %s\n", len(ids), def)
	return nil
}

func parseCardArgs(args []string) (ids []string, def string, err error) {
	usage := &userError{msg: "Usage: cards <id...> [-d <id>]", err: common.ErrorValidation}
	for i := 0; i < len(args); i++ {
		if args[i] == "-d" {
			if i+1 >= len(args) || def != "" {
				return nil, "", usage
			}
			def = args[i+1]
			i++
			continue
		}
		if !slices.Contains(ids, args[i]) {
			ids = append(ids, args[i])
		}
	}
	if len(ids) == 0 {
		return nil, "", usage
	}
	return ids, def, nil
}

// Execute shares every participant's cards with everyone else and prints
// the summary.
func (a *App) Execute(ctx context.Context, groupName string) error {
	res, err := a.service.ExecuteCardSharing(ctx, groupName)
	if err != nil {
		return alert(err)
	}
	sum := res.Summary
	a.printf("Shared %d card(s) among %d participant(s): %d new, %d already shared\n",
		sum.TotalShares, sum.Participants, sum.NewShares, sum.DuplicateShares)
	if sum.GroupName != "" {
		a.printf("Saved group %q\n", sum.GroupName)
	}
	return nil
}

// End ends the session (admin) or leaves it (participant). The local
// session is gone afterwards even if the server could not be reached.
func (a *App) End(ctx context.Context) error {
	hadSession := a.service.GetCurrentSession() != nil
	if err := a.service.EndSession(ctx); err != nil {
		return alert(err)
	}
	if hadSession {
		a.println("Session ended")
	} else {
		a.println("No active session")
	}
	return nil
}

// Watch prints session updates for the given number of seconds, or until
// the session ends. It reads the shared subscription and never polls.
func (a *App) Watch(ctx context.Context, args []string) error {
	seconds := defaultWatchSeconds
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return &userError{msg: "Usage: watch [seconds]", err: common.ErrorValidation}
		}
		seconds = n
	}
	if a.service.GetCurrentSession() == nil {
		return alert(services.ErrNoActiveSession)
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(seconds)*time.Second)
	defer cancel()

	updates, unsubscribe := a.service.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			a.println(formatUpdate(u))
			if u.Terminal() {
				return nil
			}
		}
	}
}

func formatUpdate(u poller.Update) string {
	at := u.At.Local().Format(time.TimeOnly)
	switch u.Kind {
	case poller.Found:
		s := u.Session
		ready := 0
		for _, p := range s.Participants {
			if len(p.CardsToShare) > 0 {
				ready++
			}
		}
		return fmt.Sprintf("[%s] %s: %d participant(s), %d with cards", at, s.Status, len(s.Participants), ready)
	case poller.NotFound:
		return fmt.Sprintf("[%s] session is gone: %s", at, alertMessage(u.Err))
	default:
		return fmt.Sprintf("[%s] update failed: %s", at, alertMessage(u.Err))
	}
}

func (a *App) printSession(s *models.Session) {
	a.printf("Session %s  status: %s\n", s.Code, s.Status)
	a.printf("Admin: %s\n", s.AdminName)
	if !s.ExpiresAt.IsZero() {
		a.printf("Expires at %s\n", s.ExpiresAt.Local().Format(time.Kitchen))
	}
	if len(s.Participants) == 0 {
		a.println("No participants yet")
		return
	}
	a.println("Participants:")
	for _, p := range s.Participants {
		cards := "no cards"
		if len(p.CardsToShare) > 0 {
			cards = strings.Join(p.CardsToShare, ", ")
		}
		a.printf("  - %s: %s\n", p.Name, cards)
	}
}
