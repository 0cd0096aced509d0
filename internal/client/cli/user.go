package cli

import (
	"context"

	"github.com/dmitrijs2005/groupshare/internal/client/identity"
)

// getTextWithDefault is an indirection used to facilitate testing.
var getTextWithDefault = GetTextWithDefault

// WhoAmI prints the identity sessions are created and joined with.
func (a *App) WhoAmI(ctx context.Context) error {
	me, err := a.service.Identity(ctx)
	if err != nil {
		return alert(err)
	}
	a.printf("%s (id %s)\n", me.Name, me.ID)
	if me.Phone != "" {
		a.printf("Phone: %s\n", me.Phone)
	}
	return nil
}

// SetUser prompts for name, phone and photo and stores them as the local
// user. The user id is kept.
func (a *App) SetUser(ctx context.Context) error {
	me, err := a.service.Identity(ctx)
	if err != nil {
		return alert(err)
	}

	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Name", &me.Name},
		{"Phone", &me.Phone},
		{"Photo URL", &me.Photo},
	}
	for _, f := range fields {
		v, err := getTextWithDefault(a.reader, f.prompt, *f.dst, a.out)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	if err := identity.Save(ctx, a.db, me); err != nil {
		a.logger.Error(ctx, "save identity failed", "error", err)
		return alert(err)
	}
	a.println("Saved")
	return nil
}
