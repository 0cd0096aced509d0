// Package identity resolves who the local user is from the device store.
//
// The store may hold a full "user" object written at login, or only the
// loose keys older app versions wrote (currentUserId, user_name, user_phone,
// user_photo). Resolve merges both, object first, and invents a pseudo id
// when nothing is known so a session can still be created or joined.
package identity

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/groupshare/internal/client/models"
	"github.com/dmitrijs2005/groupshare/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/groupshare/internal/common"
	"github.com/dmitrijs2005/groupshare/internal/dbx"
	"github.com/dmitrijs2005/groupshare/internal/logging"
)

// DefaultName is used when no name is stored anywhere.
const DefaultName = "User"

// storedUser accepts the field spellings seen in stored user objects.
type storedUser struct {
	ID        looseString `json:"id"`
	MongoID   looseString `json:"_id"`
	UserID    looseString `json:"userId"`
	Name      looseString `json:"name"`
	FullName  looseString `json:"fullName"`
	FirstName looseString `json:"firstName"`
	LastName  looseString `json:"lastName"`
	Phone     looseString `json:"phone"`
	PhoneNum  looseString `json:"phoneNumber"`
	Photo     looseString `json:"photo"`
	Profile   looseString `json:"profileImage"`
	Avatar    looseString `json:"avatar"`
}

func (u storedUser) identity() models.Identity {
	name := firstNonEmpty(string(u.Name), string(u.FullName), strings.TrimSpace(string(u.FirstName)+" "+string(u.LastName)))
	return models.Identity{
		ID:    firstNonEmpty(string(u.ID), string(u.MongoID), string(u.UserID)),
		Name:  name,
		Phone: firstNonEmpty(string(u.Phone), string(u.PhoneNum)),
		Photo: firstNonEmpty(string(u.Photo), string(u.Profile), string(u.Avatar)),
	}
}

// looseString takes a JSON string or number as text. Other values, null
// included, read as empty instead of failing the whole object.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	d := json.NewDecoder(bytes.NewReader(b))
	d.UseNumber()
	var v any
	if err := d.Decode(&v); err != nil {
		return err
	}
	switch v := v.(type) {
	case string:
		*s = looseString(v)
	case json.Number:
		*s = looseString(v.String())
	default:
		*s = ""
	}
	return nil
}

// Resolver reads the local identity. It is safe for concurrent use.
type Resolver struct {
	repo   metadata.Repository
	logger logging.Logger
	now    func() time.Time
}

func NewResolver(repo metadata.Repository, logger logging.Logger, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{repo: repo, logger: logger.With("module", "identity"), now: now}
}

// Resolve returns the local identity. Only storage failures are errors; a
// malformed user object is logged and skipped.
func (r *Resolver) Resolve(ctx context.Context) (models.Identity, error) {
	var id models.Identity

	raw, err := r.repo.Get(ctx, common.KeyUser)
	if err != nil {
		return id, fmt.Errorf("read stored user: %w", err)
	}
	if raw != nil {
		var u storedUser
		if err := json.Unmarshal(raw, &u); err != nil {
			r.logger.Warn(ctx, "ignoring malformed stored user", "error", err)
		} else {
			id = u.identity()
		}
	}

	fallbacks := []struct {
		key string
		dst *string
	}{
		{common.KeyCurrentUserID, &id.ID},
		{common.KeyUserName, &id.Name},
		{common.KeyUserPhone, &id.Phone},
		{common.KeyUserPhoto, &id.Photo},
	}
	for _, f := range fallbacks {
		if *f.dst != "" {
			continue
		}
		v, err := metadata.GetString(ctx, r.repo, f.key)
		if err != nil {
			return id, fmt.Errorf("read %s: %w", f.key, err)
		}
		*f.dst = strings.TrimSpace(v)
	}

	if id.ID == "" {
		id.ID = "user_" + strconv.FormatInt(r.now().UnixMilli(), 10)
		r.logger.Debug(ctx, "no stored user id, using pseudo id", "user_id", id.ID)
		// keep the pseudo id stable so the same user can later end the session
		if err := r.repo.Set(ctx, common.KeyCurrentUserID, []byte(id.ID)); err != nil {
			r.logger.Warn(ctx, "could not persist pseudo user id", "error", err)
		}
	}
	if id.Name == "" {
		id.Name = DefaultName
	}

	return id, nil
}

// Save stores id as the user object and as the loose keys, atomically.
func Save(ctx context.Context, db *sql.DB, id models.Identity) error {
	return dbx.WithTx(ctx, db, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)

		if err := metadata.SetJSON(ctx, repo, common.KeyUser, id); err != nil {
			return err
		}
		for key, value := range map[string]string{
			common.KeyCurrentUserID: id.ID,
			common.KeyUserName:      id.Name,
			common.KeyUserPhone:     id.Phone,
			common.KeyUserPhoto:     id.Photo,
		} {
			if err := repo.Set(ctx, key, []byte(value)); err != nil {
				return err
			}
		}
		return nil
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
