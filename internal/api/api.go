// Package api holds the JSON wire types and paths of the group sharing
// endpoints. The client and the reference server both build on it.
package api

import (
	"net/url"

	"github.com/dmitrijs2005/groupshare/internal/client/models"
	"github.com/dmitrijs2005/groupshare/internal/common"
)

const (
	PathCreate     = common.GroupSharingPrefix + "/create"
	PathJoin       = common.GroupSharingPrefix + "/join"
	pathSession    = common.GroupSharingPrefix + "/session/"
	pathConnect    = common.GroupSharingPrefix + "/connect/"
	pathSetCards   = common.GroupSharingPrefix + "/set-cards/"
	pathExecute    = common.GroupSharingPrefix + "/execute/"
	pathEndSession = common.GroupSharingPrefix + "/end/"
)

func SessionPath(id string) string  { return pathSession + url.PathEscape(id) }
func ConnectPath(id string) string  { return pathConnect + url.PathEscape(id) }
func SetCardsPath(id string) string { return pathSetCards + url.PathEscape(id) }
func ExecutePath(id string) string  { return pathExecute + url.PathEscape(id) }
func EndPath(id string) string      { return pathEndSession + url.PathEscape(id) }

type CreateSessionRequest struct {
	Code              string `json:"code" validate:"required,len=4,numeric"`
	AdminID           string `json:"adminId" validate:"required"`
	AdminName         string `json:"adminName"`
	AdminPhone        string `json:"adminPhone,omitempty"`
	AdminPhoto        string `json:"adminPhoto,omitempty"`
	ExpirationMinutes int    `json:"expirationMinutes" validate:"gte=0,lte=1440"`
}

type JoinSessionRequest struct {
	Code      string `json:"code" validate:"required,len=4,numeric"`
	UserID    string `json:"userId" validate:"required"`
	UserName  string `json:"userName"`
	UserPhone string `json:"userPhone,omitempty"`
	UserPhoto string `json:"userPhoto,omitempty"`
}

type ConnectRequest struct {
	AdminID string `json:"adminId" validate:"required"`
}

type SetCardsRequest struct {
	UserID        string   `json:"userId" validate:"required"`
	CardIDs       []string `json:"cardIds" validate:"dive,required"`
	DefaultCardID string   `json:"defaultCardId,omitempty"`
}

type ExecuteRequest struct {
	AdminID string `json:"adminId" validate:"required"`
	// GroupName, when set, asks the server to persist the participants as a
	// named group instead of a one-off peer exchange.
	GroupName string `json:"groupName,omitempty"`
}

type EndRequest struct {
	UserID string `json:"userId" validate:"required"`
}

// SessionResponse is returned by create, join, get and connect.
type SessionResponse struct {
	Success bool            `json:"success"`
	Session *models.Session `json:"session,omitempty"`
	Message string          `json:"message,omitempty"`
}

// StatusResponse is returned by set-cards and end, and by every endpoint
// on failure.
type StatusResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

type ExecuteResponse struct {
	models.ExecuteResult
	Message string `json:"message,omitempty"`
}
