package client

import (
	"context"

	"github.com/dmitrijs2005/groupshare/internal/api"
	"github.com/dmitrijs2005/groupshare/internal/client/models"
)

// Client is the remote group sharing API as the client sees it.
type Client interface {
	CreateSession(ctx context.Context, req api.CreateSessionRequest) (*models.Session, error)
	JoinSession(ctx context.Context, req api.JoinSessionRequest) (*models.Session, error)
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	ConnectParticipants(ctx context.Context, sessionID string, req api.ConnectRequest) (*models.Session, error)
	SetCards(ctx context.Context, sessionID string, req api.SetCardsRequest) error
	Execute(ctx context.Context, sessionID string, req api.ExecuteRequest) (*models.ExecuteResult, error)
	EndSession(ctx context.Context, sessionID string, req api.EndRequest) error
	Close() error
}
