package cli

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/groupshare/internal/client/client"
	"github.com/dmitrijs2005/groupshare/internal/client/services"
	"github.com/dmitrijs2005/groupshare/internal/common"
)

const genericFailure = "Something went wrong, please try again"

// alertMessage turns a service error into the line shown to the user:
// the server's own message when there is one, otherwise a generic text.
func alertMessage(err error) string {
	var apiErr *client.APIError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, services.ErrNoActiveSession):
		return "No active session, create or join one first"
	case errors.Is(err, client.ErrSessionExpired):
		return "Session expired"
	case errors.Is(err, client.ErrSessionNotFound):
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return apiErr.Message
		}
		return "Session not found"
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.Is(err, client.ErrUnavailable):
		return "Server unavailable, please try again later"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "Request cancelled"
	case errors.Is(err, common.ErrorValidation):
		return err.Error()
	default:
		return genericFailure
	}
}

// joinAlert is alertMessage for the join command, where an unknown session
// means the user typed a wrong code.
func joinAlert(err error) string {
	if errors.Is(err, client.ErrSessionNotFound) && !errors.Is(err, client.ErrSessionExpired) {
		return "Invalid join code"
	}
	return alertMessage(err)
}
