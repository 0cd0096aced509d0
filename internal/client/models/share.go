package models

import "time"

// CardShare records one card delivered from one user to another by an
// execute step.
type CardShare struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"fromUserId"`
	ToUserID   string    `json:"toUserId"`
	CardID     string    `json:"cardId"`
	SessionID  string    `json:"sessionId"`
	SharedAt   time.Time `json:"sharedAt"`

	// IsAlreadyShared is set by the server when the same card had already
	// been delivered to the same recipient.
	IsAlreadyShared bool `json:"isAlreadyShared"`
}

type ShareSummary struct {
	TotalShares     int    `json:"totalShares"`
	NewShares       int    `json:"newShares"`
	DuplicateShares int    `json:"duplicateShares"`
	Participants    int    `json:"participants"`
	GroupName       string `json:"groupName,omitempty"`
}

// ExecuteResult is the outcome of the execute step.
type ExecuteResult struct {
	Success    bool         `json:"success"`
	Results    []CardShare  `json:"results"`
	Duplicates []CardShare  `json:"duplicates"`
	Summary    ShareSummary `json:"summary"`
}

// Identity is the local user as resolved from the device store.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	Photo string `json:"photo,omitempty"`
}
