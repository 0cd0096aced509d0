// Package common contains constants and sentinel errors shared by the
// groupshare client and the reference server.
package common

// Local storage keys. They mirror the keys the mobile app keeps in its
// key/value store so a shared database file stays readable by both.
const (
	KeyCurrentSession = "currentGroupSession"
	KeyUser           = "user"
	KeyCurrentUserID  = "currentUserId"
	KeyUserName       = "user_name"
	KeyUserPhone      = "user_phone"
	KeyUserPhoto      = "user_photo"
)

// API path prefix of the group sharing endpoints.
const GroupSharingPrefix = "/group-sharing"

// DefaultSessionTTLMinutes is the expiration the client asks for on create.
const DefaultSessionTTLMinutes = 10
