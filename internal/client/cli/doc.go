// Package cli provides the interactive groupshare command-line client.
//
// It wires configuration, the local session cache, the REST API client and
// the group sharing service, and runs a REPL on top of them. Typical flow:
// the admin creates a session and reads out the join code, participants
// join with it and pick their cards, the admin connects everyone and
// executes the sharing, and someone ends the session.
//
// Join codes are validated here, before any network call. Session updates
// reach the terminal through the service's subscription (see Watch and
// StartSessionWatcher); the CLI never runs a polling loop of its own.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
