package cli

import (
	"bufio"
	"context"
	"fmt"
)

// getStatus renders the prompt status: the current session's code and
// state, or nothing without a session.
func (a *App) getStatus() string {
	s := a.service.GetCurrentSession()
	if s == nil {
		return ""
	}
	return fmt.Sprintf("(%s %s)", s.Code, s.Status)
}

// Root runs the REPL on a.reader. The prompt is only shown when standard
// input is a terminal.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to groupshare (type 'help' for commands)")

	var statusFn func() string
	if stdinIsTerminal() {
		statusFn = a.getStatus
	}
	runREPL(ctx, a, statusFn, bufio.NewScanner(a.reader))
}

// userError is a failure already phrased for the user. The cause stays
// reachable through errors.Is and errors.As.
type userError struct {
	msg string
	err error
}

func (e *userError) Error() string { return e.msg }
func (e *userError) Unwrap() error { return e.err }

func alert(err error) error {
	if err == nil {
		return nil
	}
	return &userError{msg: alertMessage(err), err: err}
}
