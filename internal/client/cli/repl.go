package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

const helpText = `Available commands:
  whoami                    show the local identity
  setuser                   set the local name, phone and photo
  create                    start a session and show its join code
  join <code>               join a session by its 4-digit code
  status                    fetch the session from the server
  connect                   (admin) connect all participants
  cards <id...> [-d <id>]   choose cards to share, first is default
  execute [group name]      (admin) share cards, optionally save a group
  watch [seconds]           follow session updates
  end                       end or leave the session
  stats                     show polling statistics
  exit | quit               leave the program`

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	WhoAmI(ctx context.Context) error
	SetUser(ctx context.Context) error
	Create(ctx context.Context) error
	Join(ctx context.Context, code string) error
	Status(ctx context.Context) error
	Connect(ctx context.Context) error
	Cards(ctx context.Context, args []string) error
	Execute(ctx context.Context, groupName string) error
	Watch(ctx context.Context, args []string) error
	End(ctx context.Context) error
	Stats(ctx context.Context) error
}

// runREPL starts a simple read–eval–print loop for the groupshare CLI.
//
// It reads a line from the provided scanner, parses the first token as the
// command, and dispatches to methods on 'a'. The loop exits on scanner EOF,
// on ctx cancellation, or when the user types "exit" or "quit".
//
// A nil statusFn suppresses the prompt, for scripted input. Errors returned
// by command handlers are printed as alerts and the loop goes on.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		if statusFn != nil {
			printlnFn(fmt.Sprintf("gs %s> ", statusFn()))
		}
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)

		case "whoami":
			err = a.WhoAmI(ctx)

		case "setuser":
			err = a.SetUser(ctx)

		case "create":
			err = a.Create(ctx)

		case "join":
			if len(args) != 1 {
				printlnFn("Usage: join <code>")
				continue
			}
			err = a.Join(ctx, args[0])

		case "status":
			err = a.Status(ctx)

		case "connect":
			err = a.Connect(ctx)

		case "cards":
			err = a.Cards(ctx, args)

		case "execute":
			err = a.Execute(ctx, strings.Join(args, " "))

		case "watch":
			err = a.Watch(ctx, args)

		case "end":
			err = a.End(ctx)

		case "stats":
			err = a.Stats(ctx)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err.Error())
		}
	}
}
