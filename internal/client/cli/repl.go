package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface is the command surface the REPL drives. App satisfies it; tests
// provide a stub.
type execIface interface {
	isLoggedIn(ctx context.Context) bool
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Refresh(ctx context.Context) error
	Logout(ctx context.Context) error
	Status(ctx context.Context) error
}

// runREPL reads commands line by line and dispatches them to a. It returns on
// EOF, on "exit"/"quit" or when ctx is canceled. Handler errors are reported
// by the handlers themselves.
func runREPL(ctx context.Context, a execIface, statusFn func(context.Context) string, reader *bufio.Reader, w io.Writer) {
	for ctx.Err() == nil {
		fmt.Fprintf(w, "authkeeper %s> ", statusFn(ctx))

		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch cmd := parts[0]; cmd {
		case "help":
			if a.isLoggedIn(ctx) {
				fmt.Fprintln(w, "Available commands: status, refresh, logout, login, exit")
			} else {
				fmt.Fprintln(w, "Available commands: register, login, exit")
			}
		case "register":
			_ = a.Register(ctx)
		case "login":
			_ = a.Login(ctx)
		case "refresh":
			_ = a.Refresh(ctx)
		case "logout":
			_ = a.Logout(ctx)
		case "status":
			_ = a.Status(ctx)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}
