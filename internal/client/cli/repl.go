package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// execIface defines the command surface the REPL dispatches to.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Home(ctx context.Context) error
	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error
	WhoAmI(ctx context.Context) error
	Products(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Add(ctx context.Context) error
	Edit(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
}

const (
	helpAnonymous = "Available commands: home, register, login, products, exit"
	helpLoggedIn  = "Available commands: home, products [--category c] [skip] [limit], show <id>, add, edit <id>, delete <id>, whoami, logout, exit"
)

// runREPL starts a simple read–eval–print loop for the storefront CLI.
//
// It reads a line from reader, parses the first token as the command, and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user. The loop exits on EOF, when ctx is done, or when the user types
// "exit" or "quit".
//
// The prompt shows the current status (from statusFn). Errors returned by
// command handlers are not printed here; handlers report their own failures.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader, w io.Writer) {
	for {
		if ctx.Err() != nil {
			return
		}
		fmt.Fprintf(w, "storefront %s> ", statusFn())

		line, err := readLine(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				fmt.Fprintln(w, "input error:", err)
			}
			fmt.Fprintln(w)
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Fprintln(w, helpLoggedIn)
			} else {
				fmt.Fprintln(w, helpAnonymous)
			}

		case "home":
			_ = a.Home(ctx)

		case "register":
			_ = a.Register(ctx)

		case "login":
			_ = a.Login(ctx)

		case "logout":
			_ = a.Logout(ctx)

		case "whoami":
			_ = a.WhoAmI(ctx)

		case "l", "products":
			_ = a.Products(ctx, args)

		case "show":
			_ = a.Show(ctx, args)

		case "add":
			_ = a.Add(ctx)

		case "edit":
			_ = a.Edit(ctx, args)

		case "delete":
			_ = a.Delete(ctx, args)

		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return

		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}
