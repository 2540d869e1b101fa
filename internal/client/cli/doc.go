// Package cli provides the interactive storefront command-line client.
//
// It wires configuration, the local session database, the HTTP stack and an
// interactive REPL. Every screen of the storefront is a route: product
// commands navigate to their route and pass the route guard first, and a
// route refused for lack of a session is resumed after login.
//
// Commands:
//   - home, login, register, logout, whoami
//   - products [--category c] [skip] [limit], show <id>
//   - add, edit <id>, delete <id>
//   - exit | quit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
