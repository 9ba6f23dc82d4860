// Package cli provides the interactive authkeeper command-line client.
//
// It wires configuration, the local session database and the API client into
// a small REPL:
//   - register / login: prompt for credentials and store the token pair
//   - refresh: rotate the stored refresh token
//   - logout: revoke the stored refresh token and forget the session
//   - status: show who is logged in
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
