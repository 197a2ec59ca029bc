// Package cli provides the interactive chat client.
//
// It wires configuration, the local message cache, the REST client and the
// conversation session manager behind a small REPL. Typical flow: log in,
// open a vehicle conversation, exchange messages and files, and submit
// support tickets.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
// See App and runREPL for details.
package cli
