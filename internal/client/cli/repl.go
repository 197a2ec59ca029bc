package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/auctionchat/internal/chat/upload"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. The real App
// satisfies it; tests provide a stub.
type execIface interface {
	inConversation() bool
	Open(ctx context.Context, args []string) error
	Close(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Send(ctx context.Context, args []string) error
	Photo(ctx context.Context, args []string) error
	File(ctx context.Context, args []string) error
	Read(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Pin(ctx context.Context, args []string) error
	Retry(ctx context.Context, args []string) error
	Discard(ctx context.Context, args []string) error
	FAQ(ctx context.Context, args []string) error
	Ticket(ctx context.Context, args []string) error
}

// runREPL reads commands from reader until EOF or "quit".
//
//	Anywhere:
//	  - help              show available commands
//	  - open <vehicleId>  open a vehicle conversation
//	  - faq               show help-center entries
//	  - ticket            submit a support ticket
//	  - exit | quit       leave the program
//
//	In a conversation:
//	  - show                  list messages
//	  - send <text>           send a message
//	  - photo [caption]       share a photo or video
//	  - file [caption]        share a document
//	  - read <id>|all         mark messages as read
//	  - delete <id>           delete an own message
//	  - pin                   toggle the pin flag
//	  - retry <id>            re-send a failed message
//	  - discard <id>          drop a failed message
//	  - close                 leave the conversation
//
// Command errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("chat %s> ", statusFn()))
		line, err := readLine(reader)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var run func(context.Context, []string) error
		switch cmd {
		case "help":
			if a.inConversation() {
				printlnFn("Available commands: show, send, photo, file, read, delete, pin, retry, discard, close, faq, ticket, exit")
			} else {
				printlnFn("Available commands: open, faq, ticket, exit")
			}
			continue

		case "open":
			run = a.Open
		case "close":
			run = a.Close
		case "show", "ls":
			run = a.Show
		case "send", "s":
			run = a.Send
		case "photo":
			run = a.Photo
		case "file":
			run = a.File
		case "read":
			run = a.Read
		case "delete", "rm":
			run = a.Delete
		case "pin":
			run = a.Pin
		case "retry":
			run = a.Retry
		case "discard":
			run = a.Discard
		case "faq":
			run = a.FAQ
		case "ticket":
			run = a.Ticket

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
			continue
		}

		report(run(ctx, args))
	}
}

func report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, upload.ErrCancelled):
		printlnFn("Cancelled")
	default:
		printlnFn("Error:", err)
	}
}
