package app

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it
// with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the loop needs to operate.
// The real App type satisfies this interface; tests can provide a
// lightweight stub.
type execIface interface {
	list(ctx context.Context)
	more(ctx context.Context)
	search(ctx context.Context, args []string)
	upload(ctx context.Context, args []string)
	tasks(ctx context.Context)
	watch(ctx context.Context)
	retry(ctx context.Context, args []string)
	cancel(ctx context.Context, args []string)
	get(ctx context.Context, args []string)
	toggle(ctx context.Context, args []string)
	delete(ctx context.Context, args []string)
	stats(ctx context.Context)
	listSessions(ctx context.Context)
	addSession(ctx context.Context)
	switchSession(ctx context.Context, args []string)
	logout(ctx context.Context)
}

// runLoop reads a line, parses the first token as the command and
// dispatches to methods on 'a'. Unknown commands are reported back to the
// user; the loop exits on scanner EOF or "exit"/"quit". Command handlers
// log their own errors so the loop stays focused on I/O.
func runLoop(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("drive %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn("Available commands: list, more, search <query>, upload <files...>, tasks, watch, retry <id>, cancel <id>, get <id>, toggle <id>, delete <id>, stats, sessions, addsession, switch <n>, logout, exit")
		case "list", "l":
			a.list(ctx)
		case "more":
			a.more(ctx)
		case "search":
			a.search(ctx, args)
		case "upload":
			a.upload(ctx, args)
		case "tasks":
			a.tasks(ctx)
		case "watch":
			a.watch(ctx)
		case "retry":
			a.retry(ctx, args)
		case "cancel":
			a.cancel(ctx, args)
		case "get":
			a.get(ctx, args)
		case "toggle":
			a.toggle(ctx, args)
		case "delete":
			a.delete(ctx, args)
		case "stats":
			a.stats(ctx)
		case "sessions":
			a.listSessions(ctx)
		case "addsession":
			a.addSession(ctx)
		case "switch":
			a.switchSession(ctx, args)
		case "logout":
			a.logout(ctx)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn(fmt.Sprintf("Unknown command: %s (type 'help')", cmd))
		}
	}
}

func (a *App) getStatus() string {
	return fmt.Sprintf("(%s)", a.who.Email)
}

// Root runs the interactive command loop on stdin.
func (a *App) Root(ctx context.Context) {
	printlnFn("Welcome to the drive client (type 'help' for commands)")
	runLoop(ctx, a, a.getStatus, bufio.NewScanner(os.Stdin))
}
