package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/viktors2008/mediadrive/internal/client/models"
	"github.com/viktors2008/mediadrive/internal/client/uploader"
	"github.com/viktors2008/mediadrive/internal/common"
)

func (a *App) list(ctx context.Context) {
	files := a.registry.Files()
	if len(files) == 0 {
		printlnFn("No files loaded.")
		return
	}
	for _, f := range files {
		printlnFn(formatRecord(f))
	}
	if a.registry.Cursor() != nil {
		printlnFn("(more available, type 'more')")
	}
}

func (a *App) more(ctx context.Context) {
	n, err := a.media.LoadPage(ctx)
	if err != nil {
		a.log.Error(ctx, "loading page", "error", err)
		return
	}
	printlnFn(fmt.Sprintf("Loaded %d more file(s).", n))
}

func (a *App) search(ctx context.Context, args []string) {
	if len(args) == 0 {
		printlnFn("Usage: search <query>")
		return
	}
	records, err := a.media.Search(ctx, args[0])
	if err != nil {
		a.log.Error(ctx, "searching", "error", err)
		return
	}
	for _, f := range records {
		printlnFn(formatRecord(f))
	}
	printlnFn(fmt.Sprintf("%d result(s).", len(records)))
}

func (a *App) upload(ctx context.Context, args []string) {
	if len(args) == 0 {
		printlnFn("Usage: upload <files...>")
		return
	}
	handles := make([]uploader.FileHandle, 0, len(args))
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			printlnFn(fmt.Sprintf("Skipping %s: %v", path, err))
			continue
		}
		p := path
		handles = append(handles, uploader.FileHandle{
			Name: filepath.Base(p),
			Size: info.Size(),
			Open: func() (io.ReadCloser, error) { return os.Open(p) },
		})
	}
	if len(handles) == 0 {
		return
	}
	a.engine.Enqueue(handles)
	printlnFn(fmt.Sprintf("Enqueued %d file(s).", len(handles)))
}

func (a *App) tasks(ctx context.Context) {
	pending, failed, completed := a.engine.Tasks()
	printTasks("Pending", pending)
	printTasks("Failed", failed)
	printTasks("Completed", completed)
}

// watch prints the queue every time it changes and returns once the pending
// section drains.
func (a *App) watch(ctx context.Context) {
	updates := make(chan struct{}, 1)
	unsubscribe := a.engine.Subscribe(func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		pending, failed, completed := a.engine.Tasks()
		printTasks("Pending", pending)
		printTasks("Failed", failed)
		printTasks("Completed", completed)
		if len(pending) == 0 {
			return
		}
		select {
		case <-updates:
		case <-time.After(time.Second):
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) retry(ctx context.Context, args []string) {
	if len(args) == 0 {
		printlnFn("Usage: retry <id>")
		return
	}
	if err := a.engine.RetryTask(args[0]); err != nil {
		a.log.Error(ctx, "retrying task", "error", err)
	}
}

func (a *App) cancel(ctx context.Context, args []string) {
	if len(args) == 0 {
		printlnFn("Usage: cancel <id>")
		return
	}
	if err := a.engine.CancelTask(args[0]); err != nil {
		a.log.Error(ctx, "cancelling task", "error", err)
	}
}

func (a *App) get(ctx context.Context, args []string) {
	if len(args) == 0 {
		printlnFn("Usage: get <id>")
		return
	}
	rec, err := a.media.Get(ctx, args[0])
	if err != nil {
		a.log.Error(ctx, "fetching file", "error", err)
		return
	}
	printlnFn(formatRecord(*rec))
}

func (a *App) toggle(ctx context.Context, args []string) {
	if len(args) == 0 {
		printlnFn("Usage: toggle <id>")
		return
	}
	current, err := a.media.Get(ctx, args[0])
	if err != nil {
		a.log.Error(ctx, "fetching file", "error", err)
		return
	}
	rec, err := a.media.TogglePrivacy(ctx, current.ID, !current.IsPrivate)
	if err != nil {
		a.log.Error(ctx, "toggling privacy", "error", err)
		return
	}
	printlnFn(formatRecord(*rec))
}

func (a *App) delete(ctx context.Context, args []string) {
	if len(args) == 0 {
		printlnFn("Usage: delete <id>")
		return
	}
	rec, err := a.media.Get(ctx, args[0])
	if err != nil {
		a.log.Error(ctx, "fetching file", "error", err)
		return
	}
	if err := a.media.Delete(ctx, *rec); err != nil {
		a.log.Error(ctx, "deleting file", "error", err)
		return
	}
	printlnFn(fmt.Sprintf("Deleted %s.", rec.Name))
}

func (a *App) stats(ctx context.Context) {
	dash := a.dashboard.Snapshot()
	if dash == nil {
		printlnFn("Dashboard not loaded.")
		return
	}
	printlnFn(fmt.Sprintf("Storage used: %.1f KB", dash.Storage))
	printlnFn(fmt.Sprintf("Files this week: %d", dash.FilesThisWeek))
	printlnFn(fmt.Sprintf("Folders this week: %d", dash.FoldersThisWeek))
}

func (a *App) listSessions(ctx context.Context) {
	rows, err := a.sessions.Sessions(ctx)
	if err != nil {
		a.log.Error(ctx, "listing sessions", "error", err)
		return
	}
	if len(rows) == 0 {
		printlnFn("No stored sessions.")
		return
	}
	for _, s := range rows {
		printlnFn(fmt.Sprintf("%d  %s", s.ID, s.Email))
	}
}

func (a *App) addSession(ctx context.Context) {
	rec, err := a.sessions.AddSession(ctx)
	if err != nil {
		a.log.Error(ctx, "adding session", "error", err)
		return
	}
	printlnFn(fmt.Sprintf("Stored session %d for %s.", rec.ID, rec.Email))
}

func (a *App) switchSession(ctx context.Context, args []string) {
	if len(args) == 0 {
		printlnFn("Usage: switch <session id>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		printlnFn("Usage: switch <session id>")
		return
	}
	s, err := a.sessions.Session(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			printlnFn("No such session.")
			return
		}
		a.log.Error(ctx, "looking up session", "error", err)
		return
	}
	if _, err := a.sessions.SwitchSession(ctx, *s); err != nil {
		a.log.Error(ctx, "switching session", "error", err)
		return
	}
	printlnFn(fmt.Sprintf("Switched to %s. Restart with the new token to reconnect.", s.Email))
}

func (a *App) logout(ctx context.Context) {
	if err := a.sessions.Logout(ctx); err != nil {
		a.log.Error(ctx, "logging out", "error", err)
		return
	}
	printlnFn("Logged out.")
}

func formatRecord(f models.FileRecord) string {
	privacy := "public"
	if f.IsPrivate {
		privacy = "private"
	}
	return fmt.Sprintf("%s  %-30s %8d bytes  %s", f.ID, f.Name, f.Size, privacy)
}

func printTasks(label string, views []uploader.TaskView) {
	printlnFn(fmt.Sprintf("%s: %d", label, len(views)))
	for _, v := range views {
		line := fmt.Sprintf("  %s  %-30s %3d%%", v.ID, v.Name, v.Progress)
		if v.Error != "" {
			line += "  " + v.Error
		}
		printlnFn(line)
	}
}
