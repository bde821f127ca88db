// Package realtime bridges the backend's push channel into local state.
// Inbound frames are translated into registry, dashboard and cache
// mutations; locally-originated mutations are forwarded outward through
// Emit. The bridge never polls.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/viktors2008/mediadrive/internal/client/identity"
	"github.com/viktors2008/mediadrive/internal/client/models"
	"github.com/viktors2008/mediadrive/internal/client/registry"
	"github.com/viktors2008/mediadrive/internal/logging"
)

// Frame is the wire format of one realtime message in either direction.
type Frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// Evictor is the slice of the cache the bridge needs.
type Evictor interface {
	Delete(ctx context.Context, id string) error
}

// DashboardStore is the slice of the dashboard aggregate the bridge mutates.
type DashboardStore interface {
	ApplyUpload(size int64)
	ApplyDelete(rec models.FileRecord)
}

type togglePayload struct {
	ID      string `json:"id"`
	Private bool   `json:"private"`
}

// Options configures the callbacks the bridge invokes for viewer-facing
// effects. Both are optional.
type Options struct {
	// OnReload is called when a record the viewer does not own turns
	// non-private and the view has to be refetched in full.
	OnReload func(id string)
	// OnPrivacy is called after a per-resource privacy change has been
	// applied locally, so the displayed flag can refresh.
	OnPrivacy func(id string, private bool)
}

// Bridge holds one websocket connection per authenticated identity. An
// identity change means Close and a fresh Connect, never a reused
// connection.
type Bridge struct {
	endpoint  string
	who       *identity.Identity
	registry  *registry.Registry
	dashboard DashboardStore
	cache     Evictor
	opts      Options
	log       logging.Logger

	writeMu sync.Mutex
	conn    *websocket.Conn
	done    chan struct{}
}

func NewBridge(endpoint string, who *identity.Identity, reg *registry.Registry, dash DashboardStore, cache Evictor, log logging.Logger, opts Options) *Bridge {
	return &Bridge{
		endpoint:  endpoint,
		who:       who,
		registry:  reg,
		dashboard: dash,
		cache:     cache,
		opts:      opts,
		log:       log.With("component", "realtime"),
	}
}

// Connect dials the realtime endpoint with the identity claims in the query
// string and starts the read loop.
func (b *Bridge) Connect(ctx context.Context) error {
	u, err := url.Parse(b.endpoint)
	if err != nil {
		return fmt.Errorf("parsing realtime endpoint: %w", err)
	}
	q := u.Query()
	q.Set("id", b.who.UserID)
	q.Set("email", b.who.Email)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dialing realtime endpoint: %w", err)
	}

	b.conn = conn
	b.done = make(chan struct{})
	go b.readLoop(ctx)
	b.log.Info(ctx, "realtime connected", "user_id", b.who.UserID)
	return nil
}

func (b *Bridge) readLoop(ctx context.Context) {
	defer close(b.done)
	for {
		var frame Frame
		if err := b.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.log.Warn(ctx, "realtime connection lost", "error", err)
			}
			return
		}
		b.dispatch(ctx, frame)
	}
}

// dispatch applies one inbound frame. Handler failures are logged and
// swallowed; a malformed payload must never take the connection down.
func (b *Bridge) dispatch(ctx context.Context, frame Frame) {
	var err error
	switch {
	case frame.Event == "upload":
		err = b.handleUpload(frame.Payload)
	case frame.Event == "delete":
		err = b.handleDelete(frame.Payload)
	case frame.Event == "toggle":
		err = b.handleToggle(frame.Payload)
	case strings.HasPrefix(frame.Event, "media-"):
		err = b.handleMedia(ctx, strings.TrimPrefix(frame.Event, "media-"), frame.Payload)
	default:
		b.log.Debug(ctx, "ignoring unknown realtime event", "event", frame.Event)
		return
	}
	if err != nil {
		b.log.Warn(ctx, "realtime event dropped", "event", frame.Event, "error", err)
	}
}

func (b *Bridge) handleUpload(payload json.RawMessage) error {
	var rec models.FileRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return fmt.Errorf("decoding upload payload: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("rejecting upload payload: %w", err)
	}
	b.registry.AddOne(rec)
	b.dashboard.ApplyUpload(rec.Size)
	return nil
}

func (b *Bridge) handleDelete(payload json.RawMessage) error {
	var rec models.FileRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return fmt.Errorf("decoding delete payload: %w", err)
	}
	b.registry.Remove(rec.ID)
	b.dashboard.ApplyDelete(rec)
	return nil
}

func (b *Bridge) handleToggle(payload json.RawMessage) error {
	var p togglePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("decoding toggle payload: %w", err)
	}
	if p.ID == "" {
		return fmt.Errorf("toggle payload carries no id")
	}
	b.registry.TakeFile(p.ID, func(rec models.FileRecord) {
		rec.IsPrivate = p.Private
		b.registry.AddOne(rec)
	})
	return nil
}

// handleMedia reacts to a per-resource privacy change. The cached copy is
// always evicted; what happens to the displayed record depends on whether
// the viewer owns it. When a record someone else owns turns non-private the
// viewer reloads to refetch it in full; every other change just refreshes
// the displayed flag.
func (b *Bridge) handleMedia(ctx context.Context, id string, payload json.RawMessage) error {
	var private bool
	if err := json.Unmarshal(payload, &private); err != nil {
		return fmt.Errorf("decoding media payload: %w", err)
	}

	if err := b.cache.Delete(ctx, id); err != nil {
		b.log.Warn(ctx, "evicting cached record", "id", id, "error", err)
	}

	var owner string
	for _, rec := range b.registry.Files() {
		if rec.ID == id {
			owner = rec.UserID
			break
		}
	}

	if !private && owner != b.who.UserID {
		if b.opts.OnReload != nil {
			b.opts.OnReload(id)
		}
		return nil
	}

	b.registry.TakeFile(id, func(rec models.FileRecord) {
		rec.IsPrivate = private
		b.registry.AddOne(rec)
	})
	if b.opts.OnPrivacy != nil {
		b.opts.OnPrivacy(id, private)
	}
	return nil
}

// Emit forwards a locally-originated mutation outward. Implements the
// uploader's broadcast contract.
func (b *Bridge) Emit(event string, payload any) error {
	if b.conn == nil {
		return fmt.Errorf("realtime connection not established")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", event, err)
	}

	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.conn.WriteJSON(Frame{Event: event, Payload: raw}); err != nil {
		return fmt.Errorf("writing %s frame: %w", event, err)
	}
	return nil
}

// Close tears the connection down and waits for the read loop to exit.
func (b *Bridge) Close() error {
	if b.conn == nil {
		return nil
	}
	err := b.conn.Close()
	<-b.done
	b.conn = nil
	return err
}
