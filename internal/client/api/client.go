// Package api implements the typed HTTP client for the drive backend:
// JSON requests with cookie credential attachment, optional response-shape
// validation, and the multipart upload call with progress reporting.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/viktors2008/mediadrive/internal/client/models"
	"github.com/viktors2008/mediadrive/internal/common"
	"github.com/viktors2008/mediadrive/internal/logging"
)

// DefaultProgressBuffer is subtracted from raw upload percentages so the
// reported progress never claims near-completion before the server has
// acknowledged the transfer.
const DefaultProgressBuffer = 10

// Config carries the client's connection settings.
type Config struct {
	BaseURL string
	// Token is the opaque session token attached as a cookie on every call.
	Token string
	// ProgressBuffer overrides DefaultProgressBuffer when positive.
	ProgressBuffer int
	Timeout        time.Duration
}

// Client is the thin typed request layer every other component calls
// through.
type Client struct {
	baseURL        string
	http           *http.Client
	log            logging.Logger
	progressBuffer int
}

// Error is a non-2xx API response, carrying the best-effort message
// extracted from the body.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

func New(cfg Config, log logging.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("creating cookie jar: %w", err)
	}
	if cfg.Token != "" {
		jar.SetCookies(base, []*http.Cookie{{
			Name:  common.SessionCookieName,
			Value: cfg.Token,
			Path:  "/",
		}})
	}

	buffer := cfg.ProgressBuffer
	if buffer <= 0 {
		buffer = DefaultProgressBuffer
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:        strings.TrimRight(base.String(), "/"),
		http:           &http.Client{Jar: jar, Timeout: timeout},
		log:            log.With("component", "api"),
		progressBuffer: buffer,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s %s: %w", method, path, common.ErrCancelled)
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.decodeError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

// decodeError extracts a human-readable message from an error response:
// a JSON "message" or "error" field when present, the raw body when short,
// the HTTP status text otherwise.
func (c *Client) decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			apiErr.Message = payload.Message
			return apiErr
		}
		if payload.Error != "" {
			apiErr.Message = payload.Error
			return apiErr
		}
	}
	if s := strings.TrimSpace(string(body)); s != "" && !strings.HasPrefix(s, "{") && !strings.HasPrefix(s, "<") {
		apiErr.Message = s
	}
	return apiErr
}

// Page is one listing/search page: records plus the opaque cursor for the
// next page (nil when exhausted).
type Page struct {
	Data   []models.FileRecord `json:"data"`
	Cursor *string             `json:"cursor"`
}

// ListPage fetches one page of the media listing. A nil cursor requests the
// first page.
func (c *Client) ListPage(ctx context.Context, cursor *string) (*Page, error) {
	var body any
	if cursor != nil {
		body = map[string]string{"cursor": *cursor}
	}
	var page Page
	if err := c.do(ctx, http.MethodPost, "/v1/pages/media", body, &page); err != nil {
		return nil, err
	}
	if err := models.ValidateFileRecords(page.Data); err != nil {
		return nil, err
	}
	return &page, nil
}

// Search runs a query against the search endpoint and validates the shape of
// every returned record.
func (c *Client) Search(ctx context.Context, query string) ([]models.FileRecord, error) {
	var records []models.FileRecord
	path := "/v1/media/search?query=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
		return nil, err
	}
	if err := models.ValidateFileRecords(records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetFile fetches one record the caller owns or can access.
func (c *Client) GetFile(ctx context.Context, id string) (*models.FileRecord, error) {
	var rec models.FileRecord
	if err := c.do(ctx, http.MethodGet, "/v1/media/file/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// GetPublicFile fetches a record through the public endpoint.
func (c *Client) GetPublicFile(ctx context.Context, id string) (*models.FileRecord, error) {
	var rec models.FileRecord
	if err := c.do(ctx, http.MethodGet, "/v1/media/public/"+url.PathEscape(id), nil, &rec); err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// TogglePrivacy patches the record's privacy flag and returns the updated
// record.
func (c *Client) TogglePrivacy(ctx context.Context, id string, isPrivate bool) (*models.FileRecord, error) {
	var rec models.FileRecord
	body := map[string]bool{"isPrivate": isPrivate}
	if err := c.do(ctx, http.MethodPatch, "/v1/media/privacy/"+url.PathEscape(id), body, &rec); err != nil {
		return nil, err
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteFile removes a record; the public storage id rides along so the
// backend can evict the stored object.
func (c *Client) DeleteFile(ctx context.Context, id, publicID string) error {
	body := map[string]string{"public_id": publicID}
	return c.do(ctx, http.MethodDelete, "/v1/media/delete/"+url.PathEscape(id), body, nil)
}

// Dashboard fetches the summary aggregate.
func (c *Client) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	var dash models.Dashboard
	if err := c.do(ctx, http.MethodGet, "/v1/pages/dashboard", nil, &dash); err != nil {
		return nil, err
	}
	if err := dash.Validate(); err != nil {
		return nil, err
	}
	return &dash, nil
}

// VerifyToken checks that the attached session token is still accepted.
func (c *Client) VerifyToken(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/v1/token/verify", nil, nil)
}

// AddToken asks the backend to mint a secondary-session record for the
// current identity. The returned token is opaque.
func (c *Client) AddToken(ctx context.Context) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	if err := c.do(ctx, http.MethodPost, "/v1/token/add", nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ChangeToken rotates to the session identified by the given opaque token
// and returns the replacement session record.
func (c *Client) ChangeToken(ctx context.Context, token string) (*models.SessionRecord, error) {
	var rec models.SessionRecord
	if err := c.do(ctx, http.MethodPost, "/v1/token/change/"+url.PathEscape(token), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Logout invalidates the current session token server-side.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/token/delete", nil, nil)
}
