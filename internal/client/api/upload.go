package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/viktors2008/mediadrive/internal/client/models"
	"github.com/viktors2008/mediadrive/internal/common"
)

// UploadRequest describes one file transfer. Folder, when set, scopes the
// upload to a parent folder. OnProgress, when set, receives offset
// percentages in [0,100); the raw percentage is reduced by the progress
// buffer and floored at zero, so 100 is only ever reported by the caller on
// explicit completion.
type UploadRequest struct {
	Name       string
	Size       int64
	Body       io.Reader
	Folder     string
	OnProgress func(percent int)
}

// Upload streams the file to the upload endpoint as multipart form data and
// returns the resulting record. Context cancellation is reported as
// common.ErrCancelled, never as a transport failure.
func (c *Client) Upload(ctx context.Context, req UploadRequest) (*models.FileRecord, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", req.Name)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		src := &progressReader{
			r:      req.Body,
			total:  req.Size,
			buffer: c.progressBuffer,
			report: req.OnProgress,
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	path := c.baseURL + "/v1/media/upload"
	if req.Folder != "" {
		path += "?folder=" + url.QueryEscape(req.Folder)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, path, pr)
	if err != nil {
		return nil, fmt.Errorf("building upload request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("upload %s: %w", req.Name, common.ErrCancelled)
		}
		return nil, fmt.Errorf("upload %s: %w", req.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.decodeError(resp)
	}

	var rec models.FileRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decoding upload response: %w", err)
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// offsetProgress converts a raw percentage into the reported one:
// max(0, raw-buffer). The buffer absorbs the latency between "bytes sent"
// and "server processed".
func offsetProgress(raw, buffer int) int {
	if v := raw - buffer; v > 0 {
		return v
	}
	return 0
}

// progressReader counts the bytes flowing to the multipart writer and
// reports offset percentages on every change.
type progressReader struct {
	r      io.Reader
	total  int64
	loaded int64
	buffer int
	last   int
	report func(int)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 && p.report != nil {
		p.loaded += int64(n)
		raw := int(p.loaded * 100 / p.total)
		if raw > 100 {
			raw = 100
		}
		if v := offsetProgress(raw, p.buffer); v != p.last {
			p.last = v
			p.report(v)
		}
	}
	return n, err
}
