// Package api is the REST client for the bill tracker backend.
//
// Every call runs under its own deadline and goes through a single
// http.Client whose transport is wrapped by a Tracker, so callers can show
// network activity without instrumenting each call.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"billtrack/internal/core"
	applog "billtrack/internal/log"

	"github.com/google/uuid"
)

const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultOCRTimeout     = 5 * time.Minute

	// HeaderRequestID correlates client calls with server logs.
	HeaderRequestID = "X-Request-ID"
)

// Config configures a Client.
type Config struct {
	BaseURL        string
	RequestTimeout time.Duration
	// OCRTimeout bounds uploads and OCR runs, which can take minutes.
	OCRTimeout time.Duration
	Transport  http.RoundTripper
	Logger     *applog.Logger
}

// Client talks to the /api endpoints.
type Client struct {
	base       *url.URL
	http       *http.Client
	tracker    *Tracker
	timeout    time.Duration
	ocrTimeout time.Duration
	logger     *applog.Logger
}

// ChartData is the server-side chart feed.
type ChartData struct {
	Labels     []string               `json:"labels"`
	Totals     []core.Number          `json:"totals"`
	ByCategory map[string]core.Number `json:"byCategory"`
}

// ReportRequest overrides the rows and summary the server would use.
type ReportRequest struct {
	Rows    []core.Row         `json:"rows,omitempty"`
	Summary *core.AuditSummary `json:"summary,omitempty"`
}

// Report is a downloaded PDF report.
type Report struct {
	Name string
	Data []byte
}

// New creates a Client. BaseURL must be an absolute http(s) URL.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", cfg.BaseURL)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.OCRTimeout <= 0 {
		cfg.OCRTimeout = DefaultOCRTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	tracker := NewTracker(cfg.Transport)
	return &Client{
		base:       base,
		http:       &http.Client{Transport: tracker},
		tracker:    tracker,
		timeout:    cfg.RequestTimeout,
		ocrTimeout: cfg.OCRTimeout,
		logger:     logger.WithComponent(applog.ComponentAPI),
	}, nil
}

// Tracker exposes the in-flight request counter.
func (c *Client) Tracker() *Tracker { return c.tracker }

// ListRows fetches every row.
func (c *Client) ListRows(ctx context.Context) ([]core.Row, error) {
	var rows []core.Row
	if err := c.doJSON(ctx, "list rows", http.MethodGet, "/api/rows", nil, c.timeout, http.StatusOK, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// GetRow fetches a single row by id.
func (c *Client) GetRow(ctx context.Context, id string) (core.Row, error) {
	var row core.Row
	err := c.doJSON(ctx, "get row", http.MethodGet, "/api/rows/"+url.PathEscape(id), nil, c.timeout, http.StatusOK, &row)
	return row, err
}

// CreateRow posts a partial row and returns the server's row.
func (c *Client) CreateRow(ctx context.Context, p core.RowPatch) (core.Row, error) {
	var row core.Row
	err := c.doJSON(ctx, "create row", http.MethodPost, "/api/rows", p, c.timeout, http.StatusCreated, &row)
	return row, err
}

// UpdateRow applies a patch; the server recomputes the total.
func (c *Client) UpdateRow(ctx context.Context, id string, p core.RowPatch) (core.Row, error) {
	var row core.Row
	err := c.doJSON(ctx, "update row", http.MethodPut, "/api/rows/"+url.PathEscape(id), p, c.timeout, http.StatusOK, &row)
	return row, err
}

// DeleteRow succeeds only on 204 No Content.
func (c *Client) DeleteRow(ctx context.Context, id string) error {
	return c.doJSON(ctx, "delete row", http.MethodDelete, "/api/rows/"+url.PathEscape(id), nil, c.timeout, http.StatusNoContent, nil)
}

// UploadFile sends a PDF as multipart field "file" and returns the row with
// its OCR fields.
func (c *Client) UploadFile(ctx context.Context, id, name string, data []byte) (core.Row, error) {
	const op = "upload file"
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		return core.Row{}, fmt.Errorf("%s: %w", op, err)
	}
	if _, err := fw.Write(data); err != nil {
		return core.Row{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := mw.Close(); err != nil {
		return core.Row{}, fmt.Errorf("%s: %w", op, err)
	}

	var row core.Row
	err = c.do(ctx, op, http.MethodPost, "/api/upload/"+url.PathEscape(id), &buf, mw.FormDataContentType(), c.ocrTimeout,
		func(resp *http.Response) error {
			if resp.StatusCode != http.StatusOK {
				return readStatusError(op, resp)
			}
			return decode(op, resp.Body, &row)
		})
	return row, err
}

// RunOCR re-runs text extraction on the stored PDF.
func (c *Client) RunOCR(ctx context.Context, id string) (core.Row, error) {
	var row core.Row
	err := c.doJSON(ctx, "run ocr", http.MethodPost, "/api/rows/"+url.PathEscape(id)+"/ocr", nil, c.ocrTimeout, http.StatusOK, &row)
	return row, err
}

// ListPrices returns a row's price history.
func (c *Client) ListPrices(ctx context.Context, id string) ([]core.PriceEntry, error) {
	var entries []core.PriceEntry
	if err := c.doJSON(ctx, "list prices", http.MethodGet, pricesPath(id), nil, c.timeout, http.StatusOK, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// AddPrice appends an entry to a row's price history.
func (c *Client) AddPrice(ctx context.Context, id string, e core.PriceEntry) (core.PriceEntry, error) {
	var out core.PriceEntry
	err := c.doJSON(ctx, "add price", http.MethodPost, pricesPath(id), e, c.timeout, http.StatusCreated, &out)
	return out, err
}

// DeletePrice removes the entry at a position; it succeeds only on 204.
func (c *Client) DeletePrice(ctx context.Context, id string, index int) error {
	return c.doJSON(ctx, "delete price", http.MethodDelete, fmt.Sprintf("%s/%d", pricesPath(id), index), nil, c.timeout, http.StatusNoContent, nil)
}

// Audit fetches the server's audit summary.
func (c *Client) Audit(ctx context.Context) (core.AuditSummary, error) {
	var s core.AuditSummary
	err := c.doJSON(ctx, "audit", http.MethodGet, "/api/audit", nil, c.timeout, http.StatusOK, &s)
	return s, err
}

// ChartData fetches the server's chart feed.
func (c *Client) ChartData(ctx context.Context) (ChartData, error) {
	var d ChartData
	err := c.doJSON(ctx, "chart data", http.MethodGet, "/api/chart-data", nil, c.timeout, http.StatusOK, &d)
	return d, err
}

// Health pings the backend.
func (c *Client) Health(ctx context.Context) error {
	return c.doJSON(ctx, "health", http.MethodGet, "/api/health", nil, c.timeout, http.StatusOK, nil)
}

// Report downloads the PDF report. A nil request uses the server's state.
func (c *Client) Report(ctx context.Context, req *ReportRequest) (Report, error) {
	const op = "report"
	method := http.MethodGet
	var body io.Reader
	contentType := ""
	if req != nil {
		b, err := json.Marshal(req)
		if err != nil {
			return Report{}, fmt.Errorf("%s: %w", op, err)
		}
		method, body, contentType = http.MethodPost, bytes.NewReader(b), "application/json"
	}
	var rep Report
	err := c.do(ctx, op, method, "/api/report", body, contentType, c.timeout, func(resp *http.Response) error {
		if resp.StatusCode != http.StatusOK {
			return readStatusError(op, resp)
		}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%s: read body: %w", op, err)
		}
		rep = Report{Name: attachmentName(resp.Header.Get("Content-Disposition")), Data: data}
		return nil
	})
	return rep, err
}

// SamplePDF downloads the server's sample invoice.
func (c *Client) SamplePDF(ctx context.Context) ([]byte, error) {
	const op = "sample pdf"
	var data []byte
	err := c.do(ctx, op, http.MethodGet, "/static/test.pdf", nil, "", c.timeout, func(resp *http.Response) error {
		if resp.StatusCode != http.StatusOK {
			return readStatusError(op, resp)
		}
		var err error
		if data, err = io.ReadAll(resp.Body); err != nil {
			return fmt.Errorf("%s: read body: %w", op, err)
		}
		return nil
	})
	return data, err
}

func pricesPath(id string) string {
	return "/api/rows/" + url.PathEscape(id) + "/prices"
}

// doJSON sends in as JSON (when non-nil), expects the given status and
// decodes the body into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, op, method, path string, in any, timeout time.Duration, want int, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		body, contentType = bytes.NewReader(b), "application/json"
	}
	return c.do(ctx, op, method, path, body, contentType, timeout, func(resp *http.Response) error {
		if resp.StatusCode != want {
			return readStatusError(op, resp)
		}
		if out == nil {
			return nil
		}
		return decode(op, resp.Body, out)
	})
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, timeout time.Duration, handle func(*http.Response) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	reqID := uuid.NewString()
	req.Header.Set(HeaderRequestID, reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "Request failed",
			applog.FieldOperation, op, applog.FieldRequestID, reqID, applog.FieldError, err)
		return fmt.Errorf("%s: %w", op, unwrapURLError(err))
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	c.logger.DebugContext(ctx, "Request completed",
		applog.FieldOperation, op,
		applog.FieldMethod, method,
		applog.FieldPath, path,
		applog.FieldStatusCode, resp.StatusCode,
		applog.FieldRequestID, reqID,
		applog.FieldDuration, time.Since(start).Milliseconds())
	return handle(resp)
}

// unwrapURLError drops the *url.Error envelope so the message stays short;
// errors.Is still sees context.Canceled and context.DeadlineExceeded.
func unwrapURLError(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Err
	}
	return err
}

func readStatusError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	return statusError(op, resp.StatusCode, body)
}

func decode(op string, r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}

func attachmentName(disposition string) string {
	if _, params, err := mime.ParseMediaType(disposition); err == nil && params["filename"] != "" {
		return params["filename"]
	}
	return "report.pdf"
}
