package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"

	"fieldtech/internal/auth"
	"fieldtech/internal/config"
	"fieldtech/internal/lifecycle"
	"fieldtech/internal/telemetry"
)

const (
	techPrefix     = "/api/tech"
	maxErrorBody   = 4 << 10
	rescheduleDate = "2006-01-02"
)

// ErrNotConfirmed is returned when a 2xx completion response carries a
// status other than "success".
var ErrNotConfirmed = errors.New("completion not confirmed by server")

// StatusError is a non-2xx response of the technician API.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// TicketClient talks to the ISP technician API. Every request carries the
// session's bearer token. Requests are never retried.
type TicketClient struct {
	baseURL    string
	session    *auth.Session
	httpClient *http.Client
	log        zerolog.Logger
}

var _ lifecycle.Backend = (*TicketClient)(nil)

func NewTicketClient(cfg *config.ClientConfig, session *auth.Session, log zerolog.Logger) *TicketClient {
	return &TicketClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		session: session,
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: telemetry.Transport(http.DefaultTransport),
		},
		log: log.With().Str("component", "ticket_client").Logger(),
	}
}

type ticketEnvelope struct {
	Ticket *lifecycle.RemoteTicket `json:"ticket"`
}

type homeEnvelope struct {
	Tickets []lifecycle.RemoteTicket `json:"tickets"`
}

type completionResponse struct {
	Status  *string `json:"status"`
	Message string  `json:"message"`
}

func (c *TicketClient) FetchTicket(ctx context.Context, id string) (*lifecycle.RemoteTicket, error) {
	body, err := c.do(ctx, http.MethodGet, ticketPath("view", id), nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope ticketEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse ticket: %w", err)
	}
	return envelope.Ticket, nil
}

func (c *TicketClient) Accept(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodGet, ticketPath("accepted", id), nil, nil)
	return err
}

func (c *TicketClient) StartWork(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodGet, ticketPath("in_progress", id), nil, nil)
	return err
}

func (c *TicketClient) Reject(ctx context.Context, id string, record lifecycle.RejectionRecord) error {
	return c.postJSON(ctx, ticketPath("rejected", id), map[string]string{
		"reason": record.Reason,
	})
}

func (c *TicketClient) Reschedule(ctx context.Context, id string, record lifecycle.RescheduleRecord) error {
	return c.postJSON(ctx, ticketPath("rescheduled", id), map[string]string{
		"date":   record.Date.Format(rescheduleDate),
		"reason": record.Reason,
	})
}

// Complete uploads the completion record as one multipart request. The
// remarks and location fields are always sent; pictures only when present.
func (c *TicketClient) Complete(ctx context.Context, id string, submission lifecycle.CompletionSubmission) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("remarks", submission.Remarks); err != nil {
		return fmt.Errorf("failed to write remarks: %w", err)
	}
	if err := w.WriteField("location", submission.Location); err != nil {
		return fmt.Errorf("failed to write location: %w", err)
	}
	if err := writePhoto(w, "picture_cause", submission.PictureCause); err != nil {
		return err
	}
	if err := writePhoto(w, "picture_reading", submission.PictureReading); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finish multipart body: %w", err)
	}

	header := http.Header{}
	header.Set("Content-Type", w.FormDataContentType())
	if submission.IdempotencyKey != "" {
		header.Set("Idempotency-Key", submission.IdempotencyKey)
	}

	body, err := c.do(ctx, http.MethodPost, ticketPath("completed", id), &buf, header)
	if err != nil {
		return err
	}

	var resp completionResponse
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("failed to parse completion response: %w", err)
		}
	}
	if resp.Status != nil && *resp.Status != "success" {
		return fmt.Errorf("%w: status %q: %s", ErrNotConfirmed, *resp.Status, resp.Message)
	}
	return nil
}

// Home lists the technician's tickets.
func (c *TicketClient) Home(ctx context.Context) ([]lifecycle.RemoteTicket, error) {
	body, err := c.do(ctx, http.MethodGet, techPrefix+"/home", nil, nil)
	if err != nil {
		return nil, err
	}

	var envelope homeEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("failed to parse home: %w", err)
	}
	return envelope.Tickets, nil
}

func (c *TicketClient) postJSON(ctx context.Context, path string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	header := http.Header{}
	header.Set("Content-Type", "application/json")
	_, err = c.do(ctx, http.MethodPost, path, bytes.NewReader(raw), header)
	return err
}

func (c *TicketClient) do(ctx context.Context, method, path string, body io.Reader, header http.Header) ([]byte, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("API base URL is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	c.session.Authorize(req)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("path", path).Msg("request failed")
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text := respBody
		if len(text) > maxErrorBody {
			text = text[:maxErrorBody]
		}
		return nil, &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(text)),
		}
	}
	return respBody, nil
}

func ticketPath(action, id string) string {
	return techPrefix + "/tickets/" + action + "/" + url.PathEscape(id)
}

// writePhoto adds a local picture as a file part. Remote pictures are
// already on the server and are not re-sent.
func writePhoto(w *multipart.Writer, field string, photo lifecycle.Photo) error {
	path, ok := photo.Ref()
	if !ok || photo.Remote() {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", field, err)
	}

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filepath.Base(path)))
	h.Set("Content-Type", PhotoContentType(path, data))

	part, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := part.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", field, err)
	}
	return nil
}

// PhotoContentType detects the image type from content, then falls back
// to the file extension, then to image/jpeg.
func PhotoContentType(path string, data []byte) string {
	if mt := mimetype.Detect(data); strings.HasPrefix(mt.String(), "image/") {
		return mt.String()
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	switch ext {
	case "":
		return "image/jpeg"
	case "jpg":
		return "image/jpeg"
	default:
		return "image/" + ext
	}
}
