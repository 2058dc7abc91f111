package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"fieldtech/internal/auth"
	"fieldtech/internal/db"
	"fieldtech/internal/http/middleware"
	"fieldtech/internal/idempotency"
	"fieldtech/internal/repository"
	"fieldtech/internal/service"
	"fieldtech/internal/storage"
)

const testSecret = "test-secret"

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := database.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(database); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if _, err := db.SeedDemo(context.Background(), database, "tech-1"); err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}

	storageDir := t.TempDir()
	photos, err := storage.NewLocal(storageDir)
	if err != nil {
		t.Fatalf("NewLocal: %v", err)
	}

	svc := service.NewTicketService(
		repository.NewTicketRepository(database),
		repository.NewEventRepository(database),
		idempotency.NewMemory(time.Hour),
		photos,
		zerolog.Nop(),
	)
	router := NewRouter(NewHandler(svc, zerolog.Nop()), middleware.Auth(auth.NewParser(testSecret)), "test", storageDir)

	return &testEnv{router: router, db: database, token: issueToken(t, "tech-1")}
}

func issueToken(t *testing.T, technicianID string) string {
	t.Helper()
	token, err := auth.NewIssuer(testSecret, time.Hour).Issue(technicianID, "Test Technician")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body *bytes.Buffer, contentType string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return out
}

func completionBody(t *testing.T, remarks string, cause []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	_ = w.WriteField("remarks", remarks)
	_ = w.WriteField("location", "9.950000, 124.100000")
	if cause != nil {
		part, err := w.CreateFormFile("picture_cause", "cause.png")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		_, _ = part.Write(cause)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf, w.FormDataContentType()
}

func TestViewTicket(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/tech/tickets/view/1", env.token, nil, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body.String())
	}

	ticket := decode(t, w)["ticket"].(map[string]any)
	if ticket["status"] != "pending" || ticket["type"] != "repair" {
		t.Fatalf("ticket = %v", ticket)
	}
	if ticket["client"].(map[string]any)["name"] != "John Smith" {
		t.Fatalf("client = %v", ticket["client"])
	}
	if ticket["subscription"].(map[string]any)["installation_address"] != "Guiwanon, Tubigon, Bohol" {
		t.Fatalf("subscription = %v", ticket["subscription"])
	}
}

func TestAuthAndOwnership(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name  string
		token string
		path  string
		want  int
	}{
		{"missing token", "", "/api/tech/tickets/view/1", http.StatusUnauthorized},
		{"bad token", "garbage", "/api/tech/tickets/view/1", http.StatusUnauthorized},
		{"other technician", issueToken(t, "tech-2"), "/api/tech/tickets/view/1", http.StatusForbidden},
		{"unknown ticket", env.token, "/api/tech/tickets/view/999", http.StatusNotFound},
		{"malformed id", env.token, "/api/tech/tickets/view/abc", http.StatusBadRequest},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.path, tt.token, nil, "", nil)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d (%s)", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestHome(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/tech/home", env.token, nil, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if tickets := decode(t, w)["tickets"].([]any); len(tickets) != 4 {
		t.Fatalf("tickets = %d", len(tickets))
	}

	w = env.do(t, http.MethodGet, "/api/tech/home", issueToken(t, "tech-2"), nil, "", nil)
	if tickets := decode(t, w)["tickets"].([]any); len(tickets) != 0 {
		t.Fatalf("other technician sees %d tickets", len(tickets))
	}
}

func TestAcceptIsRepeatable(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		w := env.do(t, http.MethodGet, "/api/tech/tickets/accepted/1", env.token, nil, "", nil)
		if w.Code != http.StatusOK {
			t.Fatalf("accept #%d status = %d", i+1, w.Code)
		}
	}

	w := env.do(t, http.MethodGet, "/api/tech/tickets/history/1", env.token, nil, "", nil)
	events := decode(t, w)["data"].([]any)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
}

func TestTransitionOutOfOrderConflicts(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/tech/tickets/in_progress/1", env.token, nil, "", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("start on pending = %d", w.Code)
	}

	body, ct := completionBody(t, "done", nil)
	w = env.do(t, http.MethodPost, "/api/tech/tickets/completed/3", env.token, body, ct, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("complete on accepted = %d", w.Code)
	}
}

func TestRejectAndReschedule(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/tech/tickets/rejected/1", env.token, bytes.NewBufferString(`{}`), "application/json", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("reject without reason = %d", w.Code)
	}

	w = env.do(t, http.MethodPost, "/api/tech/tickets/rejected/1", env.token, bytes.NewBufferString(`{"reason":"duplicate request"}`), "application/json", nil)
	if w.Code != http.StatusOK || decode(t, w)["status"] != "success" {
		t.Fatalf("reject = %d %s", w.Code, w.Body.String())
	}

	past := time.Now().AddDate(0, 0, -2).Format("2006-01-02")
	w = env.do(t, http.MethodPost, "/api/tech/tickets/rescheduled/3", env.token, bytes.NewBufferString(`{"date":"`+past+`","reason":"rain"}`), "application/json", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("reschedule into the past = %d", w.Code)
	}

	next := time.Now().AddDate(0, 0, 1).Format("2006-01-02")
	w = env.do(t, http.MethodPost, "/api/tech/tickets/rescheduled/3", env.token, bytes.NewBufferString(`{"date":"`+next+`","reason":"rain"}`), "application/json", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("reschedule = %d %s", w.Code, w.Body.String())
	}
	ticket := decode(t, w)["ticket"].(map[string]any)
	if ticket["status"] != "accepted" || ticket["scheduled_for"] != next {
		t.Fatalf("ticket = %v", ticket)
	}
}

func TestCompleteIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	key := map[string]string{"Idempotency-Key": "draft-7"}

	body, ct := completionBody(t, "Replaced drop wire", pngBytes)
	w := env.do(t, http.MethodPost, "/api/tech/tickets/completed/4", env.token, body, ct, key)
	if w.Code != http.StatusOK {
		t.Fatalf("complete = %d %s", w.Code, w.Body.String())
	}
	ticket := decode(t, w)["ticket"].(map[string]any)
	picture, _ := ticket["picture"].(string)
	if ticket["status"] != "completed" || !strings.HasPrefix(picture, "tickets/") || ticket["picture_reading"] != "" {
		t.Fatalf("ticket = %v", ticket)
	}

	w = env.do(t, http.MethodGet, "/storage/"+picture, "", nil, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("stored picture = %d", w.Code)
	}

	body, ct = completionBody(t, "Replaced drop wire", pngBytes)
	w = env.do(t, http.MethodPost, "/api/tech/tickets/completed/4", env.token, body, ct, key)
	if w.Code != http.StatusOK || decode(t, w)["status"] != "success" {
		t.Fatalf("replay = %d %s", w.Code, w.Body.String())
	}

	body, ct = completionBody(t, "Another draft", nil)
	w = env.do(t, http.MethodPost, "/api/tech/tickets/completed/4", env.token, body, ct, map[string]string{"Idempotency-Key": "draft-8"})
	if w.Code != http.StatusConflict {
		t.Fatalf("second draft = %d", w.Code)
	}

	var events int64
	env.db.Table("ticket_events").Where("ticket_id = ? AND action = ?", 4, "complete").Count(&events)
	if events != 1 {
		t.Fatalf("complete events = %d", events)
	}
}

func TestCompleteRejectsNonImage(t *testing.T) {
	env := newTestEnv(t)

	body, ct := completionBody(t, "done", []byte("%PDF-1.4 not a picture"))
	w := env.do(t, http.MethodPost, "/api/tech/tickets/completed/4", env.token, body, ct, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}

	w = env.do(t, http.MethodGet, "/api/tech/tickets/view/4", env.token, nil, "", nil)
	if decode(t, w)["ticket"].(map[string]any)["status"] != "in_progress" {
		t.Fatal("failed completion must leave the ticket in progress")
	}
}
