package handler

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/opsdesk/internal/auth"
	"github.com/dukerupert/opsdesk/internal/database"
	"github.com/dukerupert/opsdesk/internal/model"
	"github.com/dukerupert/opsdesk/internal/schedule"
	"github.com/dukerupert/opsdesk/internal/store"
	"github.com/dukerupert/opsdesk/internal/websocket"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type recordingHub struct {
	mu   sync.Mutex
	msgs []websocket.Message
}

func (h *recordingHub) Broadcast(msg websocket.Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
}

func (h *recordingHub) types() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []string
	for _, m := range h.msgs {
		out = append(out, m.Type)
	}
	return out
}

type testEnv struct {
	db        *sql.DB
	users     *store.UserStore
	tasks     *store.TaskStore
	entries   *store.ScheduleStore
	crm       *store.CRMStore
	hub       *recordingHub
	scheduleH *ScheduleHandler
	taskH     *TaskHandler
	crmH      *CRMHandler
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	e := &testEnv{
		db:      db,
		users:   store.NewUserStore(db),
		tasks:   store.NewTaskStore(db),
		entries: store.NewScheduleStore(db),
		crm:     store.NewCRMStore(db),
		hub:     &recordingHub{},
	}
	engine := schedule.NewEngine(e.tasks, e.entries, e.crm, e.crm, schedule.Config{
		Location: time.UTC,
		Now:      func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) },
	}, testLogger)
	gateway := schedule.NewGateway(e.entries, time.UTC, testLogger)

	e.scheduleH = NewScheduleHandler(engine, gateway, e.entries, e.hub, testLogger)
	e.taskH = NewTaskHandler(e.tasks, e.users, time.UTC, e.hub, testLogger)
	e.crmH = NewCRMHandler(e.crm, time.UTC, e.hub, testLogger)
	return e
}

func (e *testEnv) user(t *testing.T, email string, role model.Role, managerID *int64) *model.User {
	t.Helper()
	u, err := e.users.Create(email, email, role, managerID, "")
	if err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return u
}

func asUser(u *model.User, teamIDs ...int64) auth.AuthContext {
	return auth.AuthContext{UserID: u.ID, Role: u.Role, TeamIDs: teamIDs}
}

type call struct {
	method string
	target string
	body   any
	path   map[string]string
}

func serve(t *testing.T, h http.HandlerFunc, ac *auth.AuthContext, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body io.Reader
	if c.body != nil {
		data, err := json.Marshal(c.body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(c.method, c.target, body)
	for k, v := range c.path {
		req.SetPathValue(k, v)
	}
	if ac != nil {
		req = req.WithContext(auth.WithAuth(req.Context(), *ac))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
