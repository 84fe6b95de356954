package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"readinglab-backend/internal/directory"
	"readinglab-backend/internal/eventlog"
	"readinglab-backend/internal/handlers"
	"readinglab-backend/internal/middleware"
	"readinglab-backend/internal/models"
	"readinglab-backend/internal/session"
	"readinglab-backend/internal/websocket"
)

type testServer struct {
	handler http.Handler
	store   *eventlog.Store
	jwtAuth *middleware.JWTAuth
}

func newTestServer() *testServer {
	store := eventlog.New()
	dir := directory.NewSeeded()
	sessions := session.NewManager(store, 0)
	jwtAuth := middleware.NewJWTAuth("test-secret")

	hub := websocket.NewHub(nil, jwtAuth.ParseToken)

	h := New(
		jwtAuth,
		handlers.NewAuthHandler(dir, jwtAuth, sessions, store, time.Hour),
		handlers.NewActivityHandler(store, dir),
		handlers.NewStatsHandler(store, dir, time.UTC),
		handlers.NewSessionHandler(sessions, dir, nil),
		handlers.NewAdminHandler(dir, store),
		handlers.NewHealthHandler(store, sessions, hub),
		hub,
		"http://localhost:5173",
		600,
	)
	return &testServer{handler: h, store: store, jwtAuth: jwtAuth}
}

func (s *testServer) do(t *testing.T, method, path string, user models.User, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user.ID != "" {
		token, err := s.jwtAuth.GenerateAccessToken(user, time.Hour)
		if err != nil {
			t.Fatalf("token: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

var (
	alice = models.User{ID: "u1", Name: "Alice Researcher", Role: models.RoleParticipant}
	admin = models.User{ID: "admin1", Name: "Dr. Admin", Role: models.RoleAdmin}
)

func TestRouter_Access(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		name   string
		method string
		path   string
		user   models.User
		status int
	}{
		{"health is public", http.MethodGet, "/health", models.User{}, http.StatusOK},
		{"activity requires auth", http.MethodGet, "/api/v1/activity", models.User{}, http.StatusUnauthorized},
		{"participant reads own activity", http.MethodGet, "/api/v1/activity", alice, http.StatusOK},
		{"participant reading list", http.MethodGet, "/api/v1/materials", alice, http.StatusOK},
		{"participant progress", http.MethodGet, "/api/v1/stats/me/progress", alice, http.StatusOK},
		{"participant read state", http.MethodGet, "/api/v1/stats/materials/m1/read-state", alice, http.StatusOK},
		{"dashboard is admin only", http.MethodGet, "/api/v1/stats/dashboard", alice, http.StatusForbidden},
		{"admin dashboard", http.MethodGet, "/api/v1/stats/dashboard", admin, http.StatusOK},
		{"material state is admin only", http.MethodGet, "/api/v1/stats/materials/m1", alice, http.StatusForbidden},
		{"admin material state", http.MethodGet, "/api/v1/stats/materials/m1", admin, http.StatusOK},
		{"admin routes reject participants", http.MethodGet, "/api/v1/admin/forms", alice, http.StatusForbidden},
		{"admin forms", http.MethodGet, "/api/v1/admin/forms", admin, http.StatusOK},
		{"participants cannot delete materials", http.MethodDelete, "/api/v1/admin/materials/m1", alice, http.StatusForbidden},
		{"participants cannot manage users", http.MethodPut, "/api/v1/admin/users/u1", alice, http.StatusForbidden},
		{"admin user lookup", http.MethodGet, "/api/v1/admin/users/u1", admin, http.StatusOK},
		{"unknown user lookup", http.MethodGet, "/api/v1/admin/users/nobody", admin, http.StatusNotFound},
		{"login is public", http.MethodPost, "/api/v1/auth/login", models.User{}, http.StatusBadRequest},
		{"logout requires auth", http.MethodPost, "/api/v1/auth/logout", models.User{}, http.StatusUnauthorized},
		{"websocket needs token", http.MethodGet, "/api/v1/ws", models.User{}, http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := srv.do(t, tc.method, tc.path, tc.user, nil)
			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d: %s", tc.status, rr.Code, rr.Body.String())
			}
		})
	}
}

func TestRouter_ReadingSessionRoundTrip(t *testing.T) {
	srv := newTestServer()

	rr := srv.do(t, http.MethodPost, "/api/v1/sessions", alice, map[string]string{"material_id": "m1"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("open: expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	var opened struct {
		Session session.Info `json:"session"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&opened); err != nil {
		t.Fatalf("decode: %v", err)
	}
	base := "/api/v1/sessions/" + opened.Session.ID.String()

	steps := []struct {
		method string
		path   string
		body   interface{}
		status int
	}{
		{http.MethodPost, base + "/events", map[string]string{"action": "START_TTS"}, http.StatusAccepted},
		{http.MethodPut, base + "/progress", map[string]int{"percent": 55}, http.StatusOK},
		{http.MethodPost, base + "/heartbeat", nil, http.StatusOK},
		{http.MethodPost, base + "/ask", map[string]string{"question": "Summarize?"}, http.StatusServiceUnavailable},
		{http.MethodPost, base + "/close", nil, http.StatusOK},
	}
	for _, st := range steps {
		if rr := srv.do(t, st.method, st.path, alice, st.body); rr.Code != st.status {
			t.Fatalf("%s %s: expected status %d, got %d", st.method, st.path, st.status, rr.Code)
		}
	}

	want := []models.Action{
		models.ActionCloseMaterial,
		models.ActionAIQuery,
		models.ActionStartTTS,
		models.ActionOpenMaterial,
	}
	snapshot := srv.store.Snapshot()
	if len(snapshot) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(snapshot))
	}
	for i, action := range want {
		if snapshot[i].Action != action || snapshot[i].UserID != "u1" || snapshot[i].MaterialID != "m1" {
			t.Fatalf("event %d: expected %s by u1 on m1, got %+v", i, action, snapshot[i])
		}
	}
	var details models.CloseDetails
	if err := json.Unmarshal([]byte(snapshot[0].Details), &details); err != nil || details.ScrollProgressPercent != 55 {
		t.Fatalf("unexpected close details %s", snapshot[0].Details)
	}
}

func TestRouter_RequestIDOnErrors(t *testing.T) {
	srv := newTestServer()

	rr := srv.do(t, http.MethodGet, "/api/v1/stats/dashboard", alice, nil)
	var resp models.ErrorResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.RequestID == "" || resp.Error.RequestID != rr.Header().Get("X-Request-ID") {
		t.Fatalf("expected request id %q in body, got %q", rr.Header().Get("X-Request-ID"), resp.Error.RequestID)
	}
}
