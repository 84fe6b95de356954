package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"readinglab-backend/internal/directory"
	"readinglab-backend/internal/eventlog"
	"readinglab-backend/internal/models"
	"readinglab-backend/internal/stats"
)

func seededStats(t *testing.T) *StatsHandler {
	t.Helper()
	clock := time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)
	store := eventlog.New(eventlog.WithClock(func() time.Time { return clock }))

	store.Log(alice, models.ActionOpenMaterial, "Opened Cognitive Science Basics", "m1")
	store.Log(alice, models.ActionAIQuery, "What is cognition?", "m1")
	store.Log(alice, models.ActionCloseMaterial, `{"durationSeconds":42,"scrollProgressPercent":100}`, "m1")
	store.Log(bob, models.ActionOpenMaterial, "Opened The Future of AI", "m3")
	store.Log(admin, models.ActionAIQuery, "admin test query", "m1")

	return NewStatsHandler(store, directory.NewSeeded(), time.UTC)
}

func TestStatsHandler_Dashboard(t *testing.T) {
	h := seededStats(t)

	rr := httptest.NewRecorder()
	h.Dashboard(rr, newRequest(http.MethodGet, "/api/v1/stats/dashboard", nil, admin))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var got stats.DashboardStats
	decode(t, rr, &got)
	if got.UniqueParticipants != 2 || got.TotalReads != 2 || got.AIQueries != 1 || got.TotalEvents != 5 {
		t.Fatalf("unexpected dashboard: %+v", got)
	}
	if len(got.Activity) != 1 || got.Activity[0].Hour != "09:00" || got.Activity[0].Count != 5 {
		t.Fatalf("unexpected activity histogram: %+v", got.Activity)
	}
}

func TestStatsHandler_Participants(t *testing.T) {
	h := seededStats(t)

	rr := httptest.NewRecorder()
	h.Participants(rr, newRequest(http.MethodGet, "/api/v1/stats/participants", nil, admin))

	var payload struct {
		Participants []stats.ParticipantSummary `json:"participants"`
	}
	decode(t, rr, &payload)
	if len(payload.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %+v", payload.Participants)
	}
	if p := payload.Participants[0]; p.UserID != "u1" || p.Reads != 1 || p.AIQueries != 1 || p.ReadingSeconds != 42 {
		t.Fatalf("unexpected summary for alice: %+v", p)
	}
}

func TestStatsHandler_MyProgress(t *testing.T) {
	h := seededStats(t)

	rr := httptest.NewRecorder()
	h.MyProgress(rr, newRequest(http.MethodGet, "/api/v1/stats/me/progress", nil, alice))

	var payload struct {
		Completion     stats.Completion `json:"completion"`
		ReadingSeconds int              `json:"reading_seconds"`
		AIQueries      int              `json:"ai_queries"`
	}
	decode(t, rr, &payload)
	want := stats.Completion{Assigned: 3, Finished: 1, Remaining: 2}
	if payload.Completion != want {
		t.Fatalf("expected %+v, got %+v", want, payload.Completion)
	}
	if payload.ReadingSeconds != 42 || payload.AIQueries != 1 {
		t.Fatalf("unexpected progress: %+v", payload)
	}
}

func TestStatsHandler_ReadingList(t *testing.T) {
	h := seededStats(t)

	rr := httptest.NewRecorder()
	h.ReadingList(rr, newRequest(http.MethodGet, "/api/v1/materials", nil, bob))

	var payload struct {
		Materials []struct {
			ID   string `json:"id"`
			Read bool   `json:"read"`
		} `json:"materials"`
	}
	decode(t, rr, &payload)

	got := map[string]bool{}
	for _, m := range payload.Materials {
		got[m.ID] = m.Read
	}
	want := map[string]bool{"m1": false, "m3": true, "m4": false}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for id, read := range want {
		if r, ok := got[id]; !ok || r != read {
			t.Fatalf("material %s: expected read=%v, got %v (present=%v)", id, read, r, ok)
		}
	}
}

func TestStatsHandler_MaterialState(t *testing.T) {
	h := seededStats(t)

	rr := httptest.NewRecorder()
	h.MaterialState(rr, newRequest(http.MethodGet, "/api/v1/stats/materials/m1", nil, admin, "id", "m1"))

	var payload struct {
		Assignees []stats.AssigneeState `json:"assignees"`
	}
	decode(t, rr, &payload)
	want := []stats.AssigneeState{
		{UserID: "u1", Name: "Alice Researcher", Read: true},
		{UserID: "u2", Name: "Bob Subject", Read: false},
	}
	if len(payload.Assignees) != len(want) {
		t.Fatalf("expected %+v, got %+v", want, payload.Assignees)
	}
	for i := range want {
		if payload.Assignees[i] != want[i] {
			t.Fatalf("assignee %d: expected %+v, got %+v", i, want[i], payload.Assignees[i])
		}
	}

	rr = httptest.NewRecorder()
	h.MaterialState(rr, newRequest(http.MethodGet, "/api/v1/stats/materials/nope", nil, admin, "id", "nope"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}

func TestStatsHandler_ReadState(t *testing.T) {
	h := seededStats(t)

	tests := []struct {
		name   string
		user   models.User
		target string
		status int
		read   bool
	}{
		{"own state", alice, "/api/v1/stats/materials/m1/read-state", http.StatusOK, true},
		{"admin asks for bob", admin, "/api/v1/stats/materials/m1/read-state?user_id=u2", http.StatusOK, false},
		{"participant asks for another", bob, "/api/v1/stats/materials/m1/read-state?user_id=u1", http.StatusForbidden, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ReadState(rr, newRequest(http.MethodGet, tc.target, nil, tc.user, "id", "m1"))
			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
			if tc.status != http.StatusOK {
				return
			}

			var payload struct {
				Read bool `json:"read"`
			}
			decode(t, rr, &payload)
			if payload.Read != tc.read {
				t.Fatalf("expected read=%v, got %v", tc.read, payload.Read)
			}
		})
	}
}
