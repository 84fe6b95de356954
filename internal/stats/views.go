// Package stats derives read state, completion and activity figures from a
// snapshot of the event log. Every function here is pure.
package stats

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"readinglab-backend/internal/models"
)

// UserDirectory resolves an actor's role for participant-only figures.
type UserDirectory interface {
	Lookup(userID string) (models.User, bool)
}

// UserIndex is a UserDirectory over a fixed user list.
type UserIndex map[string]models.User

func IndexUsers(users []models.User) UserIndex {
	idx := make(UserIndex, len(users))
	for _, u := range users {
		idx[u.ID] = u
	}
	return idx
}

func (idx UserIndex) Lookup(userID string) (models.User, bool) {
	u, ok := idx[userID]
	return u, ok
}

type HourBucket struct {
	Hour      string `json:"hour"`
	HourOfDay int    `json:"hour_of_day"`
	Count     int    `json:"count"`
}

type Completion struct {
	Assigned  int `json:"assigned"`
	Finished  int `json:"finished"`
	Remaining int `json:"remaining"`
}

type DashboardStats struct {
	UniqueParticipants int                           `json:"unique_participants"`
	TotalReads         int                           `json:"total_reads"`
	AIQueries          int                           `json:"ai_queries"`
	TotalEvents        int                           `json:"total_events"`
	ByCategory         map[models.ActionCategory]int `json:"by_category"`
	Activity           []HourBucket                  `json:"activity"`
}

type ParticipantSummary struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	Reads          int    `json:"reads"`
	AIQueries      int    `json:"ai_queries"`
	ReadingSeconds int    `json:"reading_seconds"`
}

type AssigneeState struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Read   bool   `json:"read"`
}

func CountUserAction(events []models.Event, userID string, action models.Action) int {
	n := 0
	for _, ev := range events {
		if ev.UserID == userID && ev.Action == action {
			n++
		}
	}
	return n
}

func CountAction(events []models.Event, action models.Action) int {
	n := 0
	for _, ev := range events {
		if ev.Action == action {
			n++
		}
	}
	return n
}

func CountByCategory(events []models.Event) map[models.ActionCategory]int {
	out := make(map[models.ActionCategory]int)
	for _, ev := range events {
		out[ev.Action.Category()]++
	}
	return out
}

// ParticipantEvents keeps events whose actor resolves to a participant.
// Actors the directory does not know are dropped.
func ParticipantEvents(events []models.Event, dir UserDirectory) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if u, ok := dir.Lookup(ev.UserID); ok && u.IsParticipant() {
			out = append(out, ev)
		}
	}
	return out
}

func UniqueActiveParticipants(events []models.Event, dir UserDirectory) int {
	seen := make(map[string]struct{})
	for _, ev := range ParticipantEvents(events, dir) {
		seen[ev.UserID] = struct{}{}
	}
	return len(seen)
}

// HourlyHistogram counts events by hour of day in loc (time.Local when nil).
// Only hours with at least one event are returned, in ascending hour order.
func HourlyHistogram(events []models.Event, loc *time.Location) []HourBucket {
	if loc == nil {
		loc = time.Local
	}

	var counts [24]int
	for _, ev := range events {
		counts[time.UnixMilli(ev.Timestamp).In(loc).Hour()]++
	}

	out := make([]HourBucket, 0, 24)
	for h, c := range counts {
		if c == 0 {
			continue
		}
		out = append(out, HourBucket{Hour: fmt.Sprintf("%02d:00", h), HourOfDay: h, Count: c})
	}
	return out
}

// ReadState reports whether userID ever opened materialID.
func ReadState(events []models.Event, userID, materialID string) bool {
	for _, ev := range events {
		if ev.Action == models.ActionOpenMaterial && ev.UserID == userID && ev.MaterialID == materialID {
			return true
		}
	}
	return false
}

// ReadMaterials returns the set of material ids userID has opened.
func ReadMaterials(events []models.Event, userID string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, ev := range events {
		if ev.Action == models.ActionOpenMaterial && ev.UserID == userID && ev.MaterialID != "" {
			out[ev.MaterialID] = struct{}{}
		}
	}
	return out
}

// AssignedMaterialIDs lists the ids of materials assigned to userID.
func AssignedMaterialIDs(materials []models.Material, userID string) []string {
	var ids []string
	for _, m := range materials {
		if m.AssignedTo(userID) {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// ComputeCompletion compares the materials assigned to userID with those they opened.
func ComputeCompletion(events []models.Event, userID string, assignedIDs []string) Completion {
	assigned := make(map[string]struct{}, len(assignedIDs))
	for _, id := range assignedIDs {
		assigned[id] = struct{}{}
	}

	read := ReadMaterials(events, userID)
	finished := 0
	for id := range assigned {
		if _, ok := read[id]; ok {
			finished++
		}
	}

	remaining := len(assigned) - finished
	if remaining < 0 {
		remaining = 0
	}
	return Completion{Assigned: len(assigned), Finished: finished, Remaining: remaining}
}

// Dashboard builds the admin overview. Reads and AI queries count participant
// activity only; the histogram covers every event.
func Dashboard(events []models.Event, dir UserDirectory, loc *time.Location) DashboardStats {
	participant := ParticipantEvents(events, dir)
	return DashboardStats{
		UniqueParticipants: UniqueActiveParticipants(events, dir),
		TotalReads:         CountAction(participant, models.ActionOpenMaterial),
		AIQueries:          CountAction(participant, models.ActionAIQuery),
		TotalEvents:        len(events),
		ByCategory:         CountByCategory(events),
		Activity:           HourlyHistogram(events, loc),
	}
}

// ParticipantSummaries returns one row per participant in users, keeping the
// given order.
func ParticipantSummaries(events []models.Event, users []models.User) []ParticipantSummary {
	out := make([]ParticipantSummary, 0, len(users))
	for _, u := range users {
		if !u.IsParticipant() {
			continue
		}
		out = append(out, ParticipantSummary{
			UserID:         u.ID,
			Name:           u.Name,
			Reads:          CountUserAction(events, u.ID, models.ActionOpenMaterial),
			AIQueries:      CountUserAction(events, u.ID, models.ActionAIQuery),
			ReadingSeconds: ReadingTime(events, u.ID),
		})
	}
	return out
}

// MaterialAssignmentState lists each assignee of m with their read flag,
// sorted by user id.
func MaterialAssignmentState(events []models.Event, m models.Material, dir UserDirectory) []AssigneeState {
	seen := make(map[string]struct{}, len(m.AssignedToUserIDs))
	out := make([]AssigneeState, 0, len(m.AssignedToUserIDs))
	for _, id := range m.AssignedToUserIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		st := AssigneeState{UserID: id, Read: ReadState(events, id, m.ID)}
		if dir != nil {
			if u, ok := dir.Lookup(id); ok {
				st.Name = u.Name
			}
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// ReadingTime sums durationSeconds over userID's CLOSE_MATERIAL events.
// Details that do not parse are skipped.
func ReadingTime(events []models.Event, userID string) int {
	total := 0
	for _, ev := range events {
		if ev.Action != models.ActionCloseMaterial || ev.UserID != userID || ev.Details == "" {
			continue
		}
		var d models.CloseDetails
		if err := json.Unmarshal([]byte(ev.Details), &d); err != nil {
			continue
		}
		if d.DurationSeconds > 0 {
			total += d.DurationSeconds
		}
	}
	return total
}
