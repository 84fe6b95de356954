package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"readinglab-backend/internal/models"
)

var users = []models.User{
	{ID: "u1", Name: "Alice Researcher", Role: models.RoleParticipant},
	{ID: "u2", Name: "Bob Subject", Role: models.RoleParticipant},
	{ID: "admin1", Name: "Dr. Admin", Role: models.RoleAdmin},
}

func at(hour, minute int) int64 {
	return time.Date(2025, 3, 14, hour, minute, 0, 0, time.UTC).UnixMilli()
}

func ev(userID string, action models.Action, materialID string, ts int64) models.Event {
	return models.Event{UserID: userID, Action: action, MaterialID: materialID, Timestamp: ts}
}

func TestCountUserAction_AIQueries(t *testing.T) {
	events := []models.Event{
		ev("u2", models.ActionAIQuery, "m3", at(10, 0)),
		ev("u1", models.ActionAIQuery, "m1", at(10, 1)),
		ev("u2", models.ActionAIQuery, "m3", at(10, 2)),
		ev("u2", models.ActionAIQuery, "m1", at(10, 3)),
		ev("u2", models.ActionOpenMaterial, "m1", at(10, 4)),
	}

	assert.Equal(t, 3, CountUserAction(events, "u2", models.ActionAIQuery))
	assert.Equal(t, 1, CountUserAction(events, "u1", models.ActionAIQuery))
	assert.Equal(t, 4, CountAction(events, models.ActionAIQuery))
	assert.Equal(t, 4, Dashboard(events, IndexUsers(users), time.UTC).AIQueries)
}

func TestHourlyHistogram(t *testing.T) {
	tests := []struct {
		name     string
		events   []models.Event
		expected []HourBucket
	}{
		{
			name:     "empty log",
			events:   nil,
			expected: []HourBucket{},
		},
		{
			name: "sparse and sorted by hour",
			events: []models.Event{
				ev("u1", models.ActionOpenMaterial, "m1", at(14, 30)),
				ev("u1", models.ActionAIQuery, "m1", at(9, 5)),
				ev("u2", models.ActionOpenMaterial, "m3", at(9, 10)),
				ev("u2", models.ActionCloseMaterial, "m3", at(9, 59)),
			},
			expected: []HourBucket{
				{Hour: "09:00", HourOfDay: 9, Count: 3},
				{Hour: "14:00", HourOfDay: 14, Count: 1},
			},
		},
		{
			name: "numeric order, not label order",
			events: []models.Event{
				ev("u1", models.ActionOpenMaterial, "m1", at(23, 0)),
				ev("u1", models.ActionOpenMaterial, "m1", at(0, 15)),
				ev("u1", models.ActionOpenMaterial, "m1", at(3, 0)),
			},
			expected: []HourBucket{
				{Hour: "00:00", HourOfDay: 0, Count: 1},
				{Hour: "03:00", HourOfDay: 3, Count: 1},
				{Hour: "23:00", HourOfDay: 23, Count: 1},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HourlyHistogram(tt.events, time.UTC))
		})
	}
}

func TestHourlyHistogram_UsesLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	events := []models.Event{ev("u1", models.ActionOpenMaterial, "m1", at(1, 0))}

	got := HourlyHistogram(events, tokyo)
	require.Len(t, got, 1)
	assert.Equal(t, "10:00", got[0].Hour)
}

func TestReadState(t *testing.T) {
	events := []models.Event{
		ev("u1", models.ActionCloseMaterial, "m1", at(9, 1)),
		ev("u1", models.ActionOpenMaterial, "m1", at(9, 0)),
		ev("u2", models.ActionAIQuery, "m2", at(9, 0)),
	}

	assert.True(t, ReadState(events, "u1", "m1"))
	assert.False(t, ReadState(events, "u2", "m1"))
	assert.False(t, ReadState(events, "u2", "m2"), "only OPEN_MATERIAL counts as read")
}

func TestComputeCompletion(t *testing.T) {
	tests := []struct {
		name     string
		events   []models.Event
		assigned []string
		expected Completion
	}{
		{
			name:     "nothing read",
			assigned: []string{"m1", "m2"},
			expected: Completion{Assigned: 2, Finished: 0, Remaining: 2},
		},
		{
			name: "opens outside the assignment set never go negative",
			events: []models.Event{
				ev("u1", models.ActionOpenMaterial, "m1", at(9, 0)),
				ev("u1", models.ActionOpenMaterial, "m3", at(9, 1)),
				ev("u1", models.ActionOpenMaterial, "m4", at(9, 2)),
			},
			assigned: []string{"m1", "m2"},
			expected: Completion{Assigned: 2, Finished: 1, Remaining: 1},
		},
		{
			name: "repeat opens count once",
			events: []models.Event{
				ev("u1", models.ActionOpenMaterial, "m1", at(9, 0)),
				ev("u1", models.ActionOpenMaterial, "m1", at(9, 1)),
				ev("u1", models.ActionOpenMaterial, "m2", at(9, 2)),
			},
			assigned: []string{"m1", "m2", "m1"},
			expected: Completion{Assigned: 2, Finished: 2, Remaining: 0},
		},
		{
			name: "other users do not count",
			events: []models.Event{
				ev("u2", models.ActionOpenMaterial, "m1", at(9, 0)),
			},
			assigned: []string{"m1"},
			expected: Completion{Assigned: 1, Finished: 0, Remaining: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeCompletion(tt.events, "u1", tt.assigned)
			assert.Equal(t, tt.expected, got)
			assert.GreaterOrEqual(t, got.Remaining, 0)
		})
	}
}

func TestAssignedMaterialIDs(t *testing.T) {
	materials := []models.Material{
		{ID: "m1", AssignedToUserIDs: []string{"u1", "u2"}},
		{ID: "m2", AssignedToUserIDs: []string{"u1"}},
		{ID: "m3", AssignedToUserIDs: []string{"u2"}},
	}
	assert.Equal(t, []string{"m1", "m2"}, AssignedMaterialIDs(materials, "u1"))
	assert.Empty(t, AssignedMaterialIDs(materials, "admin1"))
}

func TestDashboard_CountsParticipantsOnly(t *testing.T) {
	events := []models.Event{
		ev("admin1", models.ActionCreateMaterial, "", at(8, 0)),
		ev("admin1", models.ActionOpenMaterial, "m1", at(8, 5)),
		ev("u1", models.ActionOpenMaterial, "m1", at(9, 0)),
		ev("u1", models.ActionAIQuery, "m1", at(9, 1)),
		ev("u2", models.ActionOpenMaterial, "m3", at(9, 2)),
		ev("ghost", models.ActionOpenMaterial, "m3", at(9, 3)),
		ev("u2", models.Action("HIGHLIGHT"), "m3", at(9, 4)),
	}

	got := Dashboard(events, IndexUsers(users), time.UTC)

	assert.Equal(t, 2, got.UniqueParticipants)
	assert.Equal(t, 2, got.TotalReads)
	assert.Equal(t, 1, got.AIQueries)
	assert.Equal(t, 7, got.TotalEvents)
	assert.Equal(t, 1, got.ByCategory[models.CategoryAdmin])
	assert.Equal(t, 1, got.ByCategory[models.CategoryOther])
	assert.Equal(t, []HourBucket{
		{Hour: "08:00", HourOfDay: 8, Count: 2},
		{Hour: "09:00", HourOfDay: 9, Count: 5},
	}, got.Activity)
}

func TestParticipantSummaries(t *testing.T) {
	events := []models.Event{
		ev("u1", models.ActionOpenMaterial, "m1", at(9, 0)),
		ev("u1", models.ActionOpenMaterial, "m2", at(9, 1)),
		ev("u2", models.ActionAIQuery, "m3", at(9, 2)),
		{UserID: "u1", Action: models.ActionCloseMaterial, MaterialID: "m1", Details: `{"durationSeconds":42,"scrollProgressPercent":80}`},
	}

	got := ParticipantSummaries(events, users)
	assert.Equal(t, []ParticipantSummary{
		{UserID: "u1", Name: "Alice Researcher", Reads: 2, AIQueries: 0, ReadingSeconds: 42},
		{UserID: "u2", Name: "Bob Subject", Reads: 0, AIQueries: 1, ReadingSeconds: 0},
	}, got)
}

func TestMaterialAssignmentState(t *testing.T) {
	m := models.Material{ID: "m1", AssignedToUserIDs: []string{"u2", "u1", "u2"}}
	events := []models.Event{ev("u1", models.ActionOpenMaterial, "m1", at(9, 0))}

	got := MaterialAssignmentState(events, m, IndexUsers(users))
	assert.Equal(t, []AssigneeState{
		{UserID: "u1", Name: "Alice Researcher", Read: true},
		{UserID: "u2", Name: "Bob Subject", Read: false},
	}, got)
}

func TestReadingTime_SkipsUnparseableDetails(t *testing.T) {
	events := []models.Event{
		{UserID: "u1", Action: models.ActionCloseMaterial, Details: `{"durationSeconds":5,"scrollProgressPercent":80}`},
		{UserID: "u1", Action: models.ActionCloseMaterial, Details: "Duration: 12s"},
		{UserID: "u1", Action: models.ActionCloseMaterial, Details: `{"durationSeconds":30}`},
		{UserID: "u2", Action: models.ActionCloseMaterial, Details: `{"durationSeconds":99}`},
	}
	assert.Equal(t, 35, ReadingTime(events, "u1"))
}
