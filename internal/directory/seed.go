package directory

import (
	"time"

	"readinglab-backend/internal/models"
)

func strPtr(s string) *string { return &s }

// SeedUsers, SeedMaterials and SeedForms mirror migrations/002_seed_demo_data.sql.
func SeedUsers() []models.User {
	return []models.User{
		{ID: "u1", Name: "Alice Researcher", Role: models.RoleParticipant, AvatarURL: strPtr("https://picsum.photos/id/1/200/200")},
		{ID: "u2", Name: "Bob Subject", Role: models.RoleParticipant, AvatarURL: strPtr("https://picsum.photos/id/2/200/200")},
		{ID: "admin1", Name: "Dr. Admin", Role: models.RoleAdmin, AvatarURL: strPtr("https://picsum.photos/id/3/200/200")},
	}
}

func SeedMaterials() []models.Material {
	return []models.Material{
		{
			ID:                "m1",
			Title:             "Cognitive Science Basics",
			Author:            "J. Smith",
			Type:              models.MaterialText,
			Content:           "Cognitive science is the interdisciplinary, scientific study of the mind and its processes. It examines the nature, the tasks, and the functions of cognition.",
			CoverURL:          "https://picsum.photos/id/20/300/450",
			AssignedToUserIDs: []string{"u1", "u2"},
		},
		{
			ID:                "m2",
			Title:             "Ocean Life Documentary",
			Author:            "Nature Channel",
			Type:              models.MaterialVideo,
			Content:           "https://commondatastorage.googleapis.com/gtv-videos-bucket/sample/BigBuckBunny.mp4",
			CoverURL:          "https://picsum.photos/id/40/300/450",
			AssignedToUserIDs: []string{"u1"},
		},
		{
			ID:                "m3",
			Title:             "The Future of AI",
			Author:            "Tech Weekly",
			Type:              models.MaterialHTML,
			Content:           "<article><h1>The Future of Artificial Intelligence</h1><p>Artificial intelligence (AI) is rapidly transforming industries, healthcare, and daily life.</p></article>",
			CoverURL:          "https://picsum.photos/id/60/300/450",
			AssignedToUserIDs: []string{"u2"},
		},
		{
			ID:                "m4",
			Title:             "Ambient Sounds",
			Author:            "Relaxation Labs",
			Type:              models.MaterialAudio,
			Content:           "https://www.soundhelix.com/examples/mp3/SoundHelix-Song-1.mp3",
			CoverURL:          "https://picsum.photos/id/80/300/450",
			AssignedToUserIDs: []string{"u1", "u2"},
		},
	}
}

func SeedForms(now time.Time) []models.FormTemplate {
	return []models.FormTemplate{
		{
			ID:        "f1",
			Title:     "Research Consent Form",
			Type:      models.FormConsent,
			Content:   "By participating in this study, you agree to have your reading behavior monitored. Your data will be anonymized and used solely for academic research purposes.",
			CreatedAt: now,
		},
		{
			ID:      "f2",
			Title:   "Post-Experiment Survey",
			Type:    models.FormQuestionnaire,
			Content: "Please answer the following questions regarding your experience with the reading materials.",
			Questions: []string{
				"How difficult did you find the text?",
				"Did you feel fatigued during the session?",
				"On a scale of 1-5, how interesting was the topic?",
			},
			CreatedAt: now,
		},
	}
}

// NewSeeded returns an in-memory directory holding the demo study.
func NewSeeded() *Memory {
	return NewMemory(SeedUsers(), SeedMaterials(), SeedForms(time.Now()))
}
