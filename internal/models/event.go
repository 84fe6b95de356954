package models

// Action tags an activity event. The set below is conventional, not closed:
// any other tag is accepted and stored as-is.
type Action string

const (
	ActionOpenMaterial   Action = "OPEN_MATERIAL"
	ActionCloseMaterial  Action = "CLOSE_MATERIAL"
	ActionFinishReading  Action = "FINISH_READING"
	ActionAIQuery        Action = "AI_QUERY"
	ActionMediaPlay      Action = "MEDIA_PLAY"
	ActionMediaPause     Action = "MEDIA_PAUSE"
	ActionGenerateImage  Action = "GENERATE_IMAGE"
	ActionGenerateVideo  Action = "GENERATE_VIDEO"
	ActionStartTTS       Action = "START_TTS"
	ActionPauseTTS       Action = "PAUSE_TTS"
	ActionResumeTTS      Action = "RESUME_TTS"
	ActionStopTTS        Action = "STOP_TTS"
	ActionCreateMaterial Action = "CREATE_MATERIAL"
	ActionCreateForm     Action = "CREATE_FORM"
	ActionDeleteForm     Action = "DELETE_FORM"
	ActionDeleteMaterial Action = "DELETE_MATERIAL"
	ActionLogin          Action = "LOGIN"
	ActionLogout         Action = "LOGOUT"
)

// ActionCategory groups actions for display and filtering.
type ActionCategory string

const (
	CategoryLifecycle   ActionCategory = "lifecycle"
	CategoryInteraction ActionCategory = "interaction"
	CategoryMedia       ActionCategory = "media"
	CategoryGeneration  ActionCategory = "generation"
	CategoryTTS         ActionCategory = "tts"
	CategoryAdmin       ActionCategory = "admin"
	CategoryAccount     ActionCategory = "account"
	CategoryOther       ActionCategory = "other"
)

var actionCategories = map[Action]ActionCategory{
	ActionOpenMaterial:   CategoryLifecycle,
	ActionCloseMaterial:  CategoryLifecycle,
	ActionFinishReading:  CategoryLifecycle,
	ActionAIQuery:        CategoryInteraction,
	ActionMediaPlay:      CategoryMedia,
	ActionMediaPause:     CategoryMedia,
	ActionGenerateImage:  CategoryGeneration,
	ActionGenerateVideo:  CategoryGeneration,
	ActionStartTTS:       CategoryTTS,
	ActionPauseTTS:       CategoryTTS,
	ActionResumeTTS:      CategoryTTS,
	ActionStopTTS:        CategoryTTS,
	ActionCreateMaterial: CategoryAdmin,
	ActionCreateForm:     CategoryAdmin,
	ActionDeleteForm:     CategoryAdmin,
	ActionDeleteMaterial: CategoryAdmin,
	ActionLogin:          CategoryAccount,
	ActionLogout:         CategoryAccount,
}

// Category returns the group an action belongs to, or CategoryOther for
// tags this build does not know about.
func (a Action) Category() ActionCategory {
	if c, ok := actionCategories[a]; ok {
		return c
	}
	return CategoryOther
}

// Known reports whether a is one of the conventional action tags.
func (a Action) Known() bool {
	_, ok := actionCategories[a]
	return ok
}

// Event is one immutable entry of the activity log.
type Event struct {
	ID         string `json:"id"`
	Timestamp  int64  `json:"timestamp"` // ms since epoch
	UserID     string `json:"user_id"`
	UserName   string `json:"user_name"`
	Action     Action `json:"action"`
	Details    string `json:"details,omitempty"`
	MaterialID string `json:"material_id,omitempty"`
}

// CloseDetails is the JSON carried in a CLOSE_MATERIAL event's details.
type CloseDetails struct {
	DurationSeconds       int `json:"durationSeconds"`
	ScrollProgressPercent int `json:"scrollProgressPercent"`
}

// Entry describes an event before the log assigns its id and timestamp.
type Entry struct {
	UserID     string
	UserName   string
	Action     Action
	Details    string
	MaterialID string
}
