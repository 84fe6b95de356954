// Package session ties a user's view of one material to OPEN_MATERIAL and
// CLOSE_MATERIAL events in the activity log.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"readinglab-backend/internal/models"
)

var (
	ErrMissingUser     = errors.New("session: user id is required")
	ErrMissingMaterial = errors.New("session: material id is required")
	ErrClosed          = errors.New("session: already closed")
)

// Logger is the append side of the event log.
type Logger interface {
	Log(user models.User, action models.Action, details, materialID string) models.Event
}

type MediaKind string

const (
	MediaVideo MediaKind = "Video"
	MediaAudio MediaKind = "Audio"
)

type Option func(*Tracker)

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// Tracker is one open material view. Every exit path must end in Close.
type Tracker struct {
	mu       sync.Mutex
	logger   Logger
	user     models.User
	material models.Material
	now      func() time.Time

	startedAt  time.Time
	lastActive time.Time
	progress   int
	closed     bool
	result     models.CloseDetails
}

// Open logs OPEN_MATERIAL and starts the view clock.
func Open(logger Logger, user models.User, material models.Material, opts ...Option) (*Tracker, error) {
	if user.ID == "" {
		return nil, ErrMissingUser
	}
	if material.ID == "" {
		return nil, ErrMissingMaterial
	}

	t := &Tracker{
		logger:   logger,
		user:     user,
		material: material,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}

	t.logger.Log(user, models.ActionOpenMaterial, "Opened "+material.Title, material.ID)
	t.startedAt = t.now()
	t.lastActive = t.startedAt
	return t, nil
}

// With opens a view, runs fn and closes the view however fn returns.
func With(logger Logger, user models.User, material models.Material, fn func(*Tracker) error, opts ...Option) error {
	t, err := Open(logger, user, material, opts...)
	if err != nil {
		return err
	}
	defer t.Close()
	return fn(t)
}

// Record logs one interaction against the open material.
func (t *Tracker) Record(action models.Action, details string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	t.lastActive = t.now()
	t.logger.Log(t.user, action, details, t.material.ID)
	return nil
}

// AIQuery logs the question as it is submitted, ahead of any answer.
func (t *Tracker) AIQuery(question string) error {
	return t.Record(models.ActionAIQuery, question)
}

func (t *Tracker) MediaPlay(kind MediaKind) error {
	return t.Record(models.ActionMediaPlay, fmt.Sprintf("%s started", kind))
}

func (t *Tracker) MediaPause(kind MediaKind) error {
	return t.Record(models.ActionMediaPause, fmt.Sprintf("%s paused", kind))
}

func (t *Tracker) GenerateImage() error {
	return t.Record(models.ActionGenerateImage, "User requested media generation")
}

func (t *Tracker) GenerateVideo() error {
	return t.Record(models.ActionGenerateVideo, "User requested media generation")
}

func (t *Tracker) StartTTS() error {
	return t.Record(models.ActionStartTTS, "Started Text-to-Speech")
}

func (t *Tracker) PauseTTS() error {
	return t.Record(models.ActionPauseTTS, "Paused audio")
}

func (t *Tracker) ResumeTTS() error {
	return t.Record(models.ActionResumeTTS, "Resumed audio")
}

func (t *Tracker) StopTTS() error {
	return t.Record(models.ActionStopTTS, "Stopped audio")
}

func (t *Tracker) FinishReading() error {
	return t.Record(models.ActionFinishReading, "User completed the material")
}

// SetProgress stores the latest scroll or listen position. It is reported
// once, on CLOSE_MATERIAL.
func (t *Tracker) SetProgress(percent int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	t.progress = clampPercent(percent)
	t.lastActive = t.now()
	return nil
}

// Touch marks the view as active without logging anything.
func (t *Tracker) Touch() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	t.lastActive = t.now()
	return nil
}

// Close logs CLOSE_MATERIAL exactly once and returns what it recorded.
// Later calls return the same details.
func (t *Tracker) Close() models.CloseDetails {
	return t.closeAt(time.Time{})
}

// closeAt closes with the duration measured up to end, or up to now when end
// is zero.
func (t *Tracker) closeAt(end time.Time) models.CloseDetails {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return t.result
	}
	t.closed = true

	if end.IsZero() {
		end = t.now()
	}
	secs := int(math.Round(end.Sub(t.startedAt).Seconds()))
	if secs < 0 {
		secs = 0
	}
	t.result = models.CloseDetails{DurationSeconds: secs, ScrollProgressPercent: t.progress}

	details, _ := json.Marshal(t.result)
	t.logger.Log(t.user, models.ActionCloseMaterial, string(details), t.material.ID)
	return t.result
}

func (t *Tracker) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Tracker) User() models.User { return t.user }

func (t *Tracker) Material() models.Material { return t.material }

func (t *Tracker) StartedAt() time.Time { return t.startedAt }

func (t *Tracker) LastActive() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActive
}

func (t *Tracker) Progress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
