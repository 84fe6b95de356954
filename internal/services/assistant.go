package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"readinglab-backend/internal/models"
)

// maxContextRunes bounds how much material text goes into a prompt.
const maxContextRunes = 30000

var ErrEmptyAnswer = errors.New("assistant returned no text")

// Assistant answers participants' questions about the material they are
// reading.
type Assistant struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	rateChan chan struct{} // Token bucket
}

func NewAssistant(apiKey, modelName string, concurrentReqs int) (*Assistant, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(0.3)
	model.SetTopP(0.95)
	model.SystemInstruction = genai.NewUserContent(genai.Text(
		"You are a helpful research assistant aiding a participant in understanding reading material. " +
			"Answer concisely and accurately based on the provided context."))

	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	rateChan := make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		rateChan <- struct{}{}
	}

	return &Assistant{
		client:   client,
		model:    model,
		rateChan: rateChan,
	}, nil
}

func (a *Assistant) Close() {
	a.client.Close()
}

// acquireRate blocks until a rate slot is available
func (a *Assistant) acquireRate(ctx context.Context) error {
	select {
	case <-a.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(30 * time.Second):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (a *Assistant) releaseRate() {
	a.rateChan <- struct{}{}
}

// Answer asks the model about material, continuing from history.
func (a *Assistant) Answer(ctx context.Context, material models.Material, question string, history []models.ChatMessage) (string, error) {
	if err := a.acquireRate(ctx); err != nil {
		return "", err
	}
	defer a.releaseRate()

	resp, err := a.model.GenerateContent(ctx, genai.Text(buildReaderPrompt(material, question, history)))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(extractText(resp))
	if text == "" {
		return "", ErrEmptyAnswer
	}
	return text, nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

// materialContext is the text the model is allowed to draw on. Media items
// only contribute their metadata.
func materialContext(m models.Material) string {
	header := fmt.Sprintf("Title: %s\nAuthor: %s\nType: %s", m.Title, m.Author, m.Type)
	switch m.Type {
	case models.MaterialText, models.MaterialHTML:
		return header + "\n\n" + truncateRunes(m.Content, maxContextRunes)
	default:
		return header
	}
}

func buildReaderPrompt(m models.Material, question string, history []models.ChatMessage) string {
	var b strings.Builder
	b.WriteString("CONTEXT MATERIAL:\n")
	b.WriteString(materialContext(m))
	b.WriteString("\n\n")

	if len(history) > 0 {
		b.WriteString("CONVERSATION SO FAR:\n")
		for _, msg := range history {
			role := "Participant"
			if msg.Role == "assistant" {
				role = "Assistant"
			}
			fmt.Fprintf(&b, "%s: %s\n", role, strings.TrimSpace(msg.Content))
		}
		b.WriteString("\n")
	}

	b.WriteString("USER QUESTION:\n")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString("\n\nAnswer concisely and accurately based on the provided context.")
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "... (truncated)"
}
