// Package content turns the aggregated daily payload into a persisted-ready
// blog post via the language model.
package content

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/futstats/dailypost/internal/aggregate"
	"github.com/futstats/dailypost/internal/groq"
	"github.com/futstats/dailypost/internal/models"
)

// rawLogPrefix bounds how much model output reaches the logs when parsing
// or validation fails.
const rawLogPrefix = 800

// ChatClient is the slice of the Groq client the generator needs.
type ChatClient interface {
	Chat(ctx context.Context, req groq.ChatRequest) (*groq.ChatResponse, error)
}

// Draft is the structured record extracted from the model's response.
type Draft struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	Content  string `json:"content"`
	Date     string `json:"date"`
	Category string `json:"category"`
}

// Generator produces the daily post from an aggregated payload.
type Generator struct {
	llm ChatClient
}

// NewGenerator creates a new content generator.
func NewGenerator(llm ChatClient) *Generator {
	return &Generator{llm: llm}
}

// Generate invokes the model once and converts its response into a Post.
// Any failure here is fatal for the run; regeneration is left to the next
// scheduled run.
func (g *Generator) Generate(ctx context.Context, payload *aggregate.Payload) (*models.Post, error) {
	postID := models.DailyPostID(payload.Date)

	prompt, err := buildPrompt(payload, postID)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("post_id", postID).
		Str("date", payload.Date).
		Msg("Generating daily post")

	resp, err := g.llm.Chat(ctx, groq.ChatRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		Temperature:  0.2, // low temperature improves JSON conformance
		MaxTokens:    1400,
		JSONMode:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate post: %w", err)
	}

	draft, err := extractDraft(resp.Content)
	if err != nil {
		log.Error().
			Str("raw_prefix", truncate(resp.Content, rawLogPrefix)).
			Msg("Model returned unparseable content")
		return nil, err
	}

	post, err := draft.toPost(postID, payload.Date)
	if err != nil {
		log.Error().
			Str("raw_prefix", truncate(resp.Content, rawLogPrefix)).
			Msg("Model returned invalid draft")
		return nil, err
	}

	log.Info().Str("post_id", post.ID).Str("title", post.Title).Msg("Daily post generated")
	return post, nil
}

// extractDraft parses the model's free text with a two-tier strategy:
// strict parse first, then a retry on the first-{ to last-} slice.
func extractDraft(text string) (*Draft, error) {
	raw := strings.TrimSpace(text)
	if raw == "" {
		return nil, fmt.Errorf("model returned empty content")
	}

	var draft Draft
	if err := json.Unmarshal([]byte(raw), &draft); err == nil {
		return &draft, nil
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(raw[start:end+1]), &draft); err == nil {
			return &draft, nil
		}
	}

	return nil, fmt.Errorf("could not extract JSON from model output: %s", truncate(raw, rawLogPrefix))
}

// toPost validates the draft and builds the persisted record. The caller's
// id and date always win over whatever the model echoed back.
func (d *Draft) toPost(postID, date string) (*models.Post, error) {
	title := strings.TrimSpace(d.Title)
	content := strings.TrimSpace(d.Content)
	if title == "" || content == "" {
		return nil, fmt.Errorf("invalid post draft: empty title or content")
	}

	category := strings.TrimSpace(d.Category)
	if category == "" {
		category = models.DefaultCategory
	}

	return &models.Post{
		ID:       postID,
		Title:    title,
		Excerpt:  strings.TrimSpace(d.Excerpt),
		Content:  content,
		Date:     date,
		Category: category,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
