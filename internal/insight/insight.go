// Package insight calls an external text-completion service to comment
// on estimation results. Failures of any kind collapse to a fixed
// fallback string; voting and reveal never depend on this service.
package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Fallback is returned whenever the service cannot produce an analysis.
const Fallback = "The AI coach is currently unavailable to analyze these votes."

// Config holds the generateContent endpoint settings.
type Config struct {
	APIKey     string `yaml:"-"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// DefaultConfig reads the API key from the environment and targets the
// Gemini API.
func DefaultConfig() Config {
	return Config{
		APIKey:     os.Getenv("GEMINI_API_KEY"),
		BaseURL:    "https://generativelanguage.googleapis.com/v1beta/models",
		Model:      "gemini-2.0-flash",
		TimeoutSec: 10,
	}
}

// Enabled reports whether an API key is configured.
func (c Config) Enabled() bool {
	return c.APIKey != ""
}

func (c Config) endpoint() string {
	return c.BaseURL + "/" + c.Model + ":generateContent"
}

// Client talks to the generateContent API.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates an insight client.
func NewClient(cfg Config) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Summarize asks for a short agile-coach style analysis of the votes.
// Any error path returns Fallback.
func (c *Client) Summarize(ctx context.Context, taskTitle, taskDescription string, votes []string) string {
	if !c.cfg.Enabled() {
		return Fallback
	}

	prompt := fmt.Sprintf(`As an Agile Coach, analyze the following Planning Poker estimation results:
Task: %q
Description: %q
Votes Received: %s

Provide a concise 2-3 sentence analysis.
If there is high variance, suggest what technical risks or misunderstandings might be causing the gap.
If consensus is high, suggest why the task is well-understood.
Do not use markdown formatting, just plain text.`, taskTitle, taskDescription, strings.Join(votes, ", "))

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		log.Error().Err(err).Msg("marshal insight request")
		return Fallback
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.endpoint(), bytes.NewReader(body))
	if err != nil {
		log.Error().Err(err).Msg("build insight request")
		return Fallback
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("insight service unreachable")
		return Fallback
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("insight service error")
		return Fallback
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		log.Warn().Err(err).Msg("undecodable insight response")
		return Fallback
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return Fallback
	}
	text := strings.TrimSpace(decoded.Candidates[0].Content.Parts[0].Text)
	if text == "" {
		return Fallback
	}
	return text
}
