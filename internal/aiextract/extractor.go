// Package aiextract recovers recipes from pages that defeat both structured
// and selector parsing, by sending the readable page text to a chat
// completion endpoint. It is strictly best-effort: every failure path returns
// (nil, nil) so the pipeline records a plain parse failure instead of
// surfacing model errors.
package aiextract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/KuschiKuschbert/prepflow-scraper/internal/normalize"
	"github.com/KuschiKuschbert/prepflow-scraper/internal/recipe"
)

const (
	defaultTimeout       = 30 * time.Second
	defaultMinTextLength = 200
	maxHarvestedChars    = 12000
)

// Config wires the extractor to a completion endpoint.
type Config struct {
	Endpoint      string
	APIKey        string
	Model         string
	Timeout       time.Duration
	MinTextLength int
}

// Extractor calls a chat completion API to pull recipe fields out of page
// text.
type Extractor struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// New builds an Extractor. Returns nil when no endpoint is configured, which
// callers treat as extraction disabled.
func New(cfg Config, logger *zap.Logger) *Extractor {
	if cfg.Endpoint == "" {
		return nil
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MinTextLength <= 0 {
		cfg.MinTextLength = defaultMinTextLength
	}
	return &Extractor{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// modelRecipe is the JSON shape the prompt asks the model to emit.
type modelRecipe struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Yield        *float64 `json:"yield"`
	YieldUnit    string   `json:"yield_unit"`
	PrepMinutes  *int     `json:"prep_time_minutes"`
	CookMinutes  *int     `json:"cook_time_minutes"`
}

const systemPrompt = `You extract recipes from web page text. Respond with a single JSON object and nothing else, using exactly these keys: name, description, ingredients (array of strings, one per ingredient line), instructions (array of strings, one per step), yield (number or null), yield_unit, prep_time_minutes (integer or null), cook_time_minutes (integer or null). If the text contains no recipe, respond with {"name": ""}.`

// Extract harvests readable text from the page and asks the model for recipe
// fields. Pages with too little text are skipped without a call.
func (e *Extractor) Extract(ctx context.Context, body []byte, pageURL string) (*recipe.ScrapedRecipe, error) {
	text := harvestText(body)
	if len(text) < e.cfg.MinTextLength {
		return nil, nil
	}

	content, err := e.complete(ctx, text)
	if err != nil {
		e.logger.Warn("AI completion failed", zap.String("url", pageURL), zap.Error(err))
		return nil, nil
	}

	parsed := parseModelJSON(content)
	if parsed == nil || parsed.Name == "" || len(parsed.Ingredients) == 0 || len(parsed.Instructions) == 0 {
		return nil, nil
	}

	r := &recipe.ScrapedRecipe{
		Name:            strings.TrimSpace(parsed.Name),
		Description:     strings.TrimSpace(parsed.Description),
		Ingredients:     normalize.IngredientsFromLines(parsed.Ingredients),
		Instructions:    trimNonEmpty(parsed.Instructions),
		Yield:           parsed.Yield,
		YieldUnit:       strings.TrimSpace(parsed.YieldUnit),
		PrepTimeMinutes: parsed.PrepMinutes,
		CookTimeMinutes: parsed.CookMinutes,
		SourceURL:       pageURL,
	}
	if len(r.Ingredients) == 0 || len(r.Instructions) == 0 {
		return nil, nil
	}
	return r, nil
}

func (e *Extractor) complete(ctx context.Context, text string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("new completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call completion endpoint: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion endpoint returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read completion response: %w", err)
	}
	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response had no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// harvestText extracts visible text from the page body, dropping script,
// style, and navigation noise, capped so prompts stay bounded.
func harvestText(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	doc.Find("script, style, nav, footer, header, noscript, iframe").Remove()

	var b strings.Builder
	doc.Find("h1, h2, h3, p, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.Join(strings.Fields(s.Text()), " ")
		if text == "" {
			return
		}
		if b.Len()+len(text)+1 > maxHarvestedChars {
			return
		}
		b.WriteString(text)
		b.WriteByte('\n')
	})
	return b.String()
}

// parseModelJSON tolerates markdown code fences and prose around the JSON
// object the model was asked for.
func parseModelJSON(content string) *modelRecipe {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return nil
	}

	var parsed modelRecipe
	if err := json.Unmarshal([]byte(content[start:end+1]), &parsed); err != nil {
		return nil
	}
	return &parsed
}

func trimNonEmpty(lines []string) []string {
	var out []string
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
