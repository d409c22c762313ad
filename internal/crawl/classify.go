package crawl

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"natro/internal/model"
)

// Classifier is the external content-classification collaborator. It may
// fail or time out; callers must index the page without enrichment then.
type Classifier interface {
	Analyze(ctx context.Context, title, content, url string) (*model.ContentAnalysis, error)
}

const classifyPrompt = `Analyze this web content and provide structured insights:

Title: %s
URL: %s
Content: %s

Provide a JSON object with:
1. summary (2-3 sentences)
2. sentiment (positive/neutral/negative)
3. topics (array of main topics/themes)
4. entities (array of people, organizations, locations mentioned)
5. qualityScore (0-1, content quality/trustworthiness)
6. spamScore (0-1, likelihood of spam/low-quality)
7. category (news/technology/business/entertainment/sports/science/health/other)
8. tags (array of relevant keywords)

Return only valid JSON.`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// HTTPClassifier calls an OpenAI-style chat completion API and parses the
// JSON object it returns.
type HTTPClassifier struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

func NewHTTPClassifier(endpoint, apiKey, model string) *HTTPClassifier {
	return &HTTPClassifier{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClassifier) Analyze(ctx context.Context, title, content, url string) (*model.ContentAnalysis, error) {
	if len(content) > 3000 {
		content = content[:3000]
	}

	reqBody, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: fmt.Sprintf(classifyPrompt, title, url, content)}},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier API %d: %s", resp.StatusCode, string(body))
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("classifier returned no choices")
	}

	var analysis model.ContentAnalysis
	if err := json.Unmarshal([]byte(result.Choices[0].Message.Content), &analysis); err != nil {
		return nil, fmt.Errorf("parse analysis: %w", err)
	}
	return &analysis, nil
}
