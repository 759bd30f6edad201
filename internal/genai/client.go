// Package genai is the HTTP client for the generative content backend that
// produces questions, hints, mistake explanations and question images. The
// backend is an opaque collaborator; callers own validation of whatever it
// returns.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"quizforge/internal/app"
	"quizforge/internal/domain"
)

const defaultTimeout = 60 * time.Second

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

type questionsRequest struct {
	Difficulty string `json:"difficulty"`
	Topic      string `json:"topic"`
	Count      int    `json:"count"`
	Visual     bool   `json:"visual"`
}

// rawQuestion mirrors the backend's question payload. In visual mode the
// backend marks image-bearing questions with a prompt; the image itself is
// rendered with a second call per question.
type rawQuestion struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
	ImagePrompt  string   `json:"image_prompt,omitempty"`
}

type questionsResponse struct {
	Questions []rawQuestion `json:"questions"`
}

// Generate asks the backend for a question set and, in visual mode,
// completes each image-bearing question with rendered image bytes.
func (c *Client) Generate(ctx context.Context, params app.GenerateParams) ([]domain.Question, error) {
	var resp questionsResponse
	err := c.post(ctx, "/v1/questions", questionsRequest{
		Difficulty: params.Difficulty,
		Topic:      params.Topic,
		Count:      params.Count,
		Visual:     params.Visual,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Questions) == 0 {
		return nil, fmt.Errorf("backend returned an empty question set")
	}

	questions := make([]domain.Question, len(resp.Questions))
	for i, raw := range resp.Questions {
		questions[i] = domain.Question{
			Text:         raw.Text,
			Options:      raw.Options,
			CorrectIndex: raw.CorrectIndex,
			UserAnswer:   domain.AnswerUnset,
		}
	}

	if params.Visual {
		eg, egCtx := errgroup.WithContext(ctx)
		for i, raw := range resp.Questions {
			if raw.ImagePrompt == "" {
				continue
			}
			eg.Go(func() error {
				img, err := c.Render(egCtx, raw.ImagePrompt)
				if err != nil {
					return fmt.Errorf("render image for question %d: %w", i, err)
				}
				questions[i].Image = img
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			return nil, err
		}
	}
	return questions, nil
}

type imageRequest struct {
	Prompt string `json:"prompt"`
}

type imageResponse struct {
	Image []byte `json:"image"`
}

// Render produces image bytes for a prompt.
func (c *Client) Render(ctx context.Context, prompt string) ([]byte, error) {
	var resp imageResponse
	if err := c.post(ctx, "/v1/images", imageRequest{Prompt: prompt}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Image) == 0 {
		return nil, fmt.Errorf("backend returned an empty image")
	}
	return resp.Image, nil
}

type hintRequest struct {
	Question string `json:"question"`
}

type hintResponse struct {
	Hint string `json:"hint"`
}

// Hint produces a one-sentence hint. Only the question text is sent; the
// backend never sees the options or the answer key.
func (c *Client) Hint(ctx context.Context, questionText string) (string, error) {
	var resp hintResponse
	if err := c.post(ctx, "/v1/hints", hintRequest{Question: questionText}, &resp); err != nil {
		return "", err
	}
	if resp.Hint == "" {
		return "", fmt.Errorf("backend returned an empty hint")
	}
	return resp.Hint, nil
}

type explanationRequest struct {
	Question string `json:"question"`
	Correct  string `json:"correct"`
	Chosen   string `json:"chosen"`
}

type explanationResponse struct {
	Explanation string `json:"explanation"`
}

// Explain describes why the chosen option is wrong and the correct one right.
func (c *Client) Explain(ctx context.Context, questionText, correctText, chosenText string) (string, error) {
	var resp explanationResponse
	err := c.post(ctx, "/v1/explanations", explanationRequest{
		Question: questionText,
		Correct:  correctText,
		Chosen:   chosenText,
	}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Explanation == "" {
		return "", fmt.Errorf("backend returned an empty explanation")
	}
	return resp.Explanation, nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend returned status %d for %s", resp.StatusCode, path)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("malformed response from %s: %w", path, err)
	}
	return nil
}
