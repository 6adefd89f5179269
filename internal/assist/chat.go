package assist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrGeneratorUnavailable is returned when the endpoint answers with a
// transient failure (rate limit or 5xx).
var ErrGeneratorUnavailable = errors.New("text generator unavailable")

// ChatGenerator calls an OpenAI-compatible chat completions endpoint
// (OpenAI, OpenRouter, Ollama, vLLM).
type ChatGenerator struct {
	url    string
	apiKey string
	model  string
	client *http.Client
}

// NewChatGenerator 构造 ChatGenerator。
func NewChatGenerator(baseURL, apiKey, model string, timeout time.Duration) *ChatGenerator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ChatGenerator{
		url:    chatURL(baseURL),
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: timeout},
	}
}

func chatURL(baseURL string) string {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if strings.HasSuffix(baseURL, "/chat/completions") {
		return baseURL
	}
	return baseURL + "/chat/completions"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

var instructions = map[Kind]string{
	KindSummary:        "Write three alternative professional resume summaries of two or three sentences. You may use <b>, <i> and <u>. Return one summary per line.",
	KindWorkSummary:    "Write four achievement bullet points for this role. Start each with a strong verb. Return one bullet per line without bullet characters.",
	KindProjectSummary: "Write three achievement bullet points for this project. Return one bullet per line without bullet characters.",
	KindSkills:         "List ten relevant skills for this candidate. Return one skill name per line and nothing else.",
}

// GenerateText implements Generator.
func (g *ChatGenerator) GenerateText(ctx context.Context, kind Kind, context string) ([]string, error) {
	instruction, ok := instructions[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: "You help people write resumes. " + instruction},
			{Role: "user", Content: context},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneratorUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read chat response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrGeneratorUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("chat completion failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("no choices in chat response")
	}
	return splitLines(parsed.Choices[0].Message.Content), nil
}

func splitLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-•* ")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
