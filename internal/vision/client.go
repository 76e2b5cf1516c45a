// Package vision classifies dish photos with a remote multimodal chat
// model. It is the network alternative to the on-device ONNX gateway.
package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/hammamikhairi/monan/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// maxReplyBytes caps how much of a response body is read.
const maxReplyBytes = 1 << 20

// Message is one turn of a chat-completion conversation. Content is always
// sent in block form so text and images can share a turn.
type Message struct {
	Role    string    `json:"role"`
	Content []Content `json:"content"`
}

// TextMessage builds a turn holding a single text block.
func TextMessage(role, text string) Message {
	return Message{Role: role, Content: []Content{{Type: "text", Text: text}}}
}

// Content is either a text block or an image_url block.
type Content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

// ImageURL points at an image, usually a base64 data URL. Detail is
// "low", "high" or empty for the service default.
type ImageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type completionRequest struct {
	Model       string    `json:"model,omitempty"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type completionReply struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// serviceError is the error envelope OpenAI-style services return.
type serviceError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

var errNoChoices = errors.New("vision: reply carried no choices")

type ClientOption func(*Client)

// WithModel names the model. Azure deployments encode it in the URL and
// leave this empty.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

func WithTemperature(t float64) ClientOption {
	return func(c *Client) { c.temperature = t }
}

func WithMaxTokens(n int) ClientOption {
	return func(c *Client) { c.maxTokens = n }
}

func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient swaps the transport, mostly for tests.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

// Client posts to a chat/completions URL of an OpenAI-compatible service.
// Both the Azure "api-key" header and a bearer token are sent.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	http        *http.Client
	log         *logger.Logger
}

func NewClient(endpoint, apiKey string, log *logger.Logger, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:  endpoint,
		apiKey:    apiKey,
		maxTokens: 300,
		http:      &http.Client{Timeout: 30 * time.Second},
		log:       log.Named("vision"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Chat runs one completion and returns the first choice's text.
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	req, size, err := c.newRequest(ctx, messages)
	if err != nil {
		return "", err
	}
	c.log.Debug("posting %d bytes to %s", size, c.endpoint)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("vision: post: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return "", fmt.Errorf("vision: read reply: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, raw)
	}
	return c.decode(raw)
}

func (c *Client) newRequest(ctx context.Context, messages []Message) (*http.Request, int, error) {
	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("vision: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, fmt.Errorf("vision: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return req, len(body), nil
}

func (c *Client) decode(raw []byte) (string, error) {
	var reply completionReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return "", fmt.Errorf("vision: unmarshal reply: %w", err)
	}
	if len(reply.Choices) == 0 {
		return "", errNoChoices
	}
	first := reply.Choices[0]
	c.log.Debug("reply: %d prompt / %d completion tokens, finish=%s",
		reply.Usage.PromptTokens, reply.Usage.CompletionTokens, first.FinishReason)
	return first.Message.Content, nil
}

// statusError prefers the service's own message when the body is the
// usual error envelope, falling back to a clipped raw body.
func statusError(code int, body []byte) error {
	var env serviceError
	if json.Unmarshal(body, &env) == nil && env.Error.Message != "" {
		return fmt.Errorf("vision: status %d (%s): %s", code, env.Error.Code, env.Error.Message)
	}
	text := string(body)
	if len(text) > 200 {
		text = text[:197] + "..."
	}
	return fmt.Errorf("vision: status %d: %s", code, text)
}
