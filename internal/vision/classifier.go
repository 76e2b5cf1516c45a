package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

// Compile-time interface check.
var _ domain.InferenceGateway = (*Classifier)(nil)

// Chatter is the slice of Client the classifier needs.
type Chatter interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

type reply struct {
	Predictions []labelScore `json:"predictions"`
}

// Classifier is an InferenceGateway backed by a chat model.
type Classifier struct {
	chat   Chatter
	labels []string
	size   int
	topK   int
	detail string
	log    *logger.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTopK limits the predictions requested and returned.
func WithTopK(k int) Option {
	return func(c *Classifier) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithDetail sets the image detail hint ("low" or "high").
func WithDetail(d string) Option {
	return func(c *Classifier) { c.detail = d }
}

// NewClassifier creates a remote gateway for images of targetSize.
func NewClassifier(chat Chatter, labels []string, targetSize int, log *logger.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		chat:   chat,
		labels: append([]string(nil), labels...),
		size:   targetSize,
		topK:   3,
		detail: "low",
		log:    log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TargetSize returns the square side images are sent at.
func (c *Classifier) TargetSize() int { return c.size }

// Close is a no-op; the HTTP client holds no session.
func (c *Classifier) Close() error { return nil }

// Classify sends the artifact's JPEG to the model. Transport and parse
// failures become error outcomes.
func (c *Classifier) Classify(ctx context.Context, img *domain.ImageArtifact) domain.ClassificationOutcome {
	if img == nil || len(img.JPEG) == 0 {
		return domain.OutcomeFromError(errors.New("no image to classify"))
	}

	start := time.Now()
	msgs := []Message{
		TextMessage(RoleSystem, fmt.Sprintf(PromptClassify, strings.Join(c.labels, ", "), c.topK)),
		{
			Role: RoleUser,
			Content: []Content{
				{Type: "text", Text: "Which dish is this?"},
				{Type: "image_url", ImageURL: &ImageURL{
					URL:    "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(img.JPEG),
					Detail: c.detail,
				}},
			},
		},
	}
	encoded := time.Now()

	raw, err := c.chat.Chat(ctx, msgs)
	if err != nil {
		c.log.Error("vision: classify %s: %v", img.ID, err)
		return domain.OutcomeFromError(err)
	}
	done := time.Now()

	preds, err := parseReply(raw, c.topK)
	if err != nil {
		c.log.Error("vision: %v\nraw: %s", err, raw)
		return domain.OutcomeFromError(err)
	}

	c.log.Debug("vision: classified %s in %s: %v", img.ID, done.Sub(start), preds)
	return domain.ClassificationOutcome{
		Predictions: preds,
		Timing: domain.PredictionTiming{
			Preprocess: encoded.Sub(start),
			Inference:  done.Sub(encoded),
		},
	}
}

// parseReply decodes the model's JSON and orders it by score. Labels are
// passed through untouched; an unknown label simply resolves to nothing.
func parseReply(raw string, topK int) ([]domain.Prediction, error) {
	var r reply
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &r); err != nil {
		return nil, fmt.Errorf("vision: parsing reply: %w", err)
	}

	preds := make([]domain.Prediction, 0, len(r.Predictions))
	for _, p := range r.Predictions {
		label := strings.TrimSpace(p.Label)
		if label == "" {
			continue
		}
		preds = append(preds, domain.Prediction{ClassName: label, Score: p.Score})
	}
	sort.SliceStable(preds, func(i, j int) bool { return preds[i].Score > preds[j].Score })
	if topK > 0 && len(preds) > topK {
		preds = preds[:topK]
	}
	return preds, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}
