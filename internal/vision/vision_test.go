package vision

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

type mockChat struct {
	reply string
	err   error
	got   []Message
}

func (m *mockChat) Chat(_ context.Context, msgs []Message) (string, error) {
	m.got = msgs
	return m.reply, m.err
}

var testLabels = []string{"pho", "bun", "banh_mi"}

func artifact() *domain.ImageArtifact {
	return &domain.ImageArtifact{ID: "img", Size: 224, JPEG: []byte{0xff, 0xd8, 0xff}}
}

func TestClassifierOutcomes(t *testing.T) {
	log := logger.New(logger.LevelOff, nil)

	tests := []struct {
		name      string
		reply     string
		err       error
		wantError string
		wantNames []string
	}{
		{
			name:      "ranked",
			reply:     `{"predictions":[{"label":"bun","score":0.2},{"label":"pho","score":0.9}]}`,
			wantNames: []string{"pho", "bun"},
		},
		{
			name:      "fenced",
			reply:     "```json\n{\"predictions\":[{\"label\":\"banh_mi\",\"score\":0.8}]}\n```",
			wantNames: []string{"banh_mi"},
		},
		{
			name:      "empty",
			reply:     `{"predictions":[]}`,
			wantNames: []string{},
		},
		{
			name:      "unknown label passes through",
			reply:     `{"predictions":[{"label":"sushi","score":0.7}]}`,
			wantNames: []string{"sushi"},
		},
		{
			name:      "trimmed to top k",
			reply:     `{"predictions":[{"label":"a","score":0.1},{"label":"b","score":0.5},{"label":"c","score":0.3},{"label":"d","score":0.9}]}`,
			wantNames: []string{"d", "b", "c"},
		},
		{
			name:      "transport error",
			err:       errors.New("vision: request failed: dial tcp: refused"),
			wantError: "vision: request failed: dial tcp: refused",
		},
		{
			name:      "not json",
			reply:     "It looks like phở!",
			wantError: "vision: parsing reply",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chat := &mockChat{reply: tt.reply, err: tt.err}
			c := NewClassifier(chat, testLabels, 224, log)

			out := c.Classify(context.Background(), artifact())
			if tt.wantError != "" {
				require.True(t, out.Failed())
				assert.Contains(t, out.Error, tt.wantError)
				return
			}
			require.False(t, out.Failed(), out.Error)
			names := make([]string, 0, len(out.Predictions))
			for _, p := range out.Predictions {
				names = append(names, p.ClassName)
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestClassifierPrompt(t *testing.T) {
	chat := &mockChat{reply: `{"predictions":[]}`}
	c := NewClassifier(chat, testLabels, 224, logger.New(logger.LevelOff, nil), WithTopK(2))

	c.Classify(context.Background(), artifact())
	require.Len(t, chat.got, 2)
	assert.Contains(t, chat.got[0].Content[0].Text, "pho, bun, banh_mi")
	assert.Contains(t, chat.got[0].Content[0].Text, "At most 2 predictions")

	img := chat.got[1].Content[1].ImageURL
	require.NotNil(t, img)
	assert.True(t, strings.HasPrefix(img.URL, "data:image/jpeg;base64,/9j/"))
}

func TestClassifierNoImage(t *testing.T) {
	c := NewClassifier(&mockChat{}, testLabels, 224, logger.New(logger.LevelOff, nil))
	assert.True(t, c.Classify(context.Background(), nil).Failed())
	assert.True(t, c.Classify(context.Background(), &domain.ImageArtifact{}).Failed())
	assert.Equal(t, 224, c.TargetSize())
	assert.NoError(t, c.Close())
}

func TestClientChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("api-key"))
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"max_tokens":300`)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"{\"predictions\":[]}"}}]}`)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", logger.New(logger.LevelOff, nil))
	reply, err := c.Chat(context.Background(), []Message{TextMessage(RoleUser, "hi")})
	require.NoError(t, err)
	assert.Equal(t, `{"predictions":[]}`, reply)
}

func TestClientErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"server error", http.StatusInternalServerError, "boom", "500"},
		{"no choices", http.StatusOK, `{"choices":[]}`, "no choices"},
		{"bad json", http.StatusOK, `{`, "unmarshal"},
		{"error envelope", http.StatusTooManyRequests, `{"error":{"code":"429","message":"rate limited"}}`, "rate limited"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "k", logger.New(logger.LevelOff, nil))
			_, err := c.Chat(context.Background(), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStripCodeFence(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFence("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFence("  {\"a\":1} "))
}
