package speech

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hammamikhairi/monan/internal/logger"
)

var _ Synthesizer = (*AzureClient)(nil)

// maxAudioBytes bounds a single synthesized clip.
const maxAudioBytes = 8 << 20

type AzureOption func(*AzureClient)

// WithVoice picks a neural voice. Empty keeps the default.
func WithVoice(voice string) AzureOption {
	return func(c *AzureClient) {
		if voice != "" {
			c.voice = voice
		}
	}
}

func WithAudioFormat(format string) AzureOption {
	return func(c *AzureClient) { c.format = format }
}

func WithHTTPTimeout(d time.Duration) AzureOption {
	return func(c *AzureClient) { c.http.Timeout = d }
}

// WithEndpoint overrides the region-derived URL.
func WithEndpoint(url string) AzureOption {
	return func(c *AzureClient) { c.endpoint = url }
}

// AzureClient turns text into WAV through the Azure Speech REST API.
type AzureClient struct {
	key      string
	endpoint string
	voice    string
	format   string
	http     *http.Client
	log      *logger.Logger
}

func NewAzureClient(key, region string, log *logger.Logger, opts ...AzureOption) *AzureClient {
	c := &AzureClient{
		key:      key,
		endpoint: "https://" + region + ".tts.speech.microsoft.com/cognitiveservices/v1",
		voice:    DefaultVoice,
		format:   DefaultAudioFormat,
		http:     &http.Client{Timeout: 30 * time.Second},
		log:      log.Named("azure"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *AzureClient) Voice() string { return c.voice }

// Synthesize returns the audio for text in the configured output format.
func (c *AzureClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	doc, err := ssml(c.voice, text)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("speech: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("X-Microsoft-OutputFormat", c.format)
	req.Header.Set("User-Agent", "MonAn/1.0")

	c.log.Debug("synthesizing %d runes as %s", len([]rune(text)), c.voice)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech: post: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes))
	if err != nil {
		return nil, fmt.Errorf("speech: read audio: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech: azure status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	c.log.Debug("received %d audio bytes", len(body))
	return body, nil
}

type ssmlVoice struct {
	Lang string `xml:"xml:lang,attr"`
	Name string `xml:"name,attr"`
	Text string `xml:",chardata"`
}

type ssmlSpeak struct {
	XMLName xml.Name  `xml:"speak"`
	Version string    `xml:"version,attr"`
	Lang    string    `xml:"xml:lang,attr"`
	Voice   ssmlVoice `xml:"voice"`
}

// ssml wraps text in a speak document. The marshaller escapes dish text,
// which can carry '&' or angle brackets.
func ssml(voice, text string) ([]byte, error) {
	lang := voiceLang(voice)
	doc, err := xml.Marshal(ssmlSpeak{
		Version: "1.0",
		Lang:    lang,
		Voice:   ssmlVoice{Lang: lang, Name: voice, Text: text},
	})
	if err != nil {
		return nil, fmt.Errorf("speech: encode ssml: %w", err)
	}
	return doc, nil
}
