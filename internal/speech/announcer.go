// Package speech reads recognition results aloud with Azure text-to-speech.
// When credentials or an audio device are missing the app runs silent
// through NoOp.
package speech

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/hammamikhairi/monan/internal/logger"
)

// Synthesizer turns text into WAV audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Voice() string
}

// Playback plays WAV audio, blocking until done.
type Playback interface {
	Play(ctx context.Context, wav []byte) error
	Stop()
}

// Voice queues text to be spoken.
type Voice interface {
	Say(text string, priority Priority)
	Interrupt()
}

var _ Voice = (*Announcer)(nil)

// AnnouncerOption configures the Announcer.
type AnnouncerOption func(*Announcer)

// WithChunkSize sets the approximate max character count per TTS request.
// Longer text is split at sentence boundaries and synthesized in parallel.
func WithChunkSize(n int) AnnouncerOption {
	return func(a *Announcer) { a.chunkSize = n }
}

// WithMaxQueue caps pending requests; the lowest priority is dropped
// first when full.
func WithMaxQueue(n int) AnnouncerOption {
	return func(a *Announcer) {
		if n > 0 {
			a.maxQueue = n
		}
	}
}

// WithCache replaces the default in-memory audio cache.
func WithCache(c *AudioCache) AnnouncerOption {
	return func(a *Announcer) { a.cache = c }
}

// Announcer serializes all speech through one pipeline:
// queue -> chunk -> synthesize (parallel, cached) -> play (sequential).
// Higher priority items are spoken first.
type Announcer struct {
	tts    Synthesizer
	player Playback
	log    *logger.Logger
	cache  *AudioCache

	mu          sync.Mutex
	queue       []SpeechRequest
	notify      chan struct{}
	speaking    bool
	interrupted bool
	chunkSize   int
	maxQueue    int

	cancel context.CancelFunc
	done   chan struct{}
}

// NewAnnouncer creates a speech dispatcher. Call Start to begin speaking.
func NewAnnouncer(tts Synthesizer, player Playback, log *logger.Logger, opts ...AnnouncerOption) *Announcer {
	a := &Announcer{
		tts:       tts,
		player:    player,
		log:       log,
		notify:    make(chan struct{}, 1),
		chunkSize: 200,
		maxQueue:  16,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.cache == nil {
		a.cache = NewAudioCache(tts.Voice(), "", false, log)
	}
	return a
}

// Say queues text at the given priority. Non-blocking. Queuing at
// PriorityNormal or above flushes stale PriorityLow items.
func (a *Announcer) Say(text string, priority Priority) {
	text = cleanForSpeech(text)
	if text == "" {
		return
	}

	a.mu.Lock()
	if priority >= PriorityNormal {
		a.flushLowLocked()
	}
	a.queue = append(a.queue, SpeechRequest{Text: text, Priority: priority, QueuedAt: time.Now()})
	if len(a.queue) > a.maxQueue {
		a.dropLowestLocked()
	}
	qLen := len(a.queue)
	a.mu.Unlock()

	a.log.Debug("announcer: queued (priority=%d, queue_len=%d): %s", priority, qLen, truncate(text, 60))

	if priority >= PriorityCritical {
		a.player.Stop()
	}
	select {
	case a.notify <- struct{}{}:
	default:
	}
}

// Interrupt stops playback and clears the queue.
func (a *Announcer) Interrupt() {
	a.mu.Lock()
	a.queue = a.queue[:0]
	a.interrupted = true
	a.mu.Unlock()

	a.player.Stop()
	a.log.Debug("announcer: interrupted")
}

// QueueLen returns the number of pending requests.
func (a *Announcer) QueueLen() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.queue)
}

// IsSpeaking reports whether audio is being synthesized or played.
func (a *Announcer) IsSpeaking() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.speaking
}

// Cache returns the audio cache, for stats.
func (a *Announcer) Cache() *AudioCache { return a.cache }

// Start launches the processing goroutine. Calling it twice is a no-op.
func (a *Announcer) Start(ctx context.Context) {
	a.mu.Lock()
	if a.done != nil {
		a.mu.Unlock()
		return
	}
	ctx, a.cancel = context.WithCancel(ctx)
	a.done = make(chan struct{})
	done := a.done
	a.mu.Unlock()

	go func() {
		defer close(done)
		a.loop(ctx)
	}()
	a.log.Debug("announcer started (voice %s)", a.tts.Voice())
}

// Stop halts playback and waits for the goroutine to exit.
func (a *Announcer) Stop() {
	a.mu.Lock()
	cancel, done := a.cancel, a.done
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	a.player.Stop()
	<-done
}

// Prefetch synthesizes texts in the background so later Says start
// instantly. Already cached texts are skipped.
func (a *Announcer) Prefetch(ctx context.Context, texts ...string) {
	for _, text := range texts {
		for _, chunk := range a.splitChunks(cleanForSpeech(text)) {
			if chunk == "" || a.cache.Has(chunk) {
				continue
			}
			go func(t string) {
				if _, err := a.synthesize(ctx, t); err != nil {
					a.log.Error("prefetch: synthesis failed: %v", err)
				}
			}(chunk)
		}
	}
}

func (a *Announcer) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.notify:
			a.drain(ctx)
		}
	}
}

func (a *Announcer) drain(ctx context.Context) {
	for ctx.Err() == nil {
		a.mu.Lock()
		a.interrupted = false
		a.mu.Unlock()

		item, ok := a.dequeue()
		if !ok {
			return
		}

		a.setSpeaking(true)
		a.speak(ctx, item)
		a.setSpeaking(false)
	}
}

func (a *Announcer) setSpeaking(v bool) {
	a.mu.Lock()
	a.speaking = v
	a.mu.Unlock()
}

// dequeue pops the highest priority item, oldest first among equals.
func (a *Announcer) dequeue() (SpeechRequest, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.queue) == 0 {
		return SpeechRequest{}, false
	}
	best := 0
	for i, item := range a.queue {
		if item.Priority > a.queue[best].Priority {
			best = i
		}
	}
	item := a.queue[best]
	a.queue = append(a.queue[:best], a.queue[best+1:]...)
	return item, true
}

func (a *Announcer) flushLowLocked() {
	n := 0
	for _, item := range a.queue {
		if item.Priority > PriorityLow {
			a.queue[n] = item
			n++
		}
	}
	a.queue = a.queue[:n]
}

// dropLowestLocked removes the newest item of the lowest priority.
func (a *Announcer) dropLowestLocked() {
	worst := len(a.queue) - 1
	for i := len(a.queue) - 1; i >= 0; i-- {
		if a.queue[i].Priority < a.queue[worst].Priority {
			worst = i
		}
	}
	a.log.Debug("announcer: queue full, dropped: %s", truncate(a.queue[worst].Text, 40))
	a.queue = append(a.queue[:worst], a.queue[worst+1:]...)
}

func (a *Announcer) speak(ctx context.Context, req SpeechRequest) {
	a.log.Debug("announcer: speaking (priority=%d, waited=%s): %s",
		req.Priority, time.Since(req.QueuedAt).Round(time.Millisecond), truncate(req.Text, 60))

	chunks := a.splitChunks(req.Text)

	type result struct {
		idx   int
		audio []byte
	}
	results := make(chan result, len(chunks))
	for i, chunk := range chunks {
		go func(idx int, text string) {
			audio, err := a.synthesize(ctx, text)
			if err != nil {
				a.log.Error("announcer: chunk %d synthesis failed: %v", idx, err)
			}
			results <- result{idx, audio}
		}(i, chunk)
	}

	slots := make([][]byte, len(chunks))
	for range chunks {
		r := <-results
		slots[r.idx] = r.audio
	}

	for i, audio := range slots {
		if audio == nil {
			continue
		}
		a.mu.Lock()
		abort := a.interrupted
		a.mu.Unlock()
		if abort || ctx.Err() != nil {
			return
		}
		if err := a.player.Play(ctx, audio); err != nil {
			a.log.Error("announcer: chunk %d playback failed: %v", i, err)
		}
	}
}

func (a *Announcer) synthesize(ctx context.Context, text string) ([]byte, error) {
	if audio, ok := a.cache.Get(text); ok {
		return audio, nil
	}
	audio, err := a.tts.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	a.cache.Put(text, audio)
	return audio, nil
}

// splitChunks breaks text into sentence-boundary chunks of about
// chunkSize characters.
func (a *Announcer) splitChunks(text string) []string {
	if a.chunkSize <= 0 || len(text) <= a.chunkSize {
		return []string{text}
	}

	var chunks []string
	var current strings.Builder
	for _, s := range splitSentences(text) {
		if current.Len() > 0 && current.Len()+len(s) > a.chunkSize {
			if c := strings.TrimSpace(current.String()); c != "" {
				chunks = append(chunks, c)
			}
			current.Reset()
		}
		current.WriteString(s)
	}
	if c := strings.TrimSpace(current.String()); c != "" {
		chunks = append(chunks, c)
	}
	return chunks
}

// splitSentences splits at . ! ? keeping the punctuation and trailing
// whitespace with the preceding sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		current.WriteRune(runes[i])
		if runes[i] == '.' || runes[i] == '!' || runes[i] == '?' {
			for i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
				i++
				current.WriteRune(runes[i])
			}
			sentences = append(sentences, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

// truncate shortens a string for logging without splitting a rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
