package speech

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/hammamikhairi/monan/internal/logger"
)

var _ Playback = (*Player)(nil)

// pollInterval is how often Play checks whether the device drained.
const pollInterval = 10 * time.Millisecond

// Player feeds synthesized WAV to the sound card. oto permits one context
// per process, so construct a single Player and share it.
type Player struct {
	otoCtx *oto.Context
	log    *logger.Logger

	mu      sync.Mutex
	current *oto.Player
}

// NewPlayer opens the output device at the synthesis format. An error here
// means the caller should run without a voice.
func NewPlayer(log *logger.Logger) (*Player, error) {
	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   SampleRate,
		ChannelCount: ChannelCount,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, fmt.Errorf("speech: open audio device: %w", err)
	}
	<-ready

	log = log.Named("player")
	log.Debug("device ready at %d Hz, %d channel(s)", SampleRate, ChannelCount)
	return &Player{otoCtx: otoCtx, log: log}, nil
}

// Play blocks until the clip ends. Cancelling ctx or calling Stop cuts it
// short; neither is reported as an error.
func (p *Player) Play(ctx context.Context, wav []byte) error {
	pcm, err := extractPCM(wav)
	if err != nil {
		return err
	}

	out := p.otoCtx.NewPlayer(bytes.NewReader(pcm))
	p.setCurrent(out)
	defer p.setCurrent(nil)

	out.Play()
	p.log.Debug("playing %s of audio", clipLength(len(pcm)))

	poll := time.NewTicker(pollInterval)
	defer poll.Stop()
	for out.IsPlaying() {
		select {
		case <-ctx.Done():
			out.Pause()
		case <-poll.C:
		}
	}
	return out.Close()
}

// Stop pauses whatever is playing; Play then returns.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return
	}
	p.current.Pause()
	p.log.Debug("playback cut")
}

func (p *Player) setCurrent(out *oto.Player) {
	p.mu.Lock()
	p.current = out
	p.mu.Unlock()
}

// clipLength converts 16-bit PCM bytes into play time.
func clipLength(n int) time.Duration {
	frames := n / (2 * ChannelCount)
	return time.Duration(frames) * time.Second / SampleRate
}
