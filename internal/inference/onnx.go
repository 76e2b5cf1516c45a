package inference

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/hammamikhairi/monan/internal/domain"
	"github.com/hammamikhairi/monan/internal/logger"
)

// Compile-time interface check.
var _ domain.InferenceGateway = (*ONNX)(nil)

var errClosed = errors.New("inference gateway closed")

// ONNX is an on-device gateway. Tensors are allocated once at load time
// and reused, so runs are serialized.
type ONNX struct {
	cfg  Config
	size int
	log  *logger.Logger

	mu     sync.Mutex
	in     *ort.Tensor[float32]
	out    *ort.Tensor[float32]
	sess   *ort.AdvancedSession
	closed bool
}

// NewONNX loads the runtime library and the model for square inputs of
// targetSize. Any failure wraps domain.ErrModelUnavailable and should end
// the session.
func NewONNX(cfg Config, targetSize int, log *logger.Logger) (*ONNX, error) {
	cfg.defaults()
	if targetSize <= 0 {
		return nil, fmt.Errorf("%w: invalid target size %d", domain.ErrModelUnavailable, targetSize)
	}
	for _, p := range []string{cfg.ModelPath, cfg.OnnxLib} {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
		}
	}

	log.Debug("initializing ONNX runtime (lib=%s)", cfg.OnnxLib)
	if !ort.IsInitialized() {
		ort.SetSharedLibraryPath(cfg.OnnxLib)
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("%w: runtime init: %v", domain.ErrModelUnavailable, err)
		}
	}

	g := &ONNX{cfg: cfg, size: targetSize, log: log}
	if err := g.load(); err != nil {
		g.release()
		ort.DestroyEnvironment()
		return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
	}

	log.Info("model loaded: %s (%d labels, %dx%d %s)",
		cfg.ModelPath, len(cfg.Labels), targetSize, targetSize, cfg.Layout)
	return g, nil
}

func (g *ONNX) load() error {
	s := int64(g.size)
	shape := ort.NewShape(1, 3, s, s)
	if g.cfg.Layout == LayoutNHWC {
		shape = ort.NewShape(1, s, s, 3)
	}

	var err error
	if g.in, err = ort.NewEmptyTensor[float32](shape); err != nil {
		return fmt.Errorf("input tensor: %w", err)
	}
	if g.out, err = ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(g.cfg.Labels)))); err != nil {
		return fmt.Errorf("output tensor: %w", err)
	}

	inInfo, outInfo, err := ort.GetInputOutputInfo(g.cfg.ModelPath)
	if err != nil {
		return fmt.Errorf("reading model io: %w", err)
	}
	if len(inInfo) == 0 || len(outInfo) == 0 {
		return errors.New("model has no inputs or outputs")
	}

	g.sess, err = ort.NewAdvancedSession(
		g.cfg.ModelPath,
		[]string{inInfo[0].Name}, []string{outInfo[0].Name},
		[]ort.Value{g.in}, []ort.Value{g.out},
		nil,
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}
	return nil
}

// TargetSize returns the square side the model was loaded for.
func (g *ONNX) TargetSize() int { return g.size }

// Labels returns the label set in output order.
func (g *ONNX) Labels() []string { return append([]string(nil), g.cfg.Labels...) }

// Classify runs the model on img. Errors come back inside the outcome,
// with the runtime's message verbatim.
func (g *ONNX) Classify(ctx context.Context, img *domain.ImageArtifact) domain.ClassificationOutcome {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return domain.OutcomeFromError(errClosed)
	}
	if img == nil || img.Pixels == nil {
		return domain.OutcomeFromError(errors.New("no image to classify"))
	}
	if img.Size != g.size || img.Pixels.Bounds().Dx() != g.size || img.Pixels.Bounds().Dy() != g.size {
		return domain.OutcomeFromError(fmt.Errorf("image is %dx%d, model expects %dx%d",
			img.Pixels.Bounds().Dx(), img.Pixels.Bounds().Dy(), g.size, g.size))
	}
	if err := ctx.Err(); err != nil {
		return domain.OutcomeFromError(err)
	}

	start := time.Now()
	fillTensor(g.in.GetData(), img.Pixels, g.cfg.Layout, g.cfg.Mean, g.cfg.Std)
	filled := time.Now()

	if err := g.sess.Run(); err != nil {
		g.log.Error("inference run failed: %v", err)
		return domain.OutcomeFromError(err)
	}
	done := time.Now()

	scores := append([]float32(nil), g.out.GetData()...)
	if g.cfg.Softmax {
		softmax(scores)
	}
	preds := rank(scores, g.cfg.Labels, g.cfg.TopK)

	g.log.Debug("classified %s in %s (top=%v)", img.ID, done.Sub(start), preds[:min(1, len(preds))])
	return domain.ClassificationOutcome{
		Predictions: preds,
		Timing: domain.PredictionTiming{
			Preprocess: filled.Sub(start),
			Inference:  done.Sub(filled),
		},
	}
}

// Close releases the session, tensors and runtime environment. Safe to
// call more than once.
func (g *ONNX) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil
	}
	g.closed = true
	g.release()
	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("destroying ONNX environment: %w", err)
	}
	g.log.Debug("ONNX runtime released")
	return nil
}

func (g *ONNX) release() {
	if g.sess != nil {
		g.sess.Destroy()
		g.sess = nil
	}
	if g.in != nil {
		g.in.Destroy()
		g.in = nil
	}
	if g.out != nil {
		g.out.Destroy()
		g.out = nil
	}
}
