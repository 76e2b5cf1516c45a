// Package inference runs the dish classifier on-device through ONNX
// Runtime. The model takes one RGB image and emits one score per label.
package inference

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Layout is the tensor memory order the model expects.
type Layout int

const (
	LayoutNCHW Layout = iota // [1, 3, S, S]
	LayoutNHWC               // [1, S, S, 3]
)

// String returns a human-readable layout.
func (l Layout) String() string {
	switch l {
	case LayoutNCHW:
		return "nchw"
	case LayoutNHWC:
		return "nhwc"
	default:
		return "unknown"
	}
}

// ParseLayout parses "nchw" or "nhwc" (case-insensitive).
func ParseLayout(s string) (Layout, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "nchw":
		return LayoutNCHW, nil
	case "nhwc":
		return LayoutNHWC, nil
	default:
		return 0, fmt.Errorf("unknown tensor layout %q", s)
	}
}

// DefaultLabels is the label set of the bundled model, in output order.
var DefaultLabels = []string{
	"banh_canh", "banh_chung", "banh_cuon", "banh_khot", "banh_mi",
	"banh_trang_nuong", "banh_xeo", "bun", "canh_chua", "chao_long",
	"com_tam", "goi_cuon", "hu_tieu", "mi_quang", "pho",
}

// Config holds the paths and tuning knobs for the ONNX gateway.
type Config struct {
	ModelPath string   // e.g. "models/dishes.onnx"
	OnnxLib   string   // e.g. "bin/libonnxruntime.so"
	Labels    []string // output order; DefaultLabels when empty

	Layout  Layout
	Mean    [3]float32 // per-channel, applied after scaling to [0,1]
	Std     [3]float32
	Softmax bool // apply softmax to raw logits
	TopK    int  // predictions returned; 0 means all
}

// ImageNet normalization, the usual choice for fine-tuned backbones.
var (
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}
)

func (c *Config) defaults() {
	if len(c.Labels) == 0 {
		c.Labels = DefaultLabels
	}
	if c.Std == ([3]float32{}) {
		c.Mean = ImageNetMean
		c.Std = ImageNetStd
	}
	for i := range c.Std {
		if c.Std[i] == 0 {
			c.Std[i] = 1
		}
	}
	if c.TopK < 0 || c.TopK > len(c.Labels) {
		c.TopK = 0
	}
}

// LoadLabels reads one label per line. Blank lines and lines starting
// with '#' are skipped.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening labels: %w", err)
	}
	defer f.Close()

	var labels []string
	seen := make(map[string]bool)
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if seen[line] {
			return nil, fmt.Errorf("duplicate label %q", line)
		}
		seen[line] = true
		labels = append(labels, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("no labels in %s", path)
	}
	return labels, nil
}
