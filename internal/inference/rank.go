package inference

import (
	"image"
	"math"
	"sort"

	"github.com/hammamikhairi/monan/internal/domain"
)

// fillTensor writes img into dst as normalized float32 in the given
// layout. dst must hold 3*S*S values where S is the image side.
func fillTensor(dst []float32, img *image.RGBA, layout Layout, mean, std [3]float32) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	plane := w * h

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+3]
			for c := 0; c < 3; c++ {
				v := (float32(px[c])/255 - mean[c]) / std[c]
				switch layout {
				case LayoutNHWC:
					dst[(y*w+x)*3+c] = v
				default:
					dst[c*plane+y*w+x] = v
				}
			}
		}
	}
}

// softmax converts logits to probabilities in place.
func softmax(v []float32) {
	if len(v) == 0 {
		return
	}
	maxV := v[0]
	for _, x := range v[1:] {
		if x > maxV {
			maxV = x
		}
	}
	var sum float64
	for i, x := range v {
		e := math.Exp(float64(x - maxV))
		v[i] = float32(e)
		sum += e
	}
	if sum == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / sum)
	}
}

// rank pairs scores with labels and orders them by descending score. The
// sort is stable, so equal scores keep the model's output order. NaN
// scores sink to the bottom. topK <= 0 returns everything.
func rank(scores []float32, labels []string, topK int) []domain.Prediction {
	n := min(len(scores), len(labels))
	out := make([]domain.Prediction, n)
	for i := 0; i < n; i++ {
		out[i] = domain.Prediction{ClassName: labels[i], Score: float64(scores[i])}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Score, out[j].Score
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return a > b
	})
	if topK > 0 && topK < len(out) {
		out = out[:topK]
	}
	return out
}
