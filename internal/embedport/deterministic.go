package embedport

import (
	"context"
	"hash/fnv"
	"math"

	"chunkscope/internal/ports"
)

// deterministicEmbedder hashes byte 3-grams into a fixed-size vector and
// optionally L2-normalizes it. Kept near-identical to the teacher's
// internal/rag/embedder/embedder.go deterministicEmbedder: same
// fnv64a(seed||gram) hashing and sign-mapping scheme, since it is a test
// fixture rather than production logic.
type deterministicEmbedder struct {
	dim       int
	normalize bool
	seed      uint64
}

// NewDeterministicEmbedder returns a ports.Embedder requiring no network
// access, suitable for tests and for running the engine against the
// semantic chunking strategy without a real embedding provider
// configured. If normalize is true, vectors are L2-normalized; seed
// perturbs the hash so distinct embedders never collide.
func NewDeterministicEmbedder(dim int, normalize bool, seed uint64) ports.Embedder {
	if dim <= 0 {
		dim = 64
	}
	return &deterministicEmbedder{dim: dim, normalize: normalize, seed: seed}
}

func (d *deterministicEmbedder) Dimension() int { return d.dim }

func (d *deterministicEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, d.dim)
	b := []byte(text)
	if len(b) == 0 {
		return v, nil
	}
	if len(b) < 3 {
		addGram(d.seed, b, v)
	} else {
		for i := 0; i <= len(b)-3; i++ {
			addGram(d.seed, b[i:i+3], v)
		}
	}
	if d.normalize {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		if sum > 0 {
			inv := float32(1.0 / math.Sqrt(sum))
			for i := range v {
				v[i] *= inv
			}
		}
	}
	return v, nil
}

func addGram(seed uint64, gram []byte, v []float32) {
	h := fnv.New64a()
	if seed != 0 {
		var tmp [8]byte
		for i := 0; i < 8; i++ {
			tmp[i] = byte(seed >> (8 * i))
		}
		_, _ = h.Write(tmp[:])
	}
	_, _ = h.Write(gram)
	hv := h.Sum64()
	idx := int(hv % uint64(len(v)))
	w := float32(int32(hv>>32)) / float32(1<<31)
	v[idx] += w
}
