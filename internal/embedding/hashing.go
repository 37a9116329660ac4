package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\p{L}+|\p{N}+`)

// Hashing is an offline embedder using signed feature hashing over word
// unigrams and bigrams. It needs no provider and is deterministic, which makes
// it the embedder for tests and air-gapped deployments.
type Hashing struct {
	dim int
}

func NewHashing(dim int) *Hashing {
	if dim < 8 {
		dim = 256
	}
	return &Hashing{dim: dim}
}

func (h *Hashing) Name() string { return fmt.Sprintf("hashing/%d", h.dim) }

func (h *Hashing) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = h.vector(t)
	}
	return out, nil
}

func (h *Hashing) vector(text string) []float32 {
	vec := make([]float32, h.dim)
	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	for i, tok := range tokens {
		h.add(vec, tok, 1)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}

func (h *Hashing) add(vec []float32, feature string, weight float32) {
	hf := fnv.New64a()
	hf.Write([]byte(feature))
	sum := hf.Sum64()
	idx := int(sum % uint64(h.dim))
	if sum>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}
