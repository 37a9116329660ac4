package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"rag-assistant/internal/monitoring"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"
)

type countingEmbedder struct {
	mu    sync.Mutex
	calls [][]string
	fail  bool
}

func (c *countingEmbedder) Name() string { return "counting" }

func (c *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	c.calls = append(c.calls, append([]string(nil), texts...))
	c.mu.Unlock()
	if c.fail {
		return nil, errors.New("provider down")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t))}
	}
	return out, nil
}

func TestHashingIsDeterministicAndNormalized(t *testing.T) {
	h := NewHashing(64)
	a, err := h.Embed(context.Background(), []string{"Transmitter power is 20 dBm", "Transmitter power is 20 dBm"})
	require.NoError(t, err)
	assert.Equal(t, a[0], a[1])

	var norm float64
	for _, v := range a[0] {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestHashingEmptyTextIsZeroVector(t *testing.T) {
	vecs, err := NewHashing(32).Embed(context.Background(), []string{"  ...  "})
	require.NoError(t, err)
	assert.Len(t, vecs[0], 32)
	for _, v := range vecs[0] {
		assert.Zero(t, v)
	}
}

func TestHashingSimilarTextsAreCloser(t *testing.T) {
	h := NewHashing(512)
	vecs, err := h.Embed(context.Background(), []string{
		"antenna gain of the receiver",
		"receiver antenna gain",
		"quarterly revenue forecast",
	})
	require.NoError(t, err)
	assert.Greater(t, dot(vecs[0], vecs[1]), dot(vecs[0], vecs[2]))
}

func TestBatchedPreservesOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		texts := rapid.SliceOfN(rapid.StringMatching(`[a-z]{0,20}`), 0, 60).Draw(t, "texts")
		batch := rapid.IntRange(1, 7).Draw(t, "batch")
		inner := &countingEmbedder{}
		b := NewBatched(inner, batch, 3, nil)

		vecs, err := b.Embed(context.Background(), texts)
		if err != nil {
			t.Fatalf("embed: %v", err)
		}
		if len(vecs) != len(texts) {
			t.Fatalf("got %d vectors for %d texts", len(vecs), len(texts))
		}
		for i, txt := range texts {
			if vecs[i][0] != float32(len(txt)) {
				t.Fatalf("vector %d out of order", i)
			}
		}
		for _, call := range inner.calls {
			if len(call) > batch {
				t.Fatalf("batch of %d exceeds limit %d", len(call), batch)
			}
		}
	})
}

func TestBatchedFailsWhole(t *testing.T) {
	b := NewBatched(&countingEmbedder{fail: true}, 2, 2, nil)
	vecs, err := b.Embed(context.Background(), []string{"a", "b", "c"})
	assert.Error(t, err)
	assert.Nil(t, vecs)
}

func TestCachedOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{}
	m := monitoring.New()
	c := NewCached(inner, NewMemoryCache(), m, zap.NewNop())

	_, err := c.Embed(context.Background(), []string{"alpha", "beta"})
	require.NoError(t, err)
	vecs, err := c.Embed(context.Background(), []string{"beta", "gamma", "alpha"})
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{4}, {5}, {5}}, vecs)
	require.Len(t, inner.calls, 2)
	assert.Equal(t, []string{"gamma"}, inner.calls[1])
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EmbeddingCache.WithLabelValues("hit")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.EmbeddingCache.WithLabelValues("miss")))
}

func TestVectorCodecRoundTrip(t *testing.T) {
	in := []float32{0, -1.5, float32(math.Pi), 1e-7}
	out, err := decodeVector(encodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestOpenAIRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{{"embedding": []float32{1, 2}, "index": 0}},
		})
	}))
	defer srv.Close()

	c := NewOpenAI(srv.URL, "key", "nomic-embed-text", srv.Client())
	c.backoff = 0
	vecs, err := c.Embed(context.Background(), []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 2}}, vecs)
	assert.Equal(t, int32(3), hits.Load())
}

func TestOpenAIDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewOpenAI(srv.URL, "", "m", srv.Client())
	c.backoff = 0
	_, err := c.Embed(context.Background(), []string{"x"})
	assert.Error(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestDelayIsCapped(t *testing.T) {
	c := NewOpenAI("", "", "", nil)
	assert.Equal(t, c.backoff, c.delay(0))
	assert.LessOrEqual(t, c.delay(20).Seconds(), 5.0)
}

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
