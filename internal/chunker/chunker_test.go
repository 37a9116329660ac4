package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestPlanForBands(t *testing.T) {
	tests := []struct {
		name    string
		avg     int
		longest int
		want    Plan
	}{
		{"tiny batch keeps documents whole", 40, 60, Plan{Size: MinChunkSize, Overlap: 0}},
		{"short batch sized to longest", 300, 450, Plan{Size: 450, Overlap: 0}},
		{"short average with a long outlier", 480, 5000, Plan{Size: 1500, Overlap: 300}},
		{"short", 1200, 1900, Plan{Size: 800, Overlap: 200}},
		{"medium", 5000, 9000, Plan{Size: 1500, Overlap: 300}},
		{"long", 20000, 40000, Plan{Size: 2000, Overlap: 400}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlanFor(tt.avg, tt.longest))
		})
	}
}

func TestPlanInvariants(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		longest := rapid.IntRange(0, 100000).Draw(rt, "longest")
		avg := rapid.IntRange(0, longest).Draw(rt, "avg")
		p := PlanFor(avg, longest)
		if p.Overlap >= p.Size {
			rt.Fatalf("overlap %d >= size %d", p.Overlap, p.Size)
		}
		if p.Size < MinChunkSize {
			rt.Fatalf("size %d below floor", p.Size)
		}
	})
}

func TestSplitFiltersDegenerateChunks(t *testing.T) {
	c := New()
	chunks, _, err := c.Split([]Document{
		{Source: "a.txt", Text: "   \n\n  "},
		{Source: "b.txt", Text: "short"},
		{Source: "c.txt", Text: "a reasonable sentence about antennas"},
	})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "c.txt", chunks[0].Source)
	assert.Equal(t, 0, chunks[0].Sequence)
	assert.NotEmpty(t, chunks[0].ID)
}

func TestSplitEmptyResult(t *testing.T) {
	c := New()

	_, _, err := c.Split(nil)
	assert.ErrorIs(t, err, ErrEmptyResult)

	_, _, err = c.Split([]Document{{Source: "x", Text: "tiny"}, {Source: "y", Text: "  \n "}})
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestSplitLongDocumentOverlaps(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 400; i++ {
		sb.WriteString("The receiver sensitivity is minus ninety dBm. ")
		if i%10 == 9 {
			sb.WriteString("\n\n")
		}
	}
	text := sb.String()

	chunks, plan, err := New().Split([]Document{{Source: "manual.pdf", Text: text}})
	require.NoError(t, err)
	assert.Equal(t, Plan{Size: 2000, Overlap: 400}, plan)
	require.Greater(t, len(chunks), 5)

	for i, ch := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(ch.Content), plan.Size)
		assert.Equal(t, i, ch.Sequence)
	}
}

func TestSplitSingleChunkForShortBatch(t *testing.T) {
	docs := []Document{
		{Source: "one.txt", Text: "Transmitter power is 30 dBm.\n\nCable loss is 2 dB."},
		{Source: "two.txt", Text: "Antenna gain is 15 dBi on both sides of the link."},
	}
	chunks, _, err := New().Split(docs)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"one.txt": 1, "two.txt": 1}, CountBySource(chunks))
}

func TestSplitProperties(t *testing.T) {
	// words longer than MinChunkLength so no window is ever filtered out
	word := rapid.StringMatching(`[a-z]{11,14}`)
	rapid.Check(t, func(rt *rapid.T) {
		words := rapid.SliceOfN(word, 1, 800).Draw(rt, "words")
		var sb strings.Builder
		for i, w := range words {
			sb.WriteString(w)
			switch {
			case i%50 == 49:
				sb.WriteString("\n\n")
			case i%9 == 8:
				sb.WriteString("\n")
			default:
				sb.WriteString(" ")
			}
		}

		chunks, plan, err := New().Split([]Document{{Source: "doc", Text: sb.String()}})
		if err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}

		var normalized []string
		for _, ch := range chunks {
			if n := utf8.RuneCountInString(ch.Content); n > plan.Size || n <= MinChunkLength {
				rt.Fatalf("chunk length %d outside (%d, %d]", n, MinChunkLength, plan.Size)
			}
			normalized = append(normalized, strings.Join(strings.Fields(ch.Content), " "))
		}
		joined := " " + strings.Join(normalized, " ") + " "
		for _, w := range words {
			if !strings.Contains(joined, " "+w+" ") {
				rt.Fatalf("word %q lost", w)
			}
		}
	})
}
