package chunker

import (
	"errors"
	"strings"
	"unicode/utf8"

	"rag-assistant/internal/models"

	"github.com/google/uuid"
)

// MinChunkLength is the trimmed length a chunk must exceed to be indexed.
const MinChunkLength = 10

// MinChunkSize is the smallest chunk size any plan may choose.
const MinChunkSize = 100

var ErrEmptyResult = errors.New("no chunk survived filtering")

// Document is one input to Split.
type Document struct {
	Source string
	Text   string
}

// Plan is a chunk size and overlap, both counted in characters.
type Plan struct {
	Size    int
	Overlap int
}

// PlanFor picks a chunk plan from the average and longest document length in a batch.
// Overlap is always strictly smaller than Size and Size never drops below MinChunkSize.
func PlanFor(avgLength, longest int) Plan {
	switch {
	case avgLength < 500:
		// short batches stay whole, one chunk per document
		size := longest
		if size < MinChunkSize {
			size = MinChunkSize
		}
		if size > 1500 {
			return Plan{Size: 1500, Overlap: 300}
		}
		return Plan{Size: size, Overlap: 0}
	case avgLength < 2000:
		return Plan{Size: 800, Overlap: 200}
	case avgLength > 10000:
		return Plan{Size: 2000, Overlap: 400}
	default:
		return Plan{Size: 1500, Overlap: 300}
	}
}

// Chunker splits documents into overlapping chunks sized for the batch.
type Chunker struct {
	minLength  int
	separators []string
}

func New() *Chunker {
	return &Chunker{
		minLength:  MinChunkLength,
		separators: []string{"\n\n", "\n", " ", ""},
	}
}

// Split chunks every document with a plan computed from the whole batch.
func (c *Chunker) Split(docs []Document) ([]models.Chunk, Plan, error) {
	if len(docs) == 0 {
		return nil, Plan{}, ErrEmptyResult
	}

	total, longest := 0, 0
	for _, d := range docs {
		n := utf8.RuneCountInString(d.Text)
		total += n
		if n > longest {
			longest = n
		}
	}
	plan := PlanFor(total/len(docs), longest)

	s := &splitter{size: plan.Size, overlap: plan.Overlap}
	var chunks []models.Chunk
	for _, d := range docs {
		seq := 0
		for _, piece := range s.split(d.Text, c.separators) {
			piece = strings.TrimSpace(piece)
			if utf8.RuneCountInString(piece) <= c.minLength {
				continue
			}
			chunks = append(chunks, models.Chunk{
				ID:       uuid.NewString(),
				Content:  piece,
				Source:   d.Source,
				Sequence: seq,
			})
			seq++
		}
	}

	if len(chunks) == 0 {
		return nil, plan, ErrEmptyResult
	}
	return chunks, plan, nil
}

// CountBySource tallies chunks per document name.
func CountBySource(chunks []models.Chunk) map[string]int {
	out := make(map[string]int)
	for _, ch := range chunks {
		out[ch.Source]++
	}
	return out
}
