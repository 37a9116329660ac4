package chunker

import (
	"strings"
	"unicode/utf8"
)

// splitter is a recursive character splitter: it cuts on the coarsest separator
// present, merges pieces up to size with overlap, and recurses into pieces that
// are still too long using the finer separators.
type splitter struct {
	size    int
	overlap int
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

func (s *splitter) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var finer []string
	for i, candidate := range separators {
		if candidate == "" {
			sep = ""
			break
		}
		if strings.Contains(text, candidate) {
			sep = candidate
			finer = separators[i+1:]
			break
		}
	}

	var pieces []string
	if sep == "" {
		for _, r := range text {
			pieces = append(pieces, string(r))
		}
	} else {
		for _, p := range strings.Split(text, sep) {
			if p != "" {
				pieces = append(pieces, p)
			}
		}
	}

	var out, pending []string
	for _, piece := range pieces {
		if runeLen(piece) < s.size {
			pending = append(pending, piece)
			continue
		}
		if len(pending) > 0 {
			out = append(out, s.merge(pending, sep)...)
			pending = nil
		}
		if len(finer) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, s.split(piece, finer)...)
		}
	}
	if len(pending) > 0 {
		out = append(out, s.merge(pending, sep)...)
	}
	return out
}

// merge packs pieces into windows of at most size characters, carrying up to
// overlap characters of trailing context into the next window.
func (s *splitter) merge(pieces []string, sep string) []string {
	sepLen := runeLen(sep)
	joinLen := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	var docs, current []string
	total := 0
	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n+joinLen(len(current)) > s.size && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
				docs = append(docs, doc)
			}
			for total > s.overlap || (total+n+joinLen(len(current)) > s.size && total > 0) {
				total -= runeLen(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		current = append(current, piece)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}
	if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}
