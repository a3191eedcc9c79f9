// Package rag supplies battle prompts with background context from a local
// text corpus. Retrieval failures degrade to empty context; they are never
// surfaced to callers.
package rag

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Retriever looks up context relevant to a question. An empty result is a
// valid "no context" answer.
type Retriever interface {
	FetchContext(ctx context.Context, question string) string
}

// NoopRetriever always returns empty context.
type NoopRetriever struct{}

func (NoopRetriever) FetchContext(context.Context, string) string { return "" }

// CorpusRetriever serves context from .txt files loaded at startup, scored by
// keyword overlap with the question. It stands in for an external vector
// search behind the same interface.
type CorpusRetriever struct {
	chunks []chunk
	topK   int
}

type chunk struct {
	text  string
	terms map[string]int
}

// NewCorpusRetriever loads every .txt file under dir and splits it into
// overlapping chunks. A missing or empty corpus is not an error; retrieval
// just returns empty context.
func NewCorpusRetriever(dir string, chunkSize, chunkOverlap, topK int) *CorpusRetriever {
	if chunkSize <= 0 {
		chunkSize = 1000
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		chunkOverlap = 200
	}
	if topK <= 0 {
		topK = 3
	}

	r := &CorpusRetriever{topK: topK}

	matches, err := filepath.Glob(filepath.Join(dir, "*.txt"))
	if err != nil || len(matches) == 0 {
		log.Printf("[RAG] No corpus files found in %s, context retrieval disabled", dir)
		return r
	}

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("[RAG] Failed to read %s: %v", path, err)
			continue
		}
		for _, text := range splitText(string(data), chunkSize, chunkOverlap) {
			r.chunks = append(r.chunks, chunk{text: text, terms: termCounts(text)})
		}
	}

	log.Printf("[RAG] Loaded %d chunks from %d corpus files", len(r.chunks), len(matches))
	return r
}

func (r *CorpusRetriever) FetchContext(ctx context.Context, question string) string {
	if len(r.chunks) == 0 {
		return ""
	}

	queryTerms := termCounts(question)
	if len(queryTerms) == 0 {
		return ""
	}

	type scored struct {
		idx   int
		score int
	}
	var ranked []scored
	for i, c := range r.chunks {
		s := 0
		for term := range queryTerms {
			s += c.terms[term]
		}
		if s > 0 {
			ranked = append(ranked, scored{idx: i, score: s})
		}
	}
	if len(ranked) == 0 {
		return ""
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > r.topK {
		ranked = ranked[:r.topK]
	}

	parts := make([]string, len(ranked))
	for i, s := range ranked {
		parts[i] = r.chunks[s.idx].text
	}
	return strings.Join(parts, "\n")
}

// splitText cuts text into chunks of roughly chunkSize characters with
// chunkOverlap characters of overlap, preferring paragraph then line breaks.
func splitText(text string, chunkSize, chunkOverlap int) []string {
	var chunks []string
	runes := []rune(text)

	for start := 0; start < len(runes); {
		end := start + chunkSize
		if end >= len(runes) {
			chunks = append(chunks, strings.TrimSpace(string(runes[start:])))
			break
		}

		cut := end
		window := string(runes[start:end])
		if i := strings.LastIndex(window, "\n\n"); i > chunkSize/2 {
			cut = start + i
		} else if i := strings.LastIndex(window, "\n"); i > chunkSize/2 {
			cut = start + i
		} else if i := strings.LastIndex(window, " "); i > chunkSize/2 {
			cut = start + i
		}

		chunks = append(chunks, strings.TrimSpace(string(runes[start:cut])))

		next := cut - chunkOverlap
		if next <= start {
			next = cut // overlap would stall; advance without it
		}
		start = next
	}

	out := chunks[:0]
	for _, c := range chunks {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}

func termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,;:!?\"'()[]{}")
		if len(w) < 3 {
			continue
		}
		counts[w]++
	}
	return counts
}
