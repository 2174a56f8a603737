package search

import (
	"context"
	"strings"

	"github.com/poiesic/textgraph/core"
	"github.com/poiesic/textgraph/storage"
)

// Lexical branch scores. An exact lower-cased substring hit outranks the
// all-words heuristic by a wide margin.
const (
	lexicalExactScore     float32 = 0.95
	lexicalHeuristicScore float32 = 0.55
)

// Stop words to filter out for the all-words heuristic
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true,
}

// lexicalSearch scans all chunk text for literal matches of the query.
// Absence of matches is not an error, only an empty result.
func lexicalSearch(ctx context.Context, chunks storage.ChunkRepository, query string) ([]*core.SearchResult, error) {
	loweredQuery := strings.ToLower(query)

	var results []*core.SearchResult
	err := chunks.ScanChunks(ctx, func(chunk *core.Chunk) (bool, error) {
		score, ok := scoreLexicalMatch(chunk.Text, loweredQuery, query)
		if ok {
			results = append(results, &core.SearchResult{
				Chunk:  chunk,
				Score:  score,
				Branch: core.BranchLexical,
			})
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// scoreLexicalMatch scores a single chunk against the query.
// loweredQuery must be the lower-cased form of query.
func scoreLexicalMatch(text, loweredQuery, query string) (float32, bool) {
	if loweredQuery == "" {
		return 0, false
	}
	if strings.Contains(strings.ToLower(text), loweredQuery) {
		return lexicalExactScore, true
	}
	if containsAllQueryWords(text, query) {
		return lexicalHeuristicScore, true
	}
	return 0, false
}

// tokenizeAndFilter splits text into words, lowercases, trims punctuation, and removes stop words
func tokenizeAndFilter(text string) []string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		// Lowercase and trim punctuation
		cleaned := strings.ToLower(strings.Trim(word, ".,!?;:'\"-()[]{}"))

		// Skip stop words and empty strings
		if cleaned != "" && !stopWords[cleaned] {
			filtered = append(filtered, cleaned)
		}
	}

	return filtered
}

// containsAllQueryWords checks if all query words (after filtering) appear in the chunk text
func containsAllQueryWords(text, query string) bool {
	queryWords := tokenizeAndFilter(query)
	if len(queryWords) == 0 {
		return false
	}

	textWords := tokenizeAndFilter(text)
	textWordSet := make(map[string]bool, len(textWords))
	for _, word := range textWords {
		textWordSet[word] = true
	}

	for _, qWord := range queryWords {
		if !textWordSet[qWord] {
			return false
		}
	}

	return true
}
