package service

import (
	"sort"
	"strings"
	"unicode"

	"github.com/cloo-solutions/finsight/internal/domain"
)

const defaultSnippetMaxChars = 500

// queryTokens lower-cases the query and splits it on whitespace. Leading and
// trailing punctuation is trimmed so "funds?" still matches "funds".
func queryTokens(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		t := strings.TrimFunc(f, unicode.IsPunct)
		if t != "" {
			tokens = append(tokens, t)
		}
	}
	return tokens
}

// keywordScore sums the occurrence counts of every token in text.
func keywordScore(text string, tokens []string) int {
	lower := strings.ToLower(text)
	score := 0
	for _, t := range tokens {
		score += strings.Count(lower, t)
	}
	return score
}

// KeywordSearch ranks chunks by keyword overlap with query and returns at most
// k of them. Query words are lower-cased whitespace fields with surrounding
// punctuation removed, and a chunk scores the substring count of each word.
// Chunks without any match are dropped; equal scores keep corpus order.
func KeywordSearch(chunks []domain.Chunk, query string, k int) []domain.ScoredChunk {
	tokens := queryTokens(query)
	if len(tokens) == 0 || k <= 0 {
		return nil
	}

	scored := make([]domain.ScoredChunk, 0, len(chunks))
	for _, c := range chunks {
		if s := keywordScore(c.Text, tokens); s > 0 {
			scored = append(scored, domain.ScoredChunk{Chunk: c, Score: float64(s)})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored
}

// ExtractSnippet returns the lines of text that mention a query token, up to
// maxChars characters. Without any matching line it returns the leading maxChars.
func ExtractSnippet(text, query string, maxChars int) string {
	if maxChars <= 0 {
		maxChars = defaultSnippetMaxChars
	}
	tokens := queryTokens(query)

	var picked []string
	used := 0
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if !containsAny(lower, tokens) {
			continue
		}
		n := len([]rune(line))
		if len(picked) > 0 {
			n++ // newline separator
		}
		if used+n > maxChars {
			if len(picked) == 0 {
				picked = append(picked, truncateRunes(line, maxChars))
			}
			break
		}
		picked = append(picked, line)
		used += n
	}

	if len(picked) == 0 {
		return truncateRunes(text, maxChars)
	}
	return strings.Join(picked, "\n")
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
