// Package tokens provides approximate token counting and response truncation
// for budgeting prompts and model outputs. Counts are estimates, not
// provider-exact tokenization.
package tokens

import (
	"strings"
	"unicode"
)

// Counter estimates the token count of a text.
type Counter interface {
	Count(text string) int
}

// WordCounter estimates tokens from the word count. English prose averages
// roughly 0.75 tokens per word.
type WordCounter struct {
	TokensPerWord float64
}

func NewWordCounter(tokensPerWord float64) *WordCounter {
	if tokensPerWord <= 0 {
		tokensPerWord = 0.75
	}
	return &WordCounter{TokensPerWord: tokensPerWord}
}

func (c *WordCounter) Count(text string) int {
	words := strings.Fields(text)
	return int(float64(len(words)) * c.TokensPerWord)
}

// CharCounter estimates tokens from the character count, roughly 4 characters
// per token for GPT-family models.
type CharCounter struct {
	CharsPerToken float64
}

func NewCharCounter(charsPerToken float64) *CharCounter {
	if charsPerToken <= 0 {
		charsPerToken = 4.0
	}
	return &CharCounter{CharsPerToken: charsPerToken}
}

func (c *CharCounter) Count(text string) int {
	return int(float64(len([]rune(text))) / c.CharsPerToken)
}

// TruncatePolicy selects how over-budget text is cut.
type TruncatePolicy string

const (
	// TruncateHard cuts at the estimated character position.
	TruncateHard TruncatePolicy = "hard"
	// TruncateWord backs up to the preceding word boundary.
	TruncateWord TruncatePolicy = "word"
)

// Truncate shortens text so its estimated token count fits maxTokens. Text
// already within budget is returned unchanged.
func Truncate(text string, maxTokens int, counter Counter, policy TruncatePolicy) string {
	total := counter.Count(text)
	if total <= maxTokens || total == 0 {
		return text
	}

	runes := []rune(text)
	cut := len(runes) * maxTokens / total
	if cut >= len(runes) {
		return text
	}

	if policy == TruncateWord {
		for cut > 0 && !unicode.IsSpace(runes[cut-1]) {
			cut--
		}
		for cut > 0 && unicode.IsSpace(runes[cut-1]) {
			cut--
		}
		if cut == 0 {
			// No boundary to back up to; fall back to a hard cut.
			cut = len(runes) * maxTokens / total
		}
	}

	return string(runes[:cut])
}
