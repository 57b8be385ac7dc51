/*
PURPOSE:
  Shrinks a text blob to fit a model context budget before it is handed
  to the metric evaluator.

REQUIREMENTS:
  User-specified:
  - Honour a token budget and a hard character ceiling.
  - No tokenizer dependency: 4 characters per token is the estimate.

  Implementation-discovered:
  - Lengths are counted in runes. Byte slicing would split multibyte
    characters in non-English summaries.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine (batch and single-case runners)

ERROR HANDLING:
  - None. Always returns a string no longer than the ceiling.

IMPLEMENTATION RULES:
  - Shrink the budget by 0.8 (integer truncation) until the prefix fits
    or the budget reaches the 200 token floor, then hard cut.

USAGE:
  ctx := truncate.Adaptive(text, 1500, 6000)

SELF-HEALING INSTRUCTIONS:
  - If the evaluator input limit changes, change the callers' ceilings,
    not the constants here.

RELATED FILES:
  - internal/engine/runner.go

MAINTENANCE:
  - Keep the constants in sync with internal/config defaults.
*/

package truncate

const (
	// CharsPerToken is the expansion factor used to estimate characters from tokens.
	CharsPerToken = 4
	// FloorTokens stops the shrink loop; below it the hard cut applies.
	FloorTokens = 200
	// ShrinkFactor is applied to the token budget on every retry.
	ShrinkFactor = 0.8
)

// Adaptive returns a prefix of text that is at most maxChars characters long.
// The prefix length starts at maxTokens*CharsPerToken and shrinks
// geometrically while it exceeds maxChars.
func Adaptive(text string, maxTokens, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}

	runes := []rune(text)
	for maxTokens > FloorTokens {
		prefix := head(runes, maxTokens*CharsPerToken)
		if len(prefix) <= maxChars {
			return string(prefix)
		}
		maxTokens = int(float64(maxTokens) * ShrinkFactor)
	}
	return string(head(runes, maxChars))
}

// Prefix returns the first maxTokens*CharsPerToken characters of text.
func Prefix(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	return string(head([]rune(text), maxTokens*CharsPerToken))
}

func head(runes []rune, n int) []rune {
	if n < 0 {
		n = 0
	}
	if n > len(runes) {
		return runes
	}
	return runes[:n]
}
