/*
PURPOSE:
  Exact token counts for diagnostics.
  Truncation never depends on this package; it only enriches log lines when
  count_tokens is enabled.

REQUIREMENTS:
  User-specified:
  - Optional tokenizer counts next to character lengths.

  Implementation-discovered:
  - Unknown models fall back to cl100k_base.
  - The encoding loads lazily, once.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine
  - Uses: pkoukk/tiktoken-go

ERROR HANDLING:
  - A nil Counter counts nothing; encoding load errors drop the tokens attribute.

IMPLEMENTATION RULES:
  - Never affect truncation results.

USAGE:
  c := tokens.NewCounter("gpt-4o-mini")
  logger.Info("msg", c.Attrs(text)...)

SELF-HEALING INSTRUCTIONS:
  - tiktoken downloads encodings on first use; set TIKTOKEN_CACHE_DIR for offline runs.

RELATED FILES:
  - internal/engine/runner.go

MAINTENANCE:
  - None.
*/

package tokens

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// Counter counts tokens with a tiktoken encoding. A nil *Counter counts nothing.
type Counter struct {
	model string

	once    sync.Once
	encoder *tiktoken.Tiktoken
	err     error
}

// NewCounter returns a counter for model, falling back to cl100k_base when
// tiktoken does not know the model. The encoding is loaded on first use.
func NewCounter(model string) *Counter {
	return &Counter{model: model}
}

func (c *Counter) load() {
	encoder, err := tiktoken.EncodingForModel(c.model)
	if err != nil {
		encoder, err = tiktoken.GetEncoding(defaultEncoding)
		if err != nil {
			c.err = fmt.Errorf("get encoding: %w", err)
			return
		}
	}
	c.encoder = encoder
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) (int, error) {
	if c == nil {
		return 0, fmt.Errorf("token counting disabled")
	}
	c.once.Do(c.load)
	if c.err != nil {
		return 0, c.err
	}
	if text == "" {
		return 0, nil
	}
	return len(c.encoder.Encode(text, nil, nil)), nil
}

// Attrs returns slog key/value pairs for text: its character length and,
// when counting works, its token count.
func (c *Counter) Attrs(text string) []any {
	attrs := []any{"chars", len([]rune(text))}
	if c == nil {
		return attrs
	}
	if n, err := c.Count(text); err == nil {
		attrs = append(attrs, "tokens", n)
	}
	return attrs
}
