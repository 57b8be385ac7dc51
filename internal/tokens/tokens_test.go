package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNilCounter(t *testing.T) {
	var c *Counter

	_, err := c.Count("hello")
	assert.Error(t, err)
	assert.Equal(t, []any{"chars", 5}, c.Attrs("hello"))
}

func TestAttrs_CountsRunes(t *testing.T) {
	var c *Counter

	assert.Equal(t, []any{"chars", 2}, c.Attrs("频道"))
}
