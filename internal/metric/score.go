/*
PURPOSE:
  Turns a free-text judge reply into a score in [0, 1].

REQUIREMENTS:
  User-specified:
  - A reply that carries no usable score is a failure, never a silent 0.

  Implementation-discovered:
  - Judges echo prompt labels and scales ("Score (0-1): 0.8",
    "On a 0-1 scale: 0.9"), so the verdict is the LAST number that is
    not part of a range.
  - Ratios ("8/10", "4 out of 5") and percentages ("85%", "0.5%") are
    normalised; the percent sign must directly follow its number.

ARCHITECTURE INTEGRATION:
  - Called by: internal/metric/judged.go

ERROR HANDLING:
  - Returns error for empty replies, replies without a verdict, zero
    denominators and scores outside [0, 1].

IMPLEMENTATION RULES:
  - No regexp backtracking tricks: numbers are located once, then the
    separators between neighbours are inspected.

USAGE:
  score, err := metric.ParseScore("Score: 0.8")

SELF-HEALING INSTRUCTIONS:
  - If a judge model adopts a new reply shape, add it to TestParseScore first.

RELATED FILES:
  - internal/metric/judged.go

MAINTENANCE:
  - Keep prompts free of bare numbers where possible.
*/

package metric

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var numberPattern = regexp.MustCompile(`\d*\.?\d+`)

// ParseScore extracts the verdict from a judge reply.
func ParseScore(text string) (float64, error) {
	reply := strings.TrimSpace(text)
	if reply == "" {
		return 0, fmt.Errorf("empty judge response")
	}

	locs := numberPattern.FindAllStringIndex(reply, -1)
	var (
		score float64
		found bool
	)
	for i := 0; i < len(locs); i++ {
		start, end := locs[i][0], locs[i][1]
		val, err := strconv.ParseFloat(reply[start:end], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number %q: %w", reply[start:end], err)
		}

		if i+1 < len(locs) {
			next := locs[i+1]
			switch sep := strings.ToLower(strings.TrimSpace(reply[end:next[0]])); sep {
			case "-", "to":
				// "0-1", "0 to 1": a scale, not a verdict.
				i++
				continue
			case "/", "out of":
				den, err := strconv.ParseFloat(reply[next[0]:next[1]], 64)
				if err != nil {
					return 0, fmt.Errorf("invalid number %q: %w", reply[next[0]:next[1]], err)
				}
				if den == 0 {
					return 0, fmt.Errorf("zero denominator in %q", reply)
				}
				val /= den
				end = next[1]
				i++
			}
		}

		if strings.HasPrefix(reply[end:], "%") {
			val /= 100
		}
		if isNegative(reply, start) {
			val = -val
		}
		score, found = val, true
	}

	if !found {
		return 0, fmt.Errorf("no numeric score in response: %q", reply)
	}
	if score < 0 || score > 1 {
		return 0, fmt.Errorf("score out of range: %v", score)
	}
	return score, nil
}

// isNegative reports whether the number at start carries a minus sign that is
// not a range dash between two numbers.
func isNegative(s string, start int) bool {
	if start == 0 || s[start-1] != '-' {
		return false
	}
	if start == 1 {
		return true
	}
	prev := s[start-2]
	return !(prev >= '0' && prev <= '9')
}
