package freight

import (
	"fmt"
	"strconv"
)

const (
	FirstAgentCode  = "10000"
	agentCodeDigits = 5
)

// NextAgentCode returns the code following highest, or FirstAgentCode when
// no agent exists yet.
func NextAgentCode(highest string, exists bool) (string, error) {
	if !exists {
		return FirstAgentCode, nil
	}
	n, err := strconv.Atoi(highest)
	if err != nil {
		return "", fmt.Errorf("invalid agent code %q: %w", highest, err)
	}
	return fmt.Sprintf("%0*d", agentCodeDigits, n+1), nil
}

// HighestAgentCode picks the numerically largest code.
func HighestAgentCode(codes []string) (string, bool) {
	best, bestN, found := "", -1, false
	for _, c := range codes {
		n, err := strconv.Atoi(c)
		if err != nil {
			continue
		}
		if n > bestN {
			best, bestN, found = c, n, true
		}
	}
	return best, found
}

// ValidAgentCode reports whether code is five ASCII digits.
func ValidAgentCode(code string) bool {
	if len(code) != agentCodeDigits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
