package secrets

import (
	"math"
	"strings"
)

// ShannonEntropy returns the Shannon entropy of s in bits per character.
// Below 3.0 is rarely a secret; above 4.0 usually is.
func ShannonEntropy(s string) float64 {
	if len(s) == 0 {
		return 0
	}
	freq := make(map[rune]int)
	n := 0
	for _, r := range s {
		freq[r]++
		n++
	}
	var entropy float64
	for _, count := range freq {
		p := float64(count) / float64(n)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

var placeholders = []string{
	"example", "placeholder", "your_", "<your", "xxxx", "changeme",
	"dummy", "sample", "redacted", "${", "{{", "replace", "insert",
}

// isLikelyPlaceholder reports values that document a format instead of
// leaking one, such as AKIA...EXAMPLE or ${API_KEY}.
func isLikelyPlaceholder(s string) bool {
	lower := strings.ToLower(s)
	for _, p := range placeholders {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// confidence scores a match from its pattern and entropy.
func confidence(secret string, p Pattern) float64 {
	c := 0.7
	switch e := ShannonEntropy(secret); {
	case e > 4.0:
		c += 0.2
	case e > 3.5:
		c += 0.1
	}
	if p.Type == SecretTypeGenericAPIKey || p.Type == SecretTypeGenericSecret {
		c -= 0.1
	}
	if p.Severity == SeverityCritical && p.MinEntropy == 0 {
		c += 0.1
	}
	return math.Max(0, math.Min(1, c))
}
