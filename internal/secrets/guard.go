package secrets

import (
	"fmt"
	"log/slog"
	"sort"

	"kaizen/internal/errors"
	"kaizen/internal/knowledge"
)

// Policy decides what happens when knowledge text contains a secret.
type Policy string

const (
	PolicyOff    Policy = "off"
	PolicyWarn   Policy = "warn"
	PolicyReject Policy = "reject"
)

// ParsePolicy converts a config value into a Policy.
func ParsePolicy(s string) (Policy, bool) {
	switch p := Policy(s); p {
	case PolicyOff, PolicyWarn, PolicyReject:
		return p, true
	default:
		return "", false
	}
}

// WarningCode tags envelope warnings raised for findings.
const WarningCode = "SECRET_DETECTED"

// Guard scans entry text on write. A nil Guard scans nothing.
type Guard struct {
	policy   Policy
	patterns []Pattern
	logger   *slog.Logger
}

// NewGuard creates a guard with the builtin patterns.
func NewGuard(policy Policy, logger *slog.Logger) *Guard {
	return &Guard{policy: policy, patterns: BuiltinPatterns, logger: logger}
}

// Policy returns the active policy.
func (g *Guard) Policy() Policy {
	if g == nil {
		return PolicyOff
	}
	return g.policy
}

// Scan returns every finding in fields, most severe first. It ignores the
// policy.
func (g *Guard) Scan(fields ...Field) []Finding {
	if g == nil {
		return nil
	}
	var findings []Finding
	seen := map[string]bool{}
	for _, f := range fields {
		if f.Text == "" {
			continue
		}
		for _, p := range g.patterns {
			for _, m := range p.Regex.FindAllStringSubmatch(f.Text, -1) {
				secret := m[0]
				if len(m) > 1 && m[1] != "" {
					secret = m[1]
				}
				if p.MinEntropy > 0 && ShannonEntropy(secret) < p.MinEntropy {
					continue
				}
				if isLikelyPlaceholder(secret) {
					continue
				}
				key := f.Name + "\x00" + secret
				if seen[key] {
					continue
				}
				seen[key] = true
				findings = append(findings, Finding{
					Field:      f.Name,
					Type:       p.Type,
					Severity:   p.Severity,
					Rule:       p.Name,
					Match:      Redact(secret, 4),
					Confidence: confidence(secret, p),
				})
			}
		}
	}
	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Weight() > findings[j].Severity.Weight()
	})
	return findings
}

// Check applies the policy. Under reject any finding becomes a
// SECRET_DETECTED error; under warn the findings are returned for the
// caller to surface.
func (g *Guard) Check(fields ...Field) ([]Finding, error) {
	if g.Policy() == PolicyOff {
		return nil, nil
	}
	findings := g.Scan(fields...)
	if len(findings) == 0 {
		return nil, nil
	}

	g.logger.Warn("Secret detected in knowledge text",
		"policy", string(g.policy),
		"findings", len(findings),
		"rule", findings[0].Rule,
		"field", findings[0].Field,
	)
	if g.policy == PolicyReject {
		return nil, errors.NewSecretDetectedError(findings[0].Field, findings[0].Rule).WithDetails(findings)
	}
	return findings, nil
}

// Describe renders a finding as a one-line warning.
func Describe(f Finding) string {
	return fmt.Sprintf("%s looks like a %s (%s, %s severity); store a reference instead",
		f.Field, f.Rule, f.Match, f.Severity)
}

// EntryFields lists the scannable text of a knowledge entry. Nil pointers
// are skipped so updates only scan what they change.
func EntryFields(content, context *string, meta knowledge.Metaknowledge) []Field {
	var fields []Field
	if content != nil {
		fields = append(fields, Field{Name: "content", Text: *content})
	}
	if context != nil {
		fields = append(fields, Field{Name: "context", Text: *context})
	}
	for _, m := range meta {
		fields = append(fields, Field{Name: "metaknowledge." + m.Label, Text: m.Text})
	}
	return fields
}
