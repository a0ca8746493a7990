// Package secrets detects credentials in knowledge text before it is stored.
// Knowledge is served verbatim to every scope that inherits it, so a pasted
// token would leak well beyond the scope it was written to.
package secrets

import "strings"

// SecretType identifies the kind of secret detected.
type SecretType string

const (
	SecretTypeAWSAccessKey  SecretType = "aws_access_key"
	SecretTypeGitHubToken   SecretType = "github_token"
	SecretTypeStripeKey     SecretType = "stripe_key"
	SecretTypeSlackToken    SecretType = "slack_token"
	SecretTypeSlackWebhook  SecretType = "slack_webhook"
	SecretTypePrivateKey    SecretType = "private_key"
	SecretTypeJWT           SecretType = "jwt"
	SecretTypeGoogleAPIKey  SecretType = "google_api_key"
	SecretTypeNPMToken      SecretType = "npm_token"
	SecretTypeKaizenToken   SecretType = "kaizen_token"
	SecretTypeGenericAPIKey SecretType = "generic_api_key"
	SecretTypeGenericSecret SecretType = "generic_secret"
	SecretTypePasswordInURL SecretType = "password_in_url"
)

// Severity indicates the risk level of a finding.
type Severity string

const (
	SeverityCritical Severity = "critical" // live credentials, private keys
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium" // generic patterns gated by entropy
	SeverityLow      Severity = "low"
)

// Weight returns a numeric weight for sorting.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// Field is one named piece of text to scan, e.g. an entry's content.
type Field struct {
	Name string
	Text string
}

// Finding is a single detected secret. The raw value is never kept.
type Finding struct {
	Field      string     `json:"field"`
	Type       SecretType `json:"type"`
	Severity   Severity   `json:"severity"`
	Rule       string     `json:"rule"`
	Match      string     `json:"match"` // redacted
	Confidence float64    `json:"confidence"`
}

// Redact keeps the first keep characters of s and masks the rest.
func Redact(s string, keep int) string {
	if len(s) <= keep {
		return strings.Repeat("*", len(s))
	}
	masked := len(s) - keep
	if masked > 16 {
		masked = 16
	}
	return s[:keep] + strings.Repeat("*", masked)
}
