package secrets

import "regexp"

// Pattern defines a secret detection pattern. When the regex has a capture
// group, the group is the secret; otherwise the whole match is.
type Pattern struct {
	Name       string
	Type       SecretType
	Severity   Severity
	Regex      *regexp.Regexp
	MinEntropy float64 // 0 disables the entropy gate
}

// BuiltinPatterns are the formats checked on every write.
var BuiltinPatterns = []Pattern{
	{
		Name:     "aws_access_key_id",
		Type:     SecretTypeAWSAccessKey,
		Severity: SeverityCritical,
		Regex:    regexp.MustCompile(`(?:^|[^A-Z0-9])((?:A3T[A-Z0-9]|AKIA|ABIA|ACCA|ASIA)[A-Z0-9]{16})(?:[^A-Z0-9]|$)`),
	},
	{
		Name:     "github_token",
		Type:     SecretTypeGitHubToken,
		Severity: SeverityCritical,
		Regex:    regexp.MustCompile(`(?:ghp|gho|ghu|ghs|ghr)_[A-Za-z0-9]{36,}|github_pat_[A-Za-z0-9]{22}_[A-Za-z0-9]{59}`),
	},
	{
		Name:     "stripe_live_key",
		Type:     SecretTypeStripeKey,
		Severity: SeverityCritical,
		Regex:    regexp.MustCompile(`(?:sk|rk)_live_[A-Za-z0-9]{24,}`),
	},
	{
		Name:     "slack_token",
		Type:     SecretTypeSlackToken,
		Severity: SeverityHigh,
		Regex:    regexp.MustCompile(`xox[bpa]-[0-9]{10,13}-[0-9A-Za-z-]{20,}`),
	},
	{
		Name:     "slack_webhook",
		Type:     SecretTypeSlackWebhook,
		Severity: SeverityMedium,
		Regex:    regexp.MustCompile(`https://hooks\.slack\.com/services/T[A-Z0-9]{8,}/B[A-Z0-9]{8,}/[A-Za-z0-9]{24}`),
	},
	{
		Name:     "private_key",
		Type:     SecretTypePrivateKey,
		Severity: SeverityCritical,
		Regex:    regexp.MustCompile(`-----BEGIN (?:RSA |EC |DSA |OPENSSH |PGP )?PRIVATE KEY(?: BLOCK)?-----`),
	},
	{
		Name:       "jwt",
		Type:       SecretTypeJWT,
		Severity:   SeverityMedium,
		Regex:      regexp.MustCompile(`eyJ[A-Za-z0-9_-]{8,}\.eyJ[A-Za-z0-9_-]{8,}\.[A-Za-z0-9_-]{16,}`),
		MinEntropy: 3.0,
	},
	{
		Name:     "google_api_key",
		Type:     SecretTypeGoogleAPIKey,
		Severity: SeverityHigh,
		Regex:    regexp.MustCompile(`AIza[A-Za-z0-9_-]{35}`),
	},
	{
		Name:     "npm_token",
		Type:     SecretTypeNPMToken,
		Severity: SeverityHigh,
		Regex:    regexp.MustCompile(`npm_[A-Za-z0-9]{36}`),
	},
	{
		Name:     "kaizen_token",
		Type:     SecretTypeKaizenToken,
		Severity: SeverityCritical,
		Regex:    regexp.MustCompile(`kz_sk_[a-f0-9]{32,}`),
	},
	{
		Name:       "generic_api_key",
		Type:       SecretTypeGenericAPIKey,
		Severity:   SeverityMedium,
		Regex:      regexp.MustCompile(`(?i)(?:api[_-]?key|apikey)['":\s=]+['"]?([A-Za-z0-9_-]{20,64})['"]?`),
		MinEntropy: 3.5,
	},
	{
		Name:       "generic_secret",
		Type:       SecretTypeGenericSecret,
		Severity:   SeverityMedium,
		Regex:      regexp.MustCompile(`(?i)(?:secret|password|passwd|pwd|token)['":\s=]+['"]?([A-Za-z0-9!@#$%^&*()_+\-=]{12,64})['"]?`),
		MinEntropy: 3.5,
	},
	{
		Name:       "password_in_url",
		Type:       SecretTypePasswordInURL,
		Severity:   SeverityHigh,
		Regex:      regexp.MustCompile(`[a-z][a-z0-9+.-]*://[^:/\s@]+:([^@/\s]{3,})@[^/\s]+`),
		MinEntropy: 2.5,
	},
}
