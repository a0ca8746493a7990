package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"kaizen/internal/auth"
	"kaizen/internal/envelope"
	"kaizen/internal/errors"
)

var (
	tokenName        string
	tokenPermissions []string
	tokenRateLimit   int
	tokenShowRevoked bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage API tokens for the HTTP server",
	Long: `Create, list, rotate and revoke bearer tokens for the HTTP API.

Reads are always open. When api.requireAuth is set, every mutation needs a
token with the write or admin permission.

Examples:
  kaizen token create --name "CI" --permissions write
  kaizen token list --show-revoked
  kaizen token revoke kz_key_abc123`,
}

var tokenCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new API token",
	Long: `Create a new API token. The raw token is printed once and cannot be
recovered afterwards.

Permissions:
  read   - retrieval and listing
  write  - namespace, scope, knowledge and conflict mutations
  admin  - everything`,
	Args: cobra.NoArgs,
	RunE: runTokenCreate,
}

var tokenListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API tokens",
	Args:  cobra.NoArgs,
	RunE:  runTokenList,
}

var tokenRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an API token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(a *app) (*envelope.Response, error) {
			if err := a.authManager().RevokeKey(newContext(), args[0]); err != nil {
				return nil, err
			}
			return envelope.Operational(map[string]string{"revoked": args[0]}), nil
		})
	},
}

var tokenRotateCmd = &cobra.Command{
	Use:   "rotate <key-id>",
	Short: "Issue a new secret for an API token",
	Long: `Generate a new secret for an existing token, invalidating the old one. The
key ID stays the same.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cliLogs)
		if err != nil {
			return err
		}
		defer a.Close()

		key, raw, err := a.authManager().RotateKey(newContext(), args[0])
		if err != nil {
			return err
		}
		return printToken("API Token Rotated", key, raw)
	},
}

func init() {
	tokenCreateCmd.Flags().StringVar(&tokenName, "name", "", "Token name (required)")
	tokenCreateCmd.Flags().StringSliceVar(&tokenPermissions, "permissions", nil, "Permissions: read, write, admin (required)")
	tokenCreateCmd.Flags().IntVar(&tokenRateLimit, "rate-limit", 0, "Requests per second, 0 uses the server default")
	_ = tokenCreateCmd.MarkFlagRequired("name")
	_ = tokenCreateCmd.MarkFlagRequired("permissions")

	tokenListCmd.Flags().BoolVar(&tokenShowRevoked, "show-revoked", false, "Include revoked tokens")

	tokenCmd.AddCommand(tokenCreateCmd)
	tokenCmd.AddCommand(tokenListCmd)
	tokenCmd.AddCommand(tokenRevokeCmd)
	tokenCmd.AddCommand(tokenRotateCmd)
	rootCmd.AddCommand(tokenCmd)
}

func runTokenCreate(cmd *cobra.Command, args []string) error {
	perms, err := parsePermissions(tokenPermissions)
	if err != nil {
		return err
	}
	var rateLimit *int
	if tokenRateLimit > 0 {
		rateLimit = &tokenRateLimit
	}

	a, err := newApp(cliLogs)
	if err != nil {
		return err
	}
	defer a.Close()

	key, raw, err := a.authManager().CreateKey(newContext(), auth.CreateKeyOptions{
		Name:        tokenName,
		Permissions: perms,
		RateLimit:   rateLimit,
	})
	if err != nil {
		return err
	}
	return printToken("API Token Created", key, raw)
}

func runTokenList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cliLogs)
	if err != nil {
		return err
	}
	defer a.Close()

	keys, err := a.authManager().ListKeys(newContext(), tokenShowRevoked)
	if err != nil {
		return err
	}
	if OutputFormat(formatFlag) == FormatJSON {
		return printResponse(envelope.Operational(keys))
	}

	if len(keys) == 0 {
		fmt.Println("No API tokens.")
		return nil
	}
	fmt.Printf("%-24s %-20s %-18s %-20s %s\n", "ID", "NAME", "PERMISSIONS", "LAST USED", "STATUS")
	for _, k := range keys {
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.Local().Format("2006-01-02 15:04")
		}
		status := "active"
		if k.IsRevoked() {
			status = "revoked"
		}
		fmt.Printf("%-24s %-20s %-18s %-20s %s\n", k.ID, k.Name, joinPermissions(k.Permissions), lastUsed, status)
	}
	return nil
}

func parsePermissions(values []string) ([]auth.Permission, error) {
	var perms []auth.Permission
	for _, v := range values {
		p, ok := auth.ParsePermission(strings.ToLower(strings.TrimSpace(v)))
		if !ok {
			return nil, errors.NewInvalidParameterError("permissions",
				fmt.Sprintf("invalid permission %q (valid: %s)", v, joinPermissions(auth.ValidPermissions())))
		}
		perms = append(perms, p)
	}
	return perms, nil
}

func joinPermissions(perms []auth.Permission) string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return strings.Join(out, ",")
}

// printToken shows a freshly issued secret
func printToken(title string, key *auth.APIKey, raw string) error {
	if OutputFormat(formatFlag) == FormatJSON {
		return printResponse(envelope.Operational(map[string]interface{}{
			"key":   key,
			"token": raw,
		}))
	}
	fmt.Printf("%s:\n\n", title)
	fmt.Printf("  ID:          %s\n", key.ID)
	fmt.Printf("  Name:        %s\n", key.Name)
	fmt.Printf("  Permissions: %s\n", joinPermissions(key.Permissions))
	if key.RateLimit != nil {
		fmt.Printf("  Rate:        %d/s\n", *key.RateLimit)
	}
	fmt.Printf("  Created:     %s\n", key.CreatedAt.Format(time.RFC3339))
	fmt.Printf("\n  Token: %s\n\n", raw)
	fmt.Println("Save this token now. It will not be shown again.")
	return nil
}
