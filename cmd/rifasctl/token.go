package main

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"github.com/epicstrade/rifas/pkg/jwt"
)

var steamIDPattern = regexp.MustCompile(`^\d{17}$`)

type mintOptions struct {
	keyPath    string
	issuer     string
	userID     string
	steamID    string
	persona    string
	role       string
	expMins    int
	outputJSON bool
}

func newTokenCmd() *cobra.Command {
	token := &cobra.Command{
		Use:   "token",
		Short: "Work with access tokens",
	}

	opts := mintOptions{}
	mint := &cobra.Command{
		Use:   "mint",
		Short: "Sign an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMint(cmd, opts)
		},
	}
	f := mint.Flags()
	f.StringVar(&opts.keyPath, "key", "./keys/private.pem", "Path to the JWT private key")
	f.StringVar(&opts.issuer, "issuer", "epicstrade.gg", "JWT issuer")
	f.StringVar(&opts.userID, "user", "user:dev-admin", "User record ID")
	f.StringVar(&opts.steamID, "steam-id", "76561197960287930", "SteamID64 of the user")
	f.StringVar(&opts.persona, "persona", "Admin", "Steam persona name")
	f.StringVar(&opts.role, "role", "admin", "Role claim (user or admin)")
	f.IntVar(&opts.expMins, "exp", 60*24*7, "Token expiration in minutes")
	f.BoolVar(&opts.outputJSON, "json", false, "Output as JSON")

	token.AddCommand(mint)
	return token
}

func runMint(cmd *cobra.Command, opts mintOptions) error {
	if !steamIDPattern.MatchString(opts.steamID) {
		return fmt.Errorf("steam-id must be a 17 digit SteamID64, got %q", opts.steamID)
	}
	if opts.role != "user" && opts.role != "admin" {
		return fmt.Errorf("role must be user or admin, got %q", opts.role)
	}
	if opts.expMins <= 0 {
		return fmt.Errorf("exp must be positive")
	}

	jwtService, err := jwt.NewService(jwt.Config{
		PrivateKeyPath: opts.keyPath,
		Issuer:         opts.issuer,
		ExpirationMins: opts.expMins,
	})
	if err != nil {
		return fmt.Errorf("load signing key (run `rifasctl keys generate` first): %w", err)
	}

	signed, err := jwtService.Sign(jwt.Claims{
		Subject:     opts.userID,
		SteamID:     opts.steamID,
		PersonaName: opts.persona,
		Role:        opts.role,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.outputJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"access_token": signed,
			"token_type":   "Bearer",
			"expires_in":   opts.expMins * 60,
			"user_id":      opts.userID,
			"steam_id":     opts.steamID,
			"role":         opts.role,
		})
	}

	expTime := time.Now().Add(time.Duration(opts.expMins) * time.Minute)
	fmt.Fprintln(out, "Token Generated")
	fmt.Fprintln(out, "===============")
	fmt.Fprintf(out, "User ID:  %s\n", opts.userID)
	fmt.Fprintf(out, "Steam ID: %s\n", opts.steamID)
	fmt.Fprintf(out, "Role:     %s\n", opts.role)
	fmt.Fprintf(out, "Expires:  %s\n", expTime.Format(time.RFC3339))
	fmt.Fprintln(out)
	fmt.Fprintln(out, signed)
	return nil
}
