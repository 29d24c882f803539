package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/epicstrade/rifas/pkg/jwt"
)

func newKeysCmd() *cobra.Command {
	keys := &cobra.Command{
		Use:   "keys",
		Short: "Manage JWT signing keys",
	}

	var (
		privatePath string
		publicPath  string
		force       bool
	)
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Write a new RSA key pair for signing access tokens",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				for _, p := range []string{privatePath, publicPath} {
					if _, err := os.Stat(p); err == nil {
						return fmt.Errorf("%s already exists, pass --force to overwrite", p)
					}
				}
			}
			for _, p := range []string{privatePath, publicPath} {
				if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
					return fmt.Errorf("create key directory: %w", err)
				}
			}
			if err := jwt.GenerateKeyPair(privatePath, publicPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Private key: %s\nPublic key:  %s\n", privatePath, publicPath)
			return nil
		},
	}
	generate.Flags().StringVar(&privatePath, "private", "./keys/private.pem", "Path for the private key")
	generate.Flags().StringVar(&publicPath, "public", "./keys/public.pem", "Path for the public key")
	generate.Flags().BoolVar(&force, "force", false, "Overwrite existing keys")

	keys.AddCommand(generate)
	return keys
}
