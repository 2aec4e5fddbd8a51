package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/forgo/saga/onboarding/internal/clientconfig"
	"github.com/forgo/saga/onboarding/pkg/jwt"
)

var (
	tokenKeyPath    string
	tokenPubKeyPath string
	tokenGenerate   bool
	tokenUserID     string
	tokenEmail      string
	tokenIssuer     string
	tokenExpMins    int
	tokenJSON       bool
	tokenSave       bool
)

var devTokenCmd = &cobra.Command{
	Use:   "dev-token",
	Short: "Sign a development access token",
	Long: `Sign an RS256 access token with a local private key, for use against a
development server configured with the matching public key.`,
	RunE: runDevToken,
}

func init() {
	devTokenCmd.Flags().StringVar(&tokenKeyPath, "key", "./keys/private.pem", "Path to JWT private key")
	devTokenCmd.Flags().StringVar(&tokenPubKeyPath, "public-key", "./keys/public.pem", "Where --generate writes the public key")
	devTokenCmd.Flags().BoolVar(&tokenGenerate, "generate", false, "Generate a key pair if the private key does not exist")
	devTokenCmd.Flags().StringVar(&tokenUserID, "user", "user:dev", "User ID for the token")
	devTokenCmd.Flags().StringVar(&tokenEmail, "email", "dev@saga.dev", "Email for the token")
	devTokenCmd.Flags().StringVar(&tokenIssuer, "issuer", "saga.forgo.software", "JWT issuer")
	devTokenCmd.Flags().IntVar(&tokenExpMins, "exp", 60*24*7, "Token expiration in minutes")
	devTokenCmd.Flags().BoolVar(&tokenJSON, "json", false, "Output as JSON")
	devTokenCmd.Flags().BoolVar(&tokenSave, "save", false, "Store the token in the client config file")
}

func runDevToken(cmd *cobra.Command, args []string) error {
	if tokenGenerate {
		if _, err := os.Stat(tokenKeyPath); errors.Is(err, os.ErrNotExist) {
			if err := jwt.GenerateKeyPair(tokenKeyPath, tokenPubKeyPath); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Generated %s and %s\n", tokenKeyPath, tokenPubKeyPath)
		}
	}

	jwtService, err := jwt.NewService(jwt.Config{
		PrivateKeyPath: tokenKeyPath,
		Issuer:         tokenIssuer,
		ExpirationMins: tokenExpMins,
	})
	if err != nil {
		return fmt.Errorf("%w (generate keys with --generate)", err)
	}

	expires := time.Now().Add(time.Duration(tokenExpMins) * time.Minute)
	signed, err := jwtService.Sign(jwt.Claims{
		UserID: tokenUserID,
		Email:  tokenEmail,
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   tokenUserID,
			ExpiresAt: gojwt.NewNumericDate(expires),
		},
	})
	if err != nil {
		return fmt.Errorf("sign token: %w", err)
	}

	if tokenSave {
		cfg, err := clientconfig.Load(configFile)
		if err != nil {
			return err
		}
		cfg.Token = signed
		if err := clientconfig.Save(configFile, cfg); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Token saved to %s\n", configFile)
	}

	out := cmd.OutOrStdout()
	if tokenJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"access_token": signed,
			"token_type":   "Bearer",
			"expires_in":   tokenExpMins * 60,
			"user_id":      tokenUserID,
			"email":        tokenEmail,
		})
	}

	fmt.Fprintf(out, "User ID:  %s\n", tokenUserID)
	fmt.Fprintf(out, "Email:    %s\n", tokenEmail)
	fmt.Fprintf(out, "Expires:  %s\n\n", expires.Format(time.RFC3339))
	fmt.Fprintln(out, signed)
	return nil
}
