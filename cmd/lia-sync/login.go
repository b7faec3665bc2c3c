package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Exchange an identity credential for an upload token",
	RunE:  runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)

	loginCmd.Flags().String("email", "", "Account email (required)")
	loginCmd.Flags().String("credential", "", "Identity-provider credential (required)")
	loginCmd.MarkFlagRequired("email")
	loginCmd.MarkFlagRequired("credential")
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, _ := cmd.Flags().GetString("email")
	credential, _ := cmd.Flags().GetString("credential")

	a, err := loadApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.Auth.Login(cmd.Context(), email, credential)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", resp.Data.User.Email)
	return nil
}
