package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/learn-overlay/internal/config"
	"github.com/spf13/cobra"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt hash for OPERATOR_PASSWORD_HASH",
	Long: `Hash the operator password with the configured BCRYPT_COST and
PASSWORD_PEPPER. The password is read from --password or the first line of stdin.`,
	RunE: runHashPassword,
}

var hashPasswordValue string

func init() {
	hashPasswordCmd.Flags().StringVar(&hashPasswordValue, "password", "", "Password to hash (default: read stdin)")
	rootCmd.AddCommand(hashPasswordCmd)
}

func runHashPassword(cmd *cobra.Command, _ []string) error {
	hash, err := hashPassword(hashPasswordValue, cmd.InOrStdin())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
	return err
}

func hashPassword(password string, stdin io.Reader) (string, error) {
	if password == "" {
		line, err := bufio.NewReader(stdin).ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return "", fmt.Errorf("password is required")
	}

	pw, err := config.NewPasswordConfig()
	if err != nil {
		return "", err
	}
	return pw.HashPassword(password)
}
