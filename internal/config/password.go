package config

import (
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// PasswordConfig holds the operator credential and the hashing parameters.
type PasswordConfig struct {
	BcryptCost int
	Pepper     string // optional global secret appended before hashing

	// OperatorHash is the bcrypt hash the login endpoint checks against.
	// Empty when only hashing is needed (hash-password command).
	OperatorHash string
}

// NewPasswordConfig reads BCRYPT_COST (default: 12), PASSWORD_PEPPER and
// OPERATOR_PASSWORD_HASH.
func NewPasswordConfig() (*PasswordConfig, error) {
	costStr := os.Getenv("BCRYPT_COST")
	if costStr == "" {
		costStr = "12"
	}

	cost, err := strconv.Atoi(costStr)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %v", err)
	}

	cfg := &PasswordConfig{
		BcryptCost:   cost,
		Pepper:       os.Getenv("PASSWORD_PEPPER"),
		OperatorHash: os.Getenv("OPERATOR_PASSWORD_HASH"),
	}
	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *PasswordConfig) normalize() error {
	if c.BcryptCost < 10 || c.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", c.BcryptCost)
	}
	if c.OperatorHash != "" {
		if _, err := bcrypt.Cost([]byte(c.OperatorHash)); err != nil {
			return fmt.Errorf("OPERATOR_PASSWORD_HASH is not a bcrypt hash: %w", err)
		}
	}
	return nil
}

// HashPassword hashes a password using bcrypt (with optional pepper).
func (c *PasswordConfig) HashPassword(pw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(c.peppered(pw)), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a stored hash (with optional pepper).
func (c *PasswordConfig) VerifyPassword(pw, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(c.peppered(pw))) == nil
}

// VerifyOperator checks pw against OPERATOR_PASSWORD_HASH.
// Always false when no operator hash is configured.
func (c *PasswordConfig) VerifyOperator(pw string) bool {
	return c.VerifyPassword(pw, c.OperatorHash)
}

func (c *PasswordConfig) peppered(pw string) string {
	if c.Pepper == "" {
		return pw
	}
	return pw + c.Pepper
}
