// Package keys issues the opaque access keys that name a project's plugin.
package keys

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

// Prefix is prepended to every issued key.
const Prefix = "learn_"

// randomBytes is the entropy per key; hex encoding doubles it to 32 characters.
const randomBytes = 16

var keyPattern = regexp.MustCompile(`^learn_[0-9a-f]{32}$`)

// Issue returns a new access key. Keys are never derived from project data
// and are generated once per project.
func Issue() (string, error) {
	buf := make([]byte, randomBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return Prefix + hex.EncodeToString(buf), nil
}

// MustIssue is Issue for callers that cannot recover from an entropy failure.
func MustIssue() string {
	key, err := Issue()
	if err != nil {
		panic(err)
	}
	return key
}

// Valid reports whether key has the issued format.
func Valid(key string) bool {
	return keyPattern.MatchString(key)
}
