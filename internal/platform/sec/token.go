// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateSecureToken returns byteLength random bytes from the OS CSPRNG,
// hex encoded. The raw value is handed to the client once and never stored.
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec_generate_token_failed: %w", err)
	}
	return hex.EncodeToString(buffer), nil
}

// HashToken returns the lowercase hex SHA-256 digest of a raw token.
// Only this digest is persisted.
func HashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
