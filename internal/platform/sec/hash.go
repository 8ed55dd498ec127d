// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides the cryptographic primitives used by authentication:
// bcrypt password hashing and opaque session tokens.
//
// # Architecture
//
// This package isolates security-sensitive code from the domain logic. Raw
// secrets (passwords, tokens) enter here and only their digests leave.
package sec

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a plain-text password using the bcrypt algorithm.
// A cost of 0 selects [bcrypt.DefaultCost].
func HashPassword(plainTextPassword string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), cost)
	if err != nil {
		return "", fmt.Errorf("sec_hash_password_failed: %w", err)
	}
	return string(hashedBytes), nil
}

// CheckPasswordHash compares a plain-text password with its hashed version.
func CheckPasswordHash(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// placeholderHashes caches one placeholder hash per bcrypt cost.
var placeholderHashes sync.Map

// placeholderHash returns a hash of a fixed secret at the given cost. It is
// compared against when the account has no usable hash, so a failed login costs
// the same whether or not the username exists.
func placeholderHash(cost int) string {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	once, _ := placeholderHashes.LoadOrStore(cost, sync.OnceValue(func() string {
		hash, err := bcrypt.GenerateFromPassword([]byte("projectflow-placeholder"), cost)
		if err != nil {
			return ""
		}
		return string(hash)
	}))
	return once.(func() string)()
}

// BurnPasswordCheck performs a bcrypt comparison whose result is discarded. Pass
// the cost used for real password hashes; 0 selects [bcrypt.DefaultCost].
func BurnPasswordCheck(plainTextPassword string, cost int) {
	_ = CheckPasswordHash(plainTextPassword, placeholderHash(cost))
}
