// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package role

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/projectflow/projectflow/internal/platform/constants"
)

// Normalize returns the canonical form of a username: NFC, lowercased, trimmed,
// with every run of internal whitespace collapsed to a single space.
//
// NFC runs before and after lowercasing so a capital produced by composition is
// still lowercased. Normalize(Normalize(x)) == Normalize(x) for every x.
func Normalize(username string) string {
	composed := norm.NFC.String(strings.ToLower(norm.NFC.String(username)))
	return strings.Join(strings.Fields(composed), " ")
}

// IsLegacyExecutor reports whether username uses the retired executor
// self-signup prefix. The check runs on the normalized form.
func IsLegacyExecutor(username string) bool {
	return strings.HasPrefix(Normalize(username), constants.LegacyExecutorPrefix)
}
