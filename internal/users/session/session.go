// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session stores login sessions.

A session is identified by the SHA-256 digest of a random 256-bit token. The raw
token lives only in the client's cookie; the store never sees it, so a leaked
store cannot be replayed.

Backends:

  - PostgresRepository: users.session table (default).
  - RedisRepository: one key per session with native TTL, plus a per-account index.

Expired rows are removed lazily on lookup and periodically by [Sweeper].
*/
package session

import "time"

// Session is one authenticated login.
type Session struct {
	// Hash is the hex SHA-256 of the raw token. It is the session identity.
	Hash       string    `json:"sessionIdHash"`
	AccountID  string    `json:"accountId"`
	ExpiresAt  time.Time `json:"expiresAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
	UserAgent  string    `json:"userAgent,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// IsExpired reports whether the session is past its expiry at now.
// A session expiring exactly at now is expired.
func (s *Session) IsExpired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
