// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire platform.

It defines default timeouts, rate limits, and cross-cutting keys that are shared
between different layers of the system.

Categories:

  - Server Timing: Read/Write/Idle timeouts for the HTTP server.
  - Rate Limiting: Burst capacities and IP tracking TTLs.
  - Sessions: cookie names, token size and lifetime.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "projectflow-auth"
	AppVersion = "0.1.0-dev"
)

// # Server Timing

const (
	// DefaultReadTimeout is the maximum duration for reading the entire request.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum duration before timing out writes of the response.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultIdleTimeout is the maximum amount of time to wait for the next request.
	DefaultIdleTimeout = 120 * time.Second

	// DefaultReadHeaderTimeout is the amount of time allowed to read request headers.
	DefaultReadHeaderTimeout = 2 * time.Second

	// GlobalRequestTimeout is the deadline for the entire request lifecycle.
	GlobalRequestTimeout = 30 * time.Second

	// ShutdownTimeout is how long we wait for in-flight requests to complete during shutdown.
	ShutdownTimeout = 30 * time.Second

	// BootstrapTimeout bounds one data store initialization attempt.
	BootstrapTimeout = 20 * time.Second

	// SweepTimeout bounds one expired-session sweep.
	SweepTimeout = 30 * time.Second
)

// # Rate Limiting

const (
	// DefaultRateLimitRPS is the requests per second allowed per IP.
	DefaultRateLimitRPS = 20.0

	// DefaultRateLimitBurst is the maximum burst allowed for the rate limiter.
	DefaultRateLimitBurst = 40

	// RateLimitCleanupInterval is how often old IP entries are removed from memory.
	RateLimitCleanupInterval = 1 * time.Minute

	// RateLimitClientTTL is how long a client must be idle before its entry is deleted.
	RateLimitClientTTL = 3 * time.Minute
)

// # Sessions

const (
	// SessionCookieName carries the raw session token.
	SessionCookieName = "pf_session"

	// LegacySessionCookieName is the cookie used by older clients. It is never
	// read, only cleared together with [SessionCookieName].
	LegacySessionCookieName = "pf_token"

	// SessionCookiePath scopes the cookie to the whole site.
	SessionCookiePath = "/"

	// DefaultSessionTTL is the session lifetime and the cookie Max-Age.
	DefaultSessionTTL = 12 * time.Hour

	// SessionTokenBytes is the entropy of a raw session token (256 bits).
	SessionTokenBytes = 32

	// DefaultSweepSchedule is the cron spec of the expired-session sweeper.
	DefaultSweepSchedule = "@every 15m"
)

// # Credentials

const (
	// MinPasswordLength is the shortest password accepted at signup.
	MinPasswordLength = 6

	// DefaultBcryptCost is the bcrypt work factor.
	DefaultBcryptCost = 10

	// LegacyExecutorPrefix marks retired self-signup executor usernames.
	LegacyExecutorPrefix = "admin3-"
)

// # HTTP Headers

const (
	HeaderXRequestID      = "X-Request-ID"
	HeaderXRealIP         = "X-Real-IP"
	HeaderXForwardedFor   = "X-Forwarded-For"
	HeaderXForwardedProto = "X-Forwarded-Proto"
	HeaderOrigin          = "Origin"
	HeaderAuthorization   = "Authorization"
)

// # JSON Field Identifiers

const (
	FieldError    = "error"
	FieldCode     = "code"
	FieldDetails  = "details"
	FieldMessage  = "message"
	FieldStatus   = "status"
	FieldUser     = "user"
	FieldRoles    = "roles"
	FieldSuccess  = "success"
	FieldChecks   = "checks"
	FieldUsername = "username"
	FieldPassword = "password"
	FieldRole     = "role"
)

// # Database Schemas

const (
	SchemaUsers = "users"
)

// # Redis Prefixes

const (
	// RedisPrefixSession prefixes the key holding one session, keyed by token hash.
	RedisPrefixSession = "session:"

	// RedisPrefixAccountSessions prefixes the per-account index of session hashes.
	RedisPrefixAccountSessions = "session:account:"
)
