// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package account holds the credential store of ProjectFlow.

An account exists for every username that has ever signed up or been provisioned
as an executor. Its role fields are a cache of the access group decision and are
re-synced from [role.Profile] on every signup, login and profile check.

# Architecture

  - Entities: Account, View (client-safe projection).
  - Contracts: [Repository], implemented on PostgreSQL by [PostgresRepository].
*/
package account

import (
	"time"

	"github.com/projectflow/projectflow/internal/users/role"
	"github.com/projectflow/projectflow/pkg/uuid"
)

// # Domain Entities

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusDisabled
}

// Account is a persisted credential record.
type Account struct {
	ID          string
	Username    string
	DisplayName string
	Email       string
	Avatar      string
	Role        role.Role
	Scope       string
	Permissions role.Permissions
	IsExecutor  bool

	// PasswordHash is nil until a password is set. Never serialized.
	PasswordHash *string

	Status    Status
	CreatedBy string
	UpdatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New builds an active account for a normalized username with role fields
// taken from profile. The account has no password.
func New(username string, profile *role.Profile, actor string) *Account {
	now := time.Now().UTC()
	acc := &Account{
		ID:        uuid.New(),
		Username:  username,
		Status:    StatusActive,
		CreatedBy: actor,
		UpdatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	acc.ApplyProfile(profile)
	return acc
}

// HasPassword reports whether a password has been set.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// IsActive reports whether the account may authenticate.
func (a *Account) IsActive() bool {
	return a.Status == "" || a.Status == StatusActive
}

// ApplyProfile copies the role-derived fields of profile onto the account and
// reports whether anything changed. A nil profile changes nothing.
func (a *Account) ApplyProfile(profile *role.Profile) bool {
	if profile == nil {
		return false
	}

	changed := a.DisplayName != profile.DisplayName ||
		a.Role != profile.Role ||
		a.Scope != profile.Scope ||
		a.Avatar != profile.Avatar ||
		a.Permissions != profile.Permissions ||
		a.IsExecutor != profile.IsExecutor

	a.DisplayName = profile.DisplayName
	a.Role = profile.Role
	a.Scope = profile.Scope
	a.Avatar = profile.Avatar
	a.Permissions = profile.Permissions
	a.IsExecutor = profile.IsExecutor

	return changed
}

// # Safe View

// View is the client-facing projection of an [Account]. It carries no secret.
type View struct {
	ID          string           `json:"id"`
	Username    string           `json:"username"`
	DisplayName string           `json:"displayName"`
	Email       string           `json:"email,omitempty"`
	Avatar      string           `json:"avatar"`
	Role        role.Role        `json:"role"`
	Scope       string           `json:"scope"`
	Permissions role.Permissions `json:"permissions"`
	IsExecutor  bool             `json:"isExecutor"`
	HasPassword bool             `json:"hasPassword"`
	Status      Status           `json:"status"`
	CreatedBy   string           `json:"createdBy,omitempty"`
	UpdatedBy   string           `json:"updatedBy,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// View returns the safe projection of the account.
func (a *Account) View() View {
	return View{
		ID:          a.ID,
		Username:    a.Username,
		DisplayName: a.DisplayName,
		Email:       a.Email,
		Avatar:      a.Avatar,
		Role:        a.Role,
		Scope:       a.Scope,
		Permissions: a.Permissions,
		IsExecutor:  a.IsExecutor,
		HasPassword: a.HasPassword(),
		Status:      a.Status,
		CreatedBy:   a.CreatedBy,
		UpdatedBy:   a.UpdatedBy,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// Clone returns a copy that shares no pointers with a.
func (a *Account) Clone() *Account {
	clone := *a
	if a.PasswordHash != nil {
		hash := *a.PasswordHash
		clone.PasswordHash = &hash
	}
	return &clone
}
