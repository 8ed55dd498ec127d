// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package role

import "strings"

// executorAvatarFallback is shown for an executor whose username is empty.
const executorAvatarFallback = "EX"

// Profile is the role-derived part of an account: everything an account's role
// fields must match after a sync.
type Profile struct {
	DisplayName string      `json:"displayName"`
	Role        Role        `json:"role"`
	Scope       string      `json:"scope"`
	Avatar      string      `json:"avatar"`
	Permissions Permissions `json:"permissions"`
	IsExecutor  bool        `json:"isExecutor"`
}

/*
Resolve computes the profile of username from a group snapshot.

Groups are checked in priority order owner, administrator, write, read and the
first match wins, so a username present in several groups (possible only through
direct store edits) still resolves deterministically.

Parameters:
  - username: string (normalized here, so raw input is accepted)
  - groups: Groups

Returns:
  - *Profile: nil when the username is in no group (not allowlisted)
*/
func Resolve(username string, groups Groups) *Profile {
	normalized := Normalize(username)

	key, ok := groups.KeyOf(normalized)
	if !ok {
		return nil
	}

	def, _ := lookup(key)
	return &Profile{
		DisplayName: normalized,
		Role:        def.role,
		Scope:       def.scope,
		Avatar:      avatarFor(normalized, def.executor),
		Permissions: def.permissions,
		IsExecutor:  def.executor,
	}
}

// avatarFor returns the first two characters of username, uppercased.
func avatarFor(username string, executor bool) string {
	runes := []rune(username)
	if len(runes) == 0 {
		if executor {
			return executorAvatarFallback
		}
		return ""
	}
	if len(runes) > 2 {
		runes = runes[:2]
	}
	return strings.ToUpper(string(runes))
}
