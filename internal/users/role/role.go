// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package role resolves what a username is allowed to do in ProjectFlow.

Access is granted by membership in one of four access groups. The package keeps
one table binding every group key to its public label, its role tag, its scope
text and its permission template, so that a change to one representation cannot
drift from the others.

	| Key    | Label         | Role              |
	|--------|---------------|-------------------|
	| admin1 | owner         | FULL_ACCESS       |
	| admin2 | administrator | TASK_EDITOR       |
	| admin3 | write         | EXECUTOR          |
	| admin4 | read          | PROJECT_READ_ONLY |

Everything here is pure: no I/O, no clocks, no randomness.
*/
package role

import (
	"errors"
	"strings"
)

// # Identifiers

// GroupKey is the storage identifier of an access group.
type GroupKey string

const (
	GroupOwner         GroupKey = "admin1"
	GroupAdministrator GroupKey = "admin2"
	GroupWrite         GroupKey = "admin3"
	GroupRead          GroupKey = "admin4"
)

// Role is the role tag carried on a profile and an account.
type Role string

const (
	RoleFullAccess      Role = "FULL_ACCESS"
	RoleTaskEditor      Role = "TASK_EDITOR"
	RoleExecutor        Role = "EXECUTOR"
	RoleProjectReadOnly Role = "PROJECT_READ_ONLY"
)

// Label is the public name of an access group used by the role administration API.
type Label string

const (
	LabelOwner         Label = "owner"
	LabelAdministrator Label = "administrator"
	LabelWrite         Label = "write"
	LabelRead          Label = "read"

	// LabelNone removes a username from every group.
	LabelNone Label = "none"
)

// ErrUnknownLabel is returned by [ParseLabel] for anything outside the label set.
var ErrUnknownLabel = errors.New("role: unknown label")

// # Permissions

// Permission names one capability flag.
type Permission string

const (
	PermManageProjects    Permission = "manageProjects"
	PermManageTeamMembers Permission = "manageTeamMembers"
	PermManageTasks       Permission = "manageTasks"
	PermManageOwnTasks    Permission = "manageOwnTasks"
	PermViewProjects      Permission = "viewProjects"
	PermViewTasks         Permission = "viewTasks"
	PermViewOwnTasksOnly  Permission = "viewOwnTasksOnly"
)

// Permissions is the fixed-shape capability record derived from a role.
type Permissions struct {
	ManageProjects    bool `json:"manageProjects"`
	ManageTeamMembers bool `json:"manageTeamMembers"`
	ManageTasks       bool `json:"manageTasks"`
	ManageOwnTasks    bool `json:"manageOwnTasks"`
	ViewProjects      bool `json:"viewProjects"`
	ViewTasks         bool `json:"viewTasks"`
	ViewOwnTasksOnly  bool `json:"viewOwnTasksOnly"`
}

// Has reports whether the flag named by permission is set.
// Unknown names are never granted.
func (p Permissions) Has(permission Permission) bool {
	switch permission {
	case PermManageProjects:
		return p.ManageProjects
	case PermManageTeamMembers:
		return p.ManageTeamMembers
	case PermManageTasks:
		return p.ManageTasks
	case PermManageOwnTasks:
		return p.ManageOwnTasks
	case PermViewProjects:
		return p.ViewProjects
	case PermViewTasks:
		return p.ViewTasks
	case PermViewOwnTasksOnly:
		return p.ViewOwnTasksOnly
	default:
		return false
	}
}

// # Mapping Table

type definition struct {
	key         GroupKey
	label       Label
	role        Role
	scope       string
	permissions Permissions
	executor    bool
}

// definitions is ordered by resolution priority: the first group containing a
// username decides its role.
var definitions = [...]definition{
	{
		key:   GroupOwner,
		label: LabelOwner,
		role:  RoleFullAccess,
		scope: "Full access to all projects, tasks and team members",
		permissions: Permissions{
			ManageProjects:    true,
			ManageTeamMembers: true,
			ManageTasks:       true,
			ViewProjects:      true,
			ViewTasks:         true,
		},
	},
	{
		key:   GroupAdministrator,
		label: LabelAdministrator,
		role:  RoleTaskEditor,
		scope: "Manage tasks and team members across all projects",
		permissions: Permissions{
			ManageTeamMembers: true,
			ManageTasks:       true,
			ViewProjects:      true,
			ViewTasks:         true,
		},
	},
	{
		key:   GroupWrite,
		label: LabelWrite,
		role:  RoleExecutor,
		scope: "Work on tasks assigned to you",
		permissions: Permissions{
			ManageOwnTasks: true,
			ViewProjects:   true,
			ViewTasks:      true,
		},
		executor: true,
	},
	{
		key:   GroupRead,
		label: LabelRead,
		role:  RoleProjectReadOnly,
		scope: "Read-only access to projects and tasks",
		permissions: Permissions{
			ViewProjects: true,
			ViewTasks:    true,
		},
	},
}

// Keys returns the group keys in resolution priority order.
func Keys() []GroupKey {
	keys := make([]GroupKey, len(definitions))
	for i, def := range definitions {
		keys[i] = def.key
	}
	return keys
}

func lookup(key GroupKey) (definition, bool) {
	for _, def := range definitions {
		if def.key == key {
			return def, true
		}
	}
	return definition{}, false
}

// Valid reports whether key names one of the four access groups.
func (key GroupKey) Valid() bool {
	_, ok := lookup(key)
	return ok
}

// Label returns the public label of the group, or "" for an unknown key.
func (key GroupKey) Label() Label {
	def, _ := lookup(key)
	return def.label
}

// Role returns the role tag granted by the group, or "" for an unknown key.
func (key GroupKey) Role() Role {
	def, _ := lookup(key)
	return def.role
}

// ParseLabel maps a label (or a raw group key) to its group.
//
// Matching is case-insensitive and ignores surrounding whitespace. "none" yields
// assign=false, meaning the username is removed from every group.
func ParseLabel(raw string) (key GroupKey, assign bool, err error) {
	value := strings.ToLower(strings.TrimSpace(raw))

	if Label(value) == LabelNone {
		return "", false, nil
	}

	for _, def := range definitions {
		if Label(value) == def.label || GroupKey(value) == def.key {
			return def.key, true, nil
		}
	}

	return "", false, ErrUnknownLabel
}

// LabelNames lists the accepted labels, for error messages.
func LabelNames() []string {
	names := make([]string, 0, len(definitions)+1)
	for _, def := range definitions {
		names = append(names, string(def.label))
	}
	return append(names, string(LabelNone))
}
