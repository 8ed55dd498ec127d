// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package role

import "sort"

// Groups is a snapshot of the four access groups as sets of normalized usernames.
//
// A Groups value is not safe for concurrent mutation. Stores hand out copies.
type Groups struct {
	members map[GroupKey]map[string]struct{}
}

// Assignments is the labeled view of a [Groups] snapshot returned by the role
// administration API. Lists are sorted.
type Assignments struct {
	Owner         []string `json:"owner"`
	Administrator []string `json:"administrator"`
	Write         []string `json:"write"`
	Read          []string `json:"read"`
}

// NewGroups returns an empty snapshot with all four groups present.
func NewGroups() Groups {
	groups := Groups{members: make(map[GroupKey]map[string]struct{}, len(definitions))}
	for _, def := range definitions {
		groups.members[def.key] = make(map[string]struct{})
	}
	return groups
}

// SeedGroups builds a snapshot from raw username lists. Names are normalized and
// blank entries dropped. A username listed under several keys lands in the
// highest-priority one.
func SeedGroups(lists map[GroupKey][]string) Groups {
	groups := NewGroups()
	for _, key := range Keys() {
		for _, raw := range lists[key] {
			username := Normalize(raw)
			if username == "" {
				continue
			}
			if _, taken := groups.KeyOf(username); taken {
				continue
			}
			groups.Add(key, username)
		}
	}
	return groups
}

func (g *Groups) ensure() {
	if g.members == nil {
		*g = NewGroups()
	}
}

// Add inserts a normalized username into key. It does not remove the username
// from other groups; use [Groups.Reassign] for exclusive moves.
func (g *Groups) Add(key GroupKey, username string) {
	if !key.Valid() || username == "" {
		return
	}
	g.ensure()
	g.members[key][username] = struct{}{}
}

// Contains reports whether username is a member of key.
func (g Groups) Contains(key GroupKey, username string) bool {
	_, ok := g.members[key][username]
	return ok
}

// KeyOf returns the highest-priority group containing username.
func (g Groups) KeyOf(username string) (GroupKey, bool) {
	for _, def := range definitions {
		if g.Contains(def.key, username) {
			return def.key, true
		}
	}
	return "", false
}

// Reassign removes username from every group and then, when target is non-nil,
// adds it to exactly that group. Afterwards username is in at most one group.
func (g *Groups) Reassign(username string, target *GroupKey) {
	g.ensure()
	for _, set := range g.members {
		delete(set, username)
	}
	if target != nil {
		g.Add(*target, username)
	}
}

// Members returns the sorted members of key.
func (g Groups) Members(key GroupKey) []string {
	set := g.members[key]
	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent deep copy.
func (g Groups) Clone() Groups {
	clone := NewGroups()
	for key, set := range g.members {
		for name := range set {
			clone.members[key][name] = struct{}{}
		}
	}
	return clone
}

// Snapshot returns the labeled, sorted member lists.
func (g Groups) Snapshot() Assignments {
	return Assignments{
		Owner:         g.Members(GroupOwner),
		Administrator: g.Members(GroupAdministrator),
		Write:         g.Members(GroupWrite),
		Read:          g.Members(GroupRead),
	}
}
