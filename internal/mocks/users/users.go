// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package users contains hand-written in-memory doubles for the account, session
// and access group repositories. They are safe for concurrent use.
package users

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/projectflow/projectflow/internal/platform/apperr"
	"github.com/projectflow/projectflow/internal/users/access"
	"github.com/projectflow/projectflow/internal/users/account"
	"github.com/projectflow/projectflow/internal/users/role"
	"github.com/projectflow/projectflow/internal/users/session"
)

// Ensure compile-time conformance to the repository contracts.
var (
	_ account.Repository     = (*AccountRepository)(nil)
	_ session.Repository     = (*SessionRepository)(nil)
	_ access.GroupRepository = (*GroupRepository)(nil)
)

// Failures maps a method name (e.g. "FindByID") to the error it should return.
type Failures struct {
	mu     sync.Mutex
	errors map[string]error
}

// Fail makes method return err until cleared with a nil err.
func (f *Failures) Fail(method string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.errors == nil {
		f.errors = make(map[string]error)
	}
	if err == nil {
		delete(f.errors, method)
		return
	}
	f.errors[method] = err
}

func (f *Failures) failure(method string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors[method]
}

// # Accounts

// AccountRepository is an in-memory [account.Repository].
type AccountRepository struct {
	Failures

	mu       sync.RWMutex
	accounts map[string]*account.Account
}

// NewAccountRepository creates an empty repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{accounts: make(map[string]*account.Account)}
}

func (m *AccountRepository) FindByID(ctx context.Context, id string) (*account.Account, error) {
	if err := m.failure("FindByID"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	acc, ok := m.accounts[id]
	if !ok {
		return nil, apperr.NotFound("Account")
	}
	return acc.Clone(), nil
}

func (m *AccountRepository) FindByUsername(ctx context.Context, username string) (*account.Account, error) {
	if err := m.failure("FindByUsername"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, acc := range m.accounts {
		if acc.Username == username {
			return acc.Clone(), nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (m *AccountRepository) Create(ctx context.Context, acc *account.Account) error {
	if err := m.failure("Create"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.accounts {
		if existing.Username == acc.Username {
			return apperr.Conflict("Account already exists")
		}
	}
	m.accounts[acc.ID] = acc.Clone()
	return nil
}

func (m *AccountRepository) UpdateProfile(ctx context.Context, acc *account.Account) error {
	if err := m.failure("UpdateProfile"); err != nil {
		return err
	}
	return m.mutate(acc.ID, func(stored *account.Account) {
		stored.DisplayName = acc.DisplayName
		stored.Avatar = acc.Avatar
		stored.Role = acc.Role
		stored.Scope = acc.Scope
		stored.Permissions = acc.Permissions
		stored.IsExecutor = acc.IsExecutor
		stored.UpdatedBy = acc.UpdatedBy
	})
}

func (m *AccountRepository) UpdatePassword(ctx context.Context, id string, passwordHash *string, actor string) error {
	if err := m.failure("UpdatePassword"); err != nil {
		return err
	}
	return m.mutate(id, func(stored *account.Account) {
		stored.PasswordHash = nil
		if passwordHash != nil {
			hash := *passwordHash
			stored.PasswordHash = &hash
		}
		stored.UpdatedBy = actor
	})
}

func (m *AccountRepository) UpdateStatus(ctx context.Context, id string, status account.Status, actor string) error {
	if err := m.failure("UpdateStatus"); err != nil {
		return err
	}
	return m.mutate(id, func(stored *account.Account) {
		stored.Status = status
		stored.UpdatedBy = actor
	})
}

func (m *AccountRepository) Delete(ctx context.Context, id string) error {
	if err := m.failure("Delete"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.accounts[id]; !ok {
		return apperr.NotFound("Account")
	}
	delete(m.accounts, id)
	return nil
}

func (m *AccountRepository) ListExecutors(ctx context.Context) ([]*account.Account, error) {
	if err := m.failure("ListExecutors"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	executors := make([]*account.Account, 0)
	for _, acc := range m.accounts {
		if acc.IsExecutor {
			executors = append(executors, acc.Clone())
		}
	}
	sort.Slice(executors, func(i, j int) bool { return executors[i].Username < executors[j].Username })
	return executors, nil
}

// Put stores acc directly, bypassing uniqueness checks.
func (m *AccountRepository) Put(acc *account.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[acc.ID] = acc.Clone()
}

func (m *AccountRepository) mutate(id string, apply func(*account.Account)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.accounts[id]
	if !ok {
		return apperr.NotFound("Account")
	}
	apply(stored)
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

// # Sessions

// SessionRepository is an in-memory [session.Repository].
type SessionRepository struct {
	Failures

	// Now drives DeleteExpired. Defaults to time.Now.
	Now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// NewSessionRepository creates an empty repository.
func NewSessionRepository() *SessionRepository {
	return &SessionRepository{sessions: make(map[string]*session.Session)}
}

func (m *SessionRepository) Create(ctx context.Context, sess *session.Session) error {
	if err := m.failure("Create"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[sess.Hash]; exists {
		return apperr.Conflict("Session already exists")
	}
	stored := *sess
	m.sessions[sess.Hash] = &stored
	return nil
}

func (m *SessionRepository) FindByHash(ctx context.Context, hash string) (*session.Session, error) {
	if err := m.failure("FindByHash"); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	sess, ok := m.sessions[hash]
	if !ok {
		return nil, apperr.NotFound("Session")
	}
	found := *sess
	return &found, nil
}

func (m *SessionRepository) Touch(ctx context.Context, hash string, at time.Time) error {
	if err := m.failure("Touch"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if sess, ok := m.sessions[hash]; ok {
		sess.LastUsedAt = at
	}
	return nil
}

func (m *SessionRepository) DeleteByHash(ctx context.Context, hash string) error {
	if err := m.failure("DeleteByHash"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, hash)
	return nil
}

func (m *SessionRepository) DeleteByAccount(ctx context.Context, accountID string) error {
	if err := m.failure("DeleteByAccount"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for hash, sess := range m.sessions {
		if sess.AccountID == accountID {
			delete(m.sessions, hash)
		}
	}
	return nil
}

func (m *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	if err := m.failure("DeleteExpired"); err != nil {
		return 0, err
	}
	now := time.Now()
	if m.Now != nil {
		now = m.Now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var removed int64
	for hash, sess := range m.sessions {
		if sess.IsExpired(now) {
			delete(m.sessions, hash)
			removed++
		}
	}
	return removed, nil
}

// Count returns the number of stored sessions.
func (m *SessionRepository) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// CountFor returns the number of stored sessions of accountID.
func (m *SessionRepository) CountFor(accountID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, sess := range m.sessions {
		if sess.AccountID == accountID {
			count++
		}
	}
	return count
}

// # Access Groups

// GroupRepository is an in-memory [access.GroupRepository].
type GroupRepository struct {
	Failures

	mu     sync.Mutex
	groups role.Groups
	seeded map[role.GroupKey]bool
}

// NewGroupRepository creates a repository holding a copy of initial.
func NewGroupRepository(initial role.Groups) *GroupRepository {
	return &GroupRepository{
		groups: initial.Clone(),
		seeded: make(map[role.GroupKey]bool),
	}
}

func (m *GroupRepository) Load(ctx context.Context) (role.Groups, error) {
	if err := m.failure("Load"); err != nil {
		return role.Groups{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.groups.Clone(), nil
}

func (m *GroupRepository) Assign(ctx context.Context, username string, target *role.GroupKey) (role.Groups, error) {
	if err := m.failure("Assign"); err != nil {
		return role.Groups{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.groups.Reassign(username, target)
	return m.groups.Clone(), nil
}

func (m *GroupRepository) Seed(ctx context.Context, defaults role.Groups) error {
	if err := m.failure("Seed"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range role.Keys() {
		if m.seeded[key] {
			continue
		}
		m.seeded[key] = true

		for _, username := range defaults.Members(key) {
			if _, assigned := m.groups.KeyOf(username); !assigned {
				m.groups.Add(key, username)
			}
		}
	}
	return nil
}
