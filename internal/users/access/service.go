// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package access

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/projectflow/projectflow/internal/platform/apperr"
	"github.com/projectflow/projectflow/internal/platform/constants"
	"github.com/projectflow/projectflow/internal/platform/ctxutil"
	"github.com/projectflow/projectflow/internal/platform/metrics"
	"github.com/projectflow/projectflow/internal/platform/validate"
	"github.com/projectflow/projectflow/internal/users/account"
	"github.com/projectflow/projectflow/internal/users/role"
	"github.com/projectflow/projectflow/internal/users/session"
	"github.com/projectflow/projectflow/pkg/uuid"
)

// Service implements role administration use cases.
//
// Callers are expected to have checked that the actor is an owner; the service
// only records the actor for auditing.
type Service struct {
	groupRepository   GroupRepository
	accountRepository account.Repository
	sessionRepository session.Repository
}

// NewService constructs a new [Service].
func NewService(groups GroupRepository, accounts account.Repository, sessions session.Repository) *Service {
	return &Service{
		groupRepository:   groups,
		accountRepository: accounts,
		sessionRepository: sessions,
	}
}

// # Role Assignment

// ListRoleAssignments returns the labeled group snapshot.
func (service *Service) ListRoleAssignments(context context.Context) (role.Assignments, error) {
	groups, err := service.groupRepository.Load(context)
	if err != nil {
		return role.Assignments{}, fmt.Errorf("access_service_load_groups_failed: %w", err)
	}
	return groups.Snapshot(), nil
}

/*
AssignRole moves a username into the group named by label ("none" removes it
from every group).

Description: After the move the username is in at most one group. When an account
already exists for the username, its role fields are re-synced immediately with
updatedBy set to the actor. A removed account keeps its stale role fields until
its next request, which is then rejected as no longer allowed.

Parameters:
  - context: context.Context
  - actor: string (username of the owner performing the change)
  - rawUsername: string
  - label: string

Returns:
  - role.Assignments: The snapshot after the change
  - error: VALIDATION_ERROR or storage errors
*/
func (service *Service) AssignRole(context context.Context, actor, rawUsername, label string) (role.Assignments, error) {

	// ── 1. Input Validation ───────────────────────────────────────────────
	username := role.Normalize(rawUsername)

	validator := &validate.Validator{}
	validator.Required(constants.FieldUsername, username).
		Custom(constants.FieldUsername, role.IsLegacyExecutor(username), "Legacy executor usernames cannot be assigned a role").
		Required(constants.FieldRole, label)
	if err := validator.Err(); err != nil {
		return role.Assignments{}, err
	}

	key, assign, err := role.ParseLabel(label)
	if err != nil {
		return role.Assignments{}, validate.RequiredError(constants.FieldRole,
			"Must be one of: "+strings.Join(role.LabelNames(), ", "))
	}

	var target *role.GroupKey
	assignedLabel := role.LabelNone
	if assign {
		target = &key
		assignedLabel = key.Label()
	}

	// ── 2. Exclusive Reassignment ─────────────────────────────────────────
	groups, err := service.groupRepository.Assign(context, username, target)
	if err != nil {
		return role.Assignments{}, fmt.Errorf("access_service_assign_failed: %w", err)
	}

	metrics.RecordRoleAssignment(string(assignedLabel))
	ctxutil.GetLogger(context).InfoContext(context, "role_assigned",
		slog.String("actor", actor),
		slog.String("username", username),
		slog.String("label", string(assignedLabel)),
	)

	// ── 3. Immediate Role Sync ────────────────────────────────────────────
	if err := service.syncAccount(context, actor, username, groups); err != nil {
		return role.Assignments{}, err
	}

	return groups.Snapshot(), nil
}

// syncAccount re-syncs the role fields of an existing account.
func (service *Service) syncAccount(context context.Context, actor, username string, groups role.Groups) error {
	acc, err := service.accountRepository.FindByUsername(context, username)
	if apperr.HasCode(err, apperr.CodeNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("access_service_find_account_failed: %w", err)
	}

	if !acc.ApplyProfile(role.Resolve(username, groups)) {
		return nil
	}

	acc.UpdatedBy = actor
	if err := service.accountRepository.UpdateProfile(context, acc); err != nil {
		return fmt.Errorf("access_service_sync_account_failed: %w", err)
	}
	return nil
}

// # Executor Provisioning

// ProvisionInput holds the data required to provision an executor.
type ProvisionInput struct {
	Username string
	Email    string
}

/*
ProvisionExecutor creates a password-less executor account and places the
username in the write group.

Description: The executor later chooses a password through the normal signup
flow, which accepts an existing account without a password.

Parameters:
  - context: context.Context
  - actor: string
  - input: ProvisionInput

Returns:
  - *account.Account: The created account
  - error: VALIDATION_ERROR, CONFLICT or storage errors
*/
func (service *Service) ProvisionExecutor(context context.Context, actor string, input ProvisionInput) (*account.Account, error) {
	username := role.Normalize(input.Username)
	email := strings.TrimSpace(input.Email)

	validator := &validate.Validator{}
	validator.Required(constants.FieldUsername, username).
		MaxLen(constants.FieldUsername, username, 64).
		Custom(constants.FieldUsername, role.IsLegacyExecutor(username), "Legacy executor usernames cannot be provisioned")
	if email != "" {
		validator.Email("email", email)
	}
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// ── 1. Conflict Checks ────────────────────────────────────────────────
	groups, err := service.groupRepository.Load(context)
	if err != nil {
		return nil, fmt.Errorf("access_service_load_groups_failed: %w", err)
	}
	currentKey, alreadyAssigned := groups.KeyOf(username)
	if alreadyAssigned && currentKey != role.GroupWrite {
		return nil, apperr.Conflict("This username already holds the " + string(currentKey.Label()) + " role")
	}

	if _, err := service.accountRepository.FindByUsername(context, username); err == nil {
		return nil, apperr.Conflict("An account with this username already exists")
	} else if !apperr.HasCode(err, apperr.CodeNotFound) {
		return nil, fmt.Errorf("access_service_find_account_failed: %w", err)
	}

	// ── 2. Group Membership ───────────────────────────────────────────────
	target := role.GroupWrite
	groups, err = service.groupRepository.Assign(context, username, &target)
	if err != nil {
		return nil, fmt.Errorf("access_service_assign_failed: %w", err)
	}

	// ── 3. Account Creation ───────────────────────────────────────────────
	acc := account.New(username, role.Resolve(username, groups), actor)
	acc.Email = email

	if err := service.accountRepository.Create(context, acc); err != nil {
		// Leave no orphan membership behind when the account could not be created.
		if !alreadyAssigned {
			if _, revertErr := service.groupRepository.Assign(context, username, nil); revertErr != nil {
				ctxutil.GetLogger(context).ErrorContext(context, "executor_provision_revert_failed",
					slog.String("username", username),
					slog.Any("error", revertErr),
				)
			}
		}
		return nil, fmt.Errorf("access_service_create_executor_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "executor_provisioned",
		slog.String("actor", actor),
		slog.String("username", username),
	)

	return acc, nil
}

// ListExecutors returns every executor account.
func (service *Service) ListExecutors(context context.Context) ([]*account.Account, error) {
	executors, err := service.accountRepository.ListExecutors(context)
	if err != nil {
		return nil, fmt.Errorf("access_service_list_executors_failed: %w", err)
	}
	return executors, nil
}

// findExecutor loads an account and hides non-executors behind NOT_FOUND.
func (service *Service) findExecutor(context context.Context, id string) (*account.Account, error) {
	if !uuid.IsValid(id) {
		return nil, apperr.NotFound("Executor")
	}

	acc, err := service.accountRepository.FindByID(context, id)
	if err != nil {
		if apperr.HasCode(err, apperr.CodeNotFound) {
			return nil, apperr.NotFound("Executor")
		}
		return nil, fmt.Errorf("access_service_find_executor_failed: %w", err)
	}
	if !acc.IsExecutor {
		return nil, apperr.NotFound("Executor")
	}
	return acc, nil
}

// SetExecutorStatus enables or disables an executor. Disabling ends its sessions.
func (service *Service) SetExecutorStatus(context context.Context, actor, id string, status account.Status) (*account.Account, error) {
	validator := &validate.Validator{}
	validator.OneOf(constants.FieldStatus, string(status), string(account.StatusActive), string(account.StatusDisabled))
	if err := validator.Err(); err != nil {
		return nil, err
	}

	acc, err := service.findExecutor(context, id)
	if err != nil {
		return nil, err
	}

	if err := service.accountRepository.UpdateStatus(context, acc.ID, status, actor); err != nil {
		return nil, fmt.Errorf("access_service_update_status_failed: %w", err)
	}

	if status == account.StatusDisabled {
		if err := service.sessionRepository.DeleteByAccount(context, acc.ID); err != nil {
			return nil, fmt.Errorf("access_service_end_sessions_failed: %w", err)
		}
	}

	acc.Status = status
	acc.UpdatedBy = actor
	return acc, nil
}

// DeleteExecutor removes an executor account, its sessions and its group membership.
func (service *Service) DeleteExecutor(context context.Context, actor, id string) error {
	acc, err := service.findExecutor(context, id)
	if err != nil {
		return err
	}

	if err := service.sessionRepository.DeleteByAccount(context, acc.ID); err != nil {
		return fmt.Errorf("access_service_end_sessions_failed: %w", err)
	}

	if _, err := service.groupRepository.Assign(context, acc.Username, nil); err != nil {
		return fmt.Errorf("access_service_unassign_failed: %w", err)
	}

	if err := service.accountRepository.Delete(context, acc.ID); err != nil {
		return fmt.Errorf("access_service_delete_executor_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "executor_deleted",
		slog.String("actor", actor),
		slog.String("username", acc.Username),
	)
	return nil
}
