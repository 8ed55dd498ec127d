// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package access

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/projectflow/projectflow/internal/platform/constants"
	"github.com/projectflow/projectflow/internal/platform/middleware"
	requestutil "github.com/projectflow/projectflow/internal/platform/request"
	"github.com/projectflow/projectflow/internal/platform/respond"
	"github.com/projectflow/projectflow/internal/users/account"
)

// Handler implements the owner-only role and executor endpoints.
type Handler struct {
	accessService  *Service
	requireSession func(http.Handler) http.Handler
}

// NewHandler constructs a new [Handler]. requireSession resolves the caller's
// session and must run before the owner check.
func NewHandler(service *Service, requireSession func(http.Handler) http.Handler) *Handler {
	return &Handler{accessService: service, requireSession: requireSession}
}

// RoleRoutes returns the role administration router.
//
// # Endpoints
//   - GET  /        : Labeled role assignments.
//   - POST /assign  : Moves a username to one role, or none.
func (handler *Handler) RoleRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.requireSession, middleware.RequireOwner)

	router.Get("/", handler.listRoles)
	router.Post("/assign", handler.assignRole)

	return router
}

// ExecutorRoutes returns the executor provisioning router.
//
// # Endpoints
//   - GET    /     : Lists executors.
//   - POST   /     : Provisions an executor.
//   - PATCH  /{id} : Enables or disables an executor.
//   - DELETE /{id} : Deletes an executor.
func (handler *Handler) ExecutorRoutes() chi.Router {
	router := chi.NewRouter()
	router.Use(handler.requireSession, middleware.RequireOwner)

	router.Get("/", handler.listExecutors)
	router.Post("/", handler.provisionExecutor)
	router.Patch("/{id}", handler.updateExecutor)
	router.Delete("/{id}", handler.deleteExecutor)

	return router
}

// # Request Payloads

type assignRoleRequest struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type provisionExecutorRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

type updateExecutorRequest struct {
	Status account.Status `json:"status"`
}

// # Roles

/*
ListRoles returns the four labeled role lists.

GET /auth/roles

Response:
  - 200: {roles:{owner,administrator,write,read}}
  - 403: FORBIDDEN: Caller is not an owner
*/
func (handler *Handler) listRoles(writer http.ResponseWriter, request *http.Request) {
	roles, err := handler.accessService.ListRoleAssignments(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{constants.FieldRoles: roles})
}

/*
AssignRole moves a username into exactly one role.

POST /auth/roles/assign

Request:
  - Body: assignRoleRequest (Username, Role in owner|administrator|write|read|none)

Response:
  - 200: {roles:{...}}
  - 400: VALIDATION_ERROR: Empty username, legacy prefix or unknown role
*/
func (handler *Handler) assignRole(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredAccount(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input assignRoleRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	roles, err := handler.accessService.AssignRole(request.Context(), actor.Username, input.Username, input.Role)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{constants.FieldRoles: roles})
}

// # Executors

func (handler *Handler) listExecutors(writer http.ResponseWriter, request *http.Request) {
	executors, err := handler.accessService.ListExecutors(request.Context())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	views := make([]account.View, 0, len(executors))
	for _, executor := range executors {
		views = append(views, executor.View())
	}
	respond.OK(writer, map[string]any{"executors": views})
}

/*
ProvisionExecutor creates a password-less executor account.

POST /auth/executors

Request:
  - Body: provisionExecutorRequest (Username, Email optional)

Response:
  - 201: {user}
  - 409: CONFLICT: Username holds another role or already has an account
*/
func (handler *Handler) provisionExecutor(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredAccount(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input provisionExecutorRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	executor, err := handler.accessService.ProvisionExecutor(request.Context(), actor.Username, ProvisionInput{
		Username: input.Username,
		Email:    input.Email,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, map[string]any{constants.FieldUser: executor.View()})
}

func (handler *Handler) updateExecutor(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredAccount(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input updateExecutorRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	executor, err := handler.accessService.SetExecutorStatus(request.Context(), actor.Username,
		requestutil.Param(request, "id"), input.Status)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{constants.FieldUser: executor.View()})
}

func (handler *Handler) deleteExecutor(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredAccount(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.accessService.DeleteExecutor(request.Context(), actor.Username, requestutil.Param(request, "id")); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]bool{constants.FieldSuccess: true})
}
