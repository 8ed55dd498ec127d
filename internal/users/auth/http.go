// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/projectflow/projectflow/internal/platform/constants"
	"github.com/projectflow/projectflow/internal/platform/middleware"
	requestutil "github.com/projectflow/projectflow/internal/platform/request"
	"github.com/projectflow/projectflow/internal/platform/respond"
	"github.com/projectflow/projectflow/internal/users/role"
)

// # Definitions & Constructors

// Handler implements the /auth HTTP endpoints.
//
// This layer is strictly responsible for transport concerns: JSON bodies, status
// codes and the session cookie.
type Handler struct {
	authService *Service
	cookies     *CookiePolicy
}

// NewHandler constructs a new [Handler].
func NewHandler(service *Service, cookies *CookiePolicy) *Handler {
	return &Handler{authService: service, cookies: cookies}
}

// RequireSession returns the session guard backed by this handler's service and
// cookie policy, for mounting on other route groups.
func (handler *Handler) RequireSession() func(http.Handler) http.Handler {
	return middleware.RequireSession(handler.authService, handler.cookies)
}

// Routes returns a [chi.Router] configured with authentication routes.
//
// # Endpoints
//   - POST /signup : Sets the password of an allowlisted username.
//   - POST /login  : Opens a session.
//   - POST /logout : Ends the current session.
//   - GET  /me     : Returns the current account.
//   - POST /reset  : Clears the password of an account (team managers).
//
// Reset is never anonymous: a cleared password is claimed by the next signup, so
// the route requires a session with manageTeamMembers.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// Public endpoints
	router.Post("/signup", handler.signup)
	router.Post("/login", handler.login)
	router.Post("/logout", handler.logout)

	// Session endpoints
	router.Group(func(r chi.Router) {
		r.Use(handler.RequireSession())
		r.Get("/me", handler.me)
		r.With(middleware.RequirePermission(role.PermManageTeamMembers)).Post("/reset", handler.reset)
	})

	return router
}

// # Request Payloads

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type resetRequest struct {
	Username string `json:"username"`
}

/*
Signup handles the first password choice of an allowlisted username.

POST /auth/signup

Request:
  - Body: credentialsRequest (Username, Password)

Response:
  - 201: {user}: Safe account view, session cookie set
  - 400: VALIDATION_ERROR or NOT_ALLOWLISTED
  - 409: CONFLICT: Account already configured
*/
func (handler *Handler) signup(writer http.ResponseWriter, request *http.Request) {
	var input credentialsRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Signup(request.Context(), Credentials{
		Username:  input.Username,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookies.Issue(writer, request, result.Token)
	respond.Created(writer, map[string]any{constants.FieldUser: result.Account.View()})
}

/*
Login authenticates a username and password.

POST /auth/login

Request:
  - Body: credentialsRequest (Username, Password)

Response:
  - 200: {user}: Safe account view, session cookie set
  - 400: INVALID_CREDENTIALS: Same message for unknown user, no password, wrong password
  - 403: NO_LONGER_ALLOWED or FORBIDDEN
*/
func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) {
	var input credentialsRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	result, err := handler.authService.Login(request.Context(), Credentials{
		Username:  input.Username,
		Password:  input.Password,
		UserAgent: request.UserAgent(),
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.cookies.Issue(writer, request, result.Token)
	respond.OK(writer, map[string]any{constants.FieldUser: result.Account.View()})
}

/*
Logout ends the current session.

POST /auth/logout

Response:
  - 200: {success:true}: Always, cookies cleared
*/
func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) {
	handler.authService.Logout(request.Context(), handler.cookies.Token(request))
	handler.cookies.Clear(writer, request)
	respond.OK(writer, map[string]bool{constants.FieldSuccess: true})
}

/*
Me returns the account of the current session.

GET /auth/me

Response:
  - 200: {user}
  - 401: Session missing, invalid or expired
  - 403: Removed from the allowlist or disabled (cookies cleared by the session guard)
*/
func (handler *Handler) me(writer http.ResponseWriter, request *http.Request) {
	acc, err := requestutil.RequiredAccount(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{constants.FieldUser: acc.View()})
}

/*
Reset clears the password of an account so its owner signs up again.

POST /auth/reset (session with manageTeamMembers; never anonymous)

Request:
  - Body: resetRequest (Username)

Response:
  - 200: {message}
  - 400: VALIDATION_ERROR or NOT_ALLOWLISTED
  - 403: FORBIDDEN: Caller cannot manage team members
*/
func (handler *Handler) reset(writer http.ResponseWriter, request *http.Request) {
	actor, err := requestutil.RequiredAccount(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input resetRequest
	if err := requestutil.DecodeJSON(writer, request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	message, err := handler.authService.ResetAccount(request.Context(), actor.Username, input.Username)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]string{constants.FieldMessage: message})
}
