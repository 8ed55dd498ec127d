// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package request provides utilities for extracting data from HTTP requests.

It abstracts away the underlying router's parameter extraction and common
body decoding patterns, ensuring consistent error handling and type safety.
*/
package requestutil

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/projectflow/projectflow/internal/platform/apperr"
	"github.com/projectflow/projectflow/internal/platform/ctxutil"
	"github.com/projectflow/projectflow/internal/platform/validate"
	"github.com/projectflow/projectflow/internal/users/account"
)

// maxBodyBytes caps JSON request bodies. Auth payloads are a few hundred bytes.
const maxBodyBytes = 64 << 10

/*
DecodeJSON reads the request body and decodes it into the target structure.

Parameters:
  - writer: http.ResponseWriter (used by [http.MaxBytesReader] to close oversized bodies)
  - request: *http.Request
  - target: any (Pointer to the destination struct)

Returns:
  - error: validate.ErrInvalidJSON if decoding fails, otherwise nil
*/
func DecodeJSON(writer http.ResponseWriter, request *http.Request, target any) error {
	body := http.MaxBytesReader(writer, request.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(target); err != nil {
		return validate.ErrInvalidJSON
	}
	return nil
}

/*
Param retrieves a named URL parameter from the request.
*/
func Param(request *http.Request, name string) string {
	return chi.URLParam(request, name)
}

/*
RequiredAccount returns the account resolved by the session middleware.

Returns:
  - *account.Account: The authenticated account
  - error: apperr.Unauthorized if the request carries no session
*/
func RequiredAccount(request *http.Request) (*account.Account, error) {
	acc := ctxutil.GetAccount(request.Context())
	if acc == nil {
		return nil, apperr.Unauthorized("Session missing")
	}
	return acc, nil
}
