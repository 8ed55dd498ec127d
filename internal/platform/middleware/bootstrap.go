// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"context"
	"net/http"

	"github.com/projectflow/projectflow/internal/platform/apperr"
	"github.com/projectflow/projectflow/internal/platform/respond"
)

// Ensurer makes sure the data stores are initialized before a request touches them.
type Ensurer interface {
	Ensure(ctx context.Context) error
}

// RequireBootstrap blocks requests until the data stores are initialized.
//
// A failed initialization answers 500 with operator guidance; the next request
// retries it. A caller that gives up while waiting gets a retryable 503.
func RequireBootstrap(ensurer Ensurer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if err := ensurer.Ensure(request.Context()); err != nil {
				if request.Context().Err() != nil {
					respond.Error(writer, request, apperr.ServiceUnavailable("Service is starting, retry shortly", err))
					return
				}
				respond.Error(writer, request, apperr.BootstrapFailed(err))
				return
			}
			next.ServeHTTP(writer, request)
		})
	}
}
