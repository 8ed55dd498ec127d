// Copyright (c) 2026 ProjectFlow. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package respond provides HTTP response helpers used by all API handlers.
//
// # Architecture
//
// This package centralizes the presentation logic for HTTP responses.
// Success bodies are written as-is (e.g. {"user": ...}); every error, whatever
// its origin, is rendered as {"error", "code", "details?"} so the frontend can
// always parse it.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/projectflow/projectflow/internal/platform/apperr"
	"github.com/projectflow/projectflow/internal/platform/ctxutil"
)

// ErrorEnvelope is the JSON envelope for error responses.
type ErrorEnvelope struct {
	Error   string        `json:"error"`
	Code    string        `json:"code"`
	Details *ErrorDetails `json:"details,omitempty"`
}

// ErrorDetails carries diagnostics that are only exposed outside production.
type ErrorDetails struct {
	Fields []apperr.FieldError `json:"fields,omitempty"`
	Cause  string              `json:"cause,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// OK writes a 200 OK response with the payload as the body.
func OK(writer http.ResponseWriter, payload any) {
	JSON(writer, http.StatusOK, payload)
}

// Created writes a 201 Created response with the payload as the body.
func Created(writer http.ResponseWriter, payload any) {
	JSON(writer, http.StatusCreated, payload)
}

// Error converts any Go error into a standardized JSON API error response.
//
// Unknown errors become 500, except data store timeouts which become a retryable
// 503. A timeout must never be mistaken for an authentication decision.
func Error(writer http.ResponseWriter, request *http.Request, err error) {
	appError := Classify(err)
	logger := ctxutil.GetLogger(request.Context())

	if !apperr.IsAppError(err) {
		logger.ErrorContext(request.Context(), "unhandled_error_swallowed",
			slog.String("error", err.Error()),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
		)
	}

	// Always log 5xx errors as they indicate server-side issues.
	if appError.HTTPStatus >= 500 {
		logger.ErrorContext(request.Context(), "api_server_error",
			slog.String("code", appError.Code),
			slog.String("request_id", ctxutil.GetRequestID(request.Context())),
			slog.Any("cause", appError.Cause),
		)
	}

	envelope := ErrorEnvelope{
		Error: appError.Message,
		Code:  appError.Code,
	}

	if ctxutil.IsVerboseErrors(request.Context()) {
		envelope.Details = detailsOf(appError)
	}

	JSON(writer, appError.HTTPStatus, envelope)
}

// Classify maps err to the [apperr.AppError] that will be rendered.
func Classify(err error) *apperr.AppError {
	if appError := apperr.As(err); appError != nil {
		return appError
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return apperr.ServiceUnavailable("The data store did not respond in time, please retry", err)
	}

	return apperr.Internal(err)
}

func detailsOf(appError *apperr.AppError) *ErrorDetails {
	details := &ErrorDetails{Fields: appError.Details}
	if appError.Cause != nil {
		details.Cause = appError.Cause.Error()
	}

	if len(details.Fields) == 0 && details.Cause == "" {
		return nil
	}
	return details
}
