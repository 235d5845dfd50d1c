// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// requests.go - Request body and query parameter types with validation tags.

package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/projectionist/internal/validation"
)

// maxBodyBytes bounds request bodies. All API bodies are small JSON objects.
const maxBodyBytes = 1 << 20

// AddCategoryRequest is the body of POST /api/v1/categories.
type AddCategoryRequest struct {
	Name string `json:"name" validate:"required,min=1,max=120"`
	Path string `json:"path" validate:"required"`
}

// SyncStateRequest is the body of sync enable and update requests.
type SyncStateRequest struct {
	CategoryID string  `json:"category_id" validate:"required"`
	FileURL    string  `json:"file_url" validate:"required"`
	Index      *int    `json:"index" validate:"required"`
	Timestamp  float64 `json:"timestamp"`
}

// ProgressSaveRequest is the body of POST /api/v1/progress/{categoryID}.
type ProgressSaveRequest struct {
	Index *int `json:"index" validate:"required"`
}

// GateRequest is the body of POST /api/v1/auth/gate.
type GateRequest struct {
	Password string `json:"password" validate:"required"`
}

// ConfigUpdateRequest is the body of PUT /api/v1/config. All fields are
// optional; absent fields leave the current value untouched.
type ConfigUpdateRequest struct {
	ShuffleDefault *bool `json:"shuffle_default"`
	ProgressSaving *bool `json:"progress_saving"`
}

// ListMediaParams holds the decoded query of the category listing endpoint.
type ListMediaParams struct {
	Page  int `validate:"gte=1"`
	Limit int `validate:"gte=1"`
	// Shuffle is nil when the request did not specify one.
	Shuffle      *bool
	ForceRefresh bool
}

var errEmptyBody = errors.New("request body is empty")

// decodeBody decodes a JSON request body into dst and validates it.
// Returns a *validation.RequestValidationError for tag failures.
func decodeBody(r *http.Request, dst interface{}) error {
	body := http.MaxBytesReader(nil, r.Body, maxBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		return err
	}

	if verr := validation.ValidateStruct(dst); verr != nil {
		return verr
	}
	return nil
}

// parseListMediaParams decodes the listing query parameters, applying the
// configured defaults and clamping limit to the allowed range.
func parseListMediaParams(r *http.Request, defaultLimit, maxLimit int) (ListMediaParams, error) {
	params := ListMediaParams{
		Page:  1,
		Limit: defaultLimit,
	}

	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return params, errors.New("page must be an integer")
		}
		params.Page = page
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return params, errors.New("limit must be an integer")
		}
		if limit > maxLimit {
			limit = maxLimit
		}
		params.Limit = limit
	}

	if raw := q.Get("shuffle"); raw != "" {
		shuffle, err := strconv.ParseBool(raw)
		if err != nil {
			return params, errors.New("shuffle must be a boolean")
		}
		params.Shuffle = &shuffle
	}

	if raw := q.Get("force_refresh"); raw != "" {
		force, err := strconv.ParseBool(raw)
		if err != nil {
			return params, errors.New("force_refresh must be a boolean")
		}
		params.ForceRefresh = force
	}

	if verr := validation.ValidateStruct(&params); verr != nil {
		return params, verr
	}
	return params, nil
}
