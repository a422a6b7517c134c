// Package http provides HTTP server and handler implementations.
//
// This file implements parsing of filter updates from request bodies and
// per-request filter overrides from query strings.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"transstats/internal/core"
)

// maxBodyBytes bounds filter update bodies.
const maxBodyBytes = 64 << 10

var (
	// errMalformedRequest marks bodies or queries that cannot be parsed at all.
	errMalformedRequest = errors.New("malformed request")
	// errInvalidFilter marks well-formed input with invalid values.
	errInvalidFilter = errors.New("invalid filter")
)

// Query parameters accepted as filter overrides.
const (
	queryFrom      = "from"
	queryTo        = "to"
	queryChannels  = "channels"
	queryLanguages = "languages"
	queryView      = "view"
)

// ParseFilterPatch decodes a partial filter update. Unknown fields and
// trailing data are rejected. An empty body is an empty patch.
func ParseFilterPatch(w http.ResponseWriter, r *http.Request) (core.FilterPatch, error) {
	var patch core.FilterPatch

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return patch, fmt.Errorf("read body: %w", err)
		}
		return patch, fmt.Errorf("%w: read body: %v", errMalformedRequest, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return patch, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&patch); err != nil {
		return patch, fmt.Errorf("%w: %v", errMalformedRequest, err)
	}
	if dec.More() {
		return patch, fmt.Errorf("%w: unexpected data after JSON object", errMalformedRequest)
	}
	return patch, nil
}

// ParseFilterQuery reads filter overrides from query parameters. Only the
// parameters present are set; "channels=" selects no channels.
func ParseFilterQuery(q url.Values) (core.FilterPatch, error) {
	var patch core.FilterPatch

	if q.Has(queryFrom) {
		p := core.PeriodKey(sanitizeInput(q.Get(queryFrom)))
		patch.StartPeriod = &p
	}
	if q.Has(queryTo) {
		p := core.PeriodKey(sanitizeInput(q.Get(queryTo)))
		patch.EndPeriod = &p
	}
	if q.Has(queryChannels) {
		chans := splitList(q[queryChannels])
		patch.SelectedChannels = &chans
	}
	if q.Has(queryLanguages) {
		raw := splitList(q[queryLanguages])
		langs := make([]core.Language, 0, len(raw))
		for _, l := range raw {
			langs = append(langs, core.Language(l))
		}
		patch.SelectedLanguages = &langs
	}
	if q.Has(queryView) {
		v := core.ViewMode(sanitizeInput(q.Get(queryView)))
		patch.ViewMode = &v
	}
	return patch, nil
}

// parseBoolParam reads an optional boolean query parameter.
func parseBoolParam(q url.Values, key string) (bool, error) {
	v := strings.TrimSpace(q.Get(key))
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errMalformedRequest, key)
	}
	return b, nil
}

// statusFor maps request parsing and filter validation errors to a response.
func statusFor(err error) *JSONResponseBuilder {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return ErrorResponse(http.StatusRequestEntityTooLarge, "request body too large")
	case errors.Is(err, errMalformedRequest):
		return BadRequestError(err.Error())
	case errors.Is(err, errInvalidFilter),
		errors.Is(err, core.ErrInvalidPeriod),
		errors.Is(err, core.ErrInvalidViewMode),
		errors.Is(err, core.ErrInvalidLanguage):
		return UnprocessableEntityError(err.Error())
	default:
		return InternalServerError("internal error")
	}
}
