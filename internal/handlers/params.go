package handlers

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/models"
)

// parsePage reads limit and offset. limit defaults to DefaultLimit and is
// capped at MaxLimit; limit < 1 and offset < 0 are rejected.
func parsePage(r *http.Request) (models.Page, error) {
	page := models.Page{Limit: DefaultLimit}
	q := r.URL.Query()

	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return page, apperror.Validation("invalid limit", apperror.FieldError{Field: "limit", Message: "limit must be a positive integer"})
		}
		page.Limit = min(limit, MaxLimit)
	}

	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return page, apperror.Validation("invalid offset", apperror.FieldError{Field: "offset", Message: "offset must be a non-negative integer"})
		}
		page.Offset = offset
	}

	return page, nil
}

// queryUUID parses an optional UUID query parameter. The bool reports presence.
func queryUUID(r *http.Request, name string) (uuid.UUID, bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return uuid.Nil, false, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, true, apperror.Validation("invalid "+name, apperror.FieldError{Field: name, Message: name + " must be a UUID"})
	}
	return id, true, nil
}

// requireQueryUUID parses a mandatory UUID query parameter
func requireQueryUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, ok, err := queryUUID(r, name)
	if err != nil {
		return uuid.Nil, err
	}
	if !ok {
		return uuid.Nil, apperror.Validation(name+" is required", apperror.FieldError{Field: name, Message: name + " is required"})
	}
	return id, nil
}

// pathUUID parses a {name} path wildcard
func pathUUID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		return uuid.Nil, apperror.Validation("invalid "+name, apperror.FieldError{Field: name, Message: name + " must be a UUID"})
	}
	return id, nil
}

// nullableUUID tells an absent field from an explicit null. A null
// maps to uuid.Nil, which the services read as "clear".
type nullableUUID struct {
	set bool
	id  uuid.UUID
}

func (n *nullableUUID) UnmarshalJSON(data []byte) error {
	n.set = true
	if string(data) == "null" {
		n.id = uuid.Nil
		return nil
	}
	return n.id.UnmarshalText(bytes.Trim(data, `"`))
}

func (n nullableUUID) ptr() *uuid.UUID {
	if !n.set {
		return nil
	}
	id := n.id
	return &id
}
