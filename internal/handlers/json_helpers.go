package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"time"

	"thesis-eval/internal/apperror"
	"thesis-eval/internal/middleware"
	"thesis-eval/internal/models"
)

// maxBodyBytes bounds every JSON request body
const maxBodyBytes = 1 << 20

// JSONResponse sends a JSON response and ensures slices are never null.
//
// Nil slices encode as "null", which frontends iterating over arrays choke on.
// Always use this function instead of json.NewEncoder(w).Encode().
func JSONResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(normalizeSlices(data)); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

var (
	timeType = reflect.TypeOf(time.Time{})
	rawType  = reflect.TypeOf(json.RawMessage{})
)

// normalizeSlices recursively ensures all nil slices become empty slices
func normalizeSlices(data any) any {
	if data == nil {
		return data
	}
	return normalizeValue(reflect.ValueOf(data)).Interface()
}

func normalizeValue(v reflect.Value) reflect.Value {
	switch v.Kind() {
	case reflect.Ptr:
		if v.IsNil() || v.Elem().Type() == timeType {
			return v
		}
		result := reflect.New(v.Elem().Type())
		result.Elem().Set(normalizeValue(v.Elem()))
		return result

	case reflect.Interface:
		if v.IsNil() {
			return v
		}
		return normalizeValue(v.Elem())

	case reflect.Slice:
		// byte slices and raw JSON are opaque
		if v.Type() == rawType || v.Type().Elem().Kind() == reflect.Uint8 {
			return v
		}
		if v.IsNil() {
			return reflect.MakeSlice(v.Type(), 0, 0)
		}
		result := reflect.MakeSlice(v.Type(), v.Len(), v.Len())
		for i := 0; i < v.Len(); i++ {
			result.Index(i).Set(normalizeValue(v.Index(i)))
		}
		return result

	case reflect.Map:
		if v.IsNil() {
			return v
		}
		result := reflect.MakeMapWithSize(v.Type(), v.Len())
		iter := v.MapRange()
		for iter.Next() {
			elem := normalizeValue(iter.Value())
			if !elem.Type().AssignableTo(v.Type().Elem()) {
				elem = iter.Value()
			}
			result.SetMapIndex(iter.Key(), elem)
		}
		return result

	case reflect.Struct:
		if v.Type() == timeType {
			return v
		}
		result := reflect.New(v.Type()).Elem()
		for i := 0; i < v.NumField(); i++ {
			field := result.Field(i)
			if !field.CanSet() {
				continue
			}
			normalized := normalizeValue(v.Field(i))
			if normalized.Type().AssignableTo(field.Type()) {
				field.Set(normalized)
			} else {
				field.Set(v.Field(i))
			}
		}
		return result
	}
	return v
}

// respondOK writes the success envelope {ok:true, ...fields}
func respondOK(w http.ResponseWriter, status int, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["ok"] = true
	JSONResponse(w, status, body)
}

type errorDetail struct {
	Code    apperror.Kind         `json:"code"`
	Message string                `json:"message"`
	Fields  []apperror.FieldError `json:"fields,omitempty"`
}

// statusFor maps an error kind to its HTTP status
func statusFor(kind apperror.Kind) int {
	switch kind {
	case apperror.KindValidation:
		return http.StatusBadRequest
	case apperror.KindNotFound:
		return http.StatusNotFound
	case apperror.KindLocked, apperror.KindConflict:
		return http.StatusConflict
	case apperror.KindUnauthorized:
		return http.StatusUnauthorized
	case apperror.KindForbidden:
		return http.StatusForbidden
	case apperror.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondWithError writes the failure envelope. 5xx causes are logged and
// replaced by a generic message.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperror.KindOf(err)
	status := statusFor(kind)

	detail := errorDetail{Code: kind, Message: err.Error()}
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		detail.Message = appErr.Message
		detail.Fields = appErr.Fields
	}

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"resource", r.URL.Query().Get("resource"),
			"kind", kind,
			"error", err,
		)
		detail.Fields = nil
		if status == http.StatusServiceUnavailable {
			detail.Message = ErrMsgUnavailable
		} else {
			detail.Message = ErrMsgInternal
		}
	}

	JSONResponse(w, status, map[string]any{"ok": false, "error": detail})
}

// respondMethodNotAllowed rejects an unsupported method for a resource
func respondMethodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	JSONResponse(w, http.StatusMethodNotAllowed, map[string]any{
		"ok":    false,
		"error": errorDetail{Code: "method_not_allowed", Message: "Method not allowed"},
	})
}

// decodeJSON reads a JSON body into v. An empty body is a validation error.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.Validation("Request body is required")
		}
		return apperror.Validation(ErrMsgInvalidRequestBody)
	}
	return nil
}

// actorFrom returns the authenticated actor. Routes are wrapped by
// Authenticate, so a missing actor is a wiring bug surfaced as 401.
func actorFrom(r *http.Request) (models.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return models.Actor{}, apperror.Unauthorized(ErrMsgUnauthorized)
	}
	return actor, nil
}
