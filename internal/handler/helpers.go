package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/cleaning-crm/api/internal/logger"
	"github.com/cleaning-crm/api/internal/media"
	"github.com/cleaning-crm/api/internal/phone"
	"github.com/cleaning-crm/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Error("encode JSON response")
	}
}

func writeErr(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeValid decodes the JSON body into dst and runs its validate tags.
// On failure it has already answered 400.
func decodeValid(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeErr(w, http.StatusBadRequest, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", fe.Field()))
		case "min", "gte":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", fe.Field(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(msgs, "; ")
}

// idParam parses a positive int64 path parameter.
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}

// pathID writes 400 when the parameter is not a valid id.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := idParam(r, name)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err.Error())
		return 0, false
	}
	return id, true
}

// queryID parses a positive int64 query value.
func queryID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func pagination(r *http.Request) (limit, offset int32) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = int32(v)
		}
	}
	if limit > 100 {
		limit = 100
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = int32(v)
		}
	}
	return limit, offset
}

// dateQuery parses an optional YYYY-MM-DD or RFC 3339 query value. A plain
// date is midnight in loc.
func dateQuery(r *http.Request, key string, loc *time.Location) (*time.Time, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return nil, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	return &t, nil
}

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrInvalidRate) ||
		errors.Is(err, service.ErrInvalidAmount) ||
		errors.Is(err, service.ErrNegativeMoney) ||
		errors.Is(err, service.ErrMissingAddress) ||
		errors.Is(err, service.ErrMissingWorkStart) ||
		errors.Is(err, service.ErrInvalidCleaningTime) ||
		errors.Is(err, service.ErrInvalidPaymentType) ||
		errors.Is(err, service.ErrEmptyServices) ||
		errors.Is(err, service.ErrInvalidLine) ||
		errors.Is(err, service.ErrTooManyBrigadiers) ||
		errors.Is(err, service.ErrDuplicateStaff) ||
		errors.Is(err, service.ErrTooManyStaff) ||
		errors.Is(err, service.ErrInvalidCleanersPart) ||
		errors.Is(err, service.ErrInvalidWorkWindow) ||
		errors.Is(err, service.ErrUnsupportedImage) ||
		errors.Is(err, service.ErrBonusNotAllowed) ||
		errors.Is(err, service.ErrEntriesMismatch) ||
		errors.Is(err, service.ErrUnknownCleaner) ||
		errors.Is(err, service.ErrSalaryCapExceeded) ||
		errors.Is(err, media.ErrUnsupportedType) ||
		errors.Is(err, phone.ErrInvalidPhone)
}

func isNotFoundError(err error) bool {
	return errors.Is(err, service.ErrOrderNotFound) ||
		errors.Is(err, service.ErrClientNotFound) ||
		errors.Is(err, service.ErrServiceNotFound) ||
		errors.Is(err, service.ErrStaffNotFound) ||
		errors.Is(err, service.ErrInventoryNotFound) ||
		errors.Is(err, service.ErrLineNotFound) ||
		errors.Is(err, service.ErrAssignmentNotFound) ||
		errors.Is(err, pgx.ErrNoRows)
}

func isConflictError(err error) bool {
	return errors.Is(err, service.ErrOrderClosed) ||
		errors.Is(err, service.ErrInvalidTransition) ||
		errors.Is(err, service.ErrStaffNotEligible) ||
		errors.Is(err, service.ErrStaffAlreadyAssigned) ||
		errors.Is(err, service.ErrInsufficientStock) ||
		errors.Is(err, service.ErrReportExists) ||
		errors.Is(err, service.ErrNotAccepted)
}

func isForbiddenError(err error) bool {
	return errors.Is(err, service.ErrNotAssigned) ||
		errors.Is(err, service.ErrNotBrigadier)
}

// isWarning marks settlement preconditions the manager can fix and retry.
func isWarning(err error) bool {
	return errors.Is(err, service.ErrNotAllAccepted) ||
		errors.Is(err, service.ErrCleanersPartNotSet)
}

// pgErrorCode returns the SQLSTATE of a Postgres error, or "".
func pgErrorCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// writeServiceError maps service and database errors to a status code.
// Anything unrecognised is logged and answered with 500.
func writeServiceError(w http.ResponseWriter, err error, op string) {
	switch {
	case isWarning(err):
		writeJSON(w, http.StatusConflict, map[string]string{"warning": err.Error()})
	case isValidationError(err):
		writeErr(w, http.StatusBadRequest, err.Error())
	case isForbiddenError(err):
		writeErr(w, http.StatusForbidden, err.Error())
	case isNotFoundError(err):
		msg := err.Error()
		if errors.Is(err, pgx.ErrNoRows) {
			msg = "not found"
		}
		writeErr(w, http.StatusNotFound, msg)
	case isConflictError(err):
		writeErr(w, http.StatusConflict, err.Error())
	case pgErrorCode(err) == "23505":
		writeErr(w, http.StatusConflict, "already exists")
	case pgErrorCode(err) == "23503":
		writeErr(w, http.StatusConflict, "still referenced by other records")
	default:
		logger.Log.WithError(err).WithField("op", op).Error("request failed")
		writeErr(w, http.StatusInternalServerError, "internal server error")
	}
}
