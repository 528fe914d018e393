// internal/api/response/response.go
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/newthinker/polydash/internal/client"
	"github.com/newthinker/polydash/internal/core"
)

// Page describes one window of a paged list.
type Page struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Meta contains response metadata.
type Meta struct {
	Timestamp time.Time `json:"timestamp"`
	Page      *Page     `json:"page,omitempty"`
}

// SuccessResponse wraps every successful payload.
type SuccessResponse struct {
	Data any  `json:"data"`
	Meta Meta `json:"meta"`
}

// ErrorDetail describes a failure. Upstream is the backend's HTTP status
// when the failure was relayed from the bot API.
type ErrorDetail struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Cause    string `json:"cause,omitempty"`
	Upstream int    `json:"upstream_status,omitempty"`
}

// ErrorResponse wraps every error payload.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// JSON writes data with a timestamped envelope.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, SuccessResponse{Data: data, Meta: meta(nil)})
}

// Paged writes one window of a list along with its paging metadata.
func Paged(w http.ResponseWriter, data any, p Page) {
	write(w, http.StatusOK, SuccessResponse{Data: data, Meta: meta(&p)})
}

// Error writes err as an ErrorDetail. Errors outside core are reported
// as INTERNAL_ERROR without their text.
func Error(w http.ResponseWriter, status int, err error) {
	write(w, status, ErrorResponse{Error: Detail(err)})
}

// Fail writes err with the status from StatusFor.
func Fail(w http.ResponseWriter, err error) {
	Error(w, StatusFor(err), err)
}

// Detail extracts the code, message and backend status of err.
func Detail(err error) ErrorDetail {
	d := ErrorDetail{Code: "INTERNAL_ERROR", Message: "an internal error occurred"}

	var coreErr *core.Error
	if errors.As(err, &coreErr) {
		d.Code = coreErr.Code
		d.Message = coreErr.Message
		if coreErr.Cause != nil {
			d.Cause = coreErr.Cause.Error()
		}
	}

	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		d.Upstream = apiErr.Status
		if d.Cause == "" {
			d.Cause = apiErr.Message
		}
	}
	return d
}

// StatusFor maps an error to the HTTP status the dashboard answers with.
// Backend failures are reported as 502 since the dashboard only relays them.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNoData):
		return http.StatusNotFound
	case errors.Is(err, core.ErrAPIStatus),
		errors.Is(err, core.ErrTransport),
		errors.Is(err, core.ErrDecode),
		errors.Is(err, core.ErrExportFailed),
		errors.Is(err, core.ErrArchiveFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func meta(p *Page) Meta {
	return Meta{Timestamp: time.Now().UTC(), Page: p}
}

func write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
