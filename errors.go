package tweets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Reason is the stable, machine-readable cause of a failed build.
type Reason string

const (
	ReasonNotFound       Reason = "resource-not-found"
	ReasonAgeRestricted  Reason = "age-restricted"
	ReasonPrivateAccount Reason = "private-account"
	ReasonUnavailable    Reason = "tweet-unavailable"
	ReasonServerError    Reason = "server-error"
	ReasonInvalidRequest Reason = "invalid-request"
)

// StatusFor maps a reason to its HTTP status. Unmapped reasons are 500.
func StatusFor(r Reason) int {
	switch r {
	case ReasonNotFound:
		return http.StatusNotFound
	case ReasonAgeRestricted, ReasonPrivateAccount, ReasonUnavailable:
		return http.StatusForbidden
	case ReasonInvalidRequest:
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Error is a classified failure. Data always carries the requested "id" when
// one is known, plus whatever raw values were read before the failure.
type Error struct {
	Reason Reason         `json:"reason"`
	Detail string         `json:"detail"`
	Data   map[string]any `json:"data,omitempty"`
	Status int            `json:"status"`
}

// NewError builds an Error whose status follows StatusFor.
func NewError(reason Reason, detail string, data map[string]any) *Error {
	return &Error{
		Reason: reason,
		Detail: detail,
		Data:   data,
		Status: StatusFor(reason),
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Detail)
}

// AsError extracts a classified *Error from err. Anything unclassified becomes
// a server error carrying id.
func AsError(err error, id string) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	data := map[string]any{"id": id}
	switch {
	case errors.Is(err, ErrNotCaptured):
		return NewError(ReasonNotFound, "tweet detail was not captured; tweet may not exist", data)
	case errors.Is(err, context.DeadlineExceeded):
		return NewError(ReasonServerError, "timed out fetching tweet detail: "+err.Error(), data)
	case errors.Is(err, context.Canceled):
		return NewError(ReasonServerError, "fetching tweet detail was canceled", data)
	}
	return NewError(ReasonServerError, err.Error(), data)
}

// apiErrorClass categorizes upstream GraphQL error payloads.
type apiErrorClass int

const (
	apiErrNone        apiErrorClass = iota
	apiErrNotFound                  // 144, 34: no status / page does not exist
	apiErrRateLimited               // 88
	apiErrForbidden                 // 179, 200: not authorized / forbidden
	apiErrInternal                  // 131
	apiErrOther
)

// classifyAPIError inspects a response body for known upstream error codes.
func classifyAPIError(body []byte) (apiErrorClass, string) {
	var errResp struct {
		Errors []struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"errors"`
	}
	if json.Unmarshal(body, &errResp) != nil || len(errResp.Errors) == 0 {
		return apiErrNone, ""
	}

	for _, e := range errResp.Errors {
		switch e.Code {
		case 144, 34:
			return apiErrNotFound, e.Message
		case 88:
			return apiErrRateLimited, e.Message
		case 179, 200:
			return apiErrForbidden, e.Message
		case 131:
			return apiErrInternal, e.Message
		}
	}
	return apiErrOther, errResp.Errors[0].Message
}

// parseRateLimitReset parses the X-Rate-Limit-Reset unix timestamp header.
// Falls back to 15 minutes from now if missing or invalid.
func parseRateLimitReset(v string) time.Time {
	if ts, err := strconv.ParseInt(v, 10, 64); err == nil {
		return time.Unix(ts, 0)
	}
	return time.Now().Add(15 * time.Minute)
}
