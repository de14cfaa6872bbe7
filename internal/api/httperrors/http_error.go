// Package httperrors defines the JSON error envelope of the local API.
package httperrors

import (
	"fmt"
	"net/http"

	"github.com/brickbee/go-trade-vault/internal/types"
)

// HTTPError is the public error payload. It implements error so handlers can
// return it directly and let the echo error handler serialize it.
type HTTPError struct {
	Code  int    `json:"status"`
	Type  string `json:"type"`
	Title string `json:"title"`
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTPError %d (%s): %s", e.Code, e.Type, e.Title)
}

func NewHTTPError(code int, errorType, title string) *HTTPError {
	return &HTTPError{
		Code:  code,
		Type:  errorType,
		Title: title,
	}
}

func NewBadRequest(title string) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, types.PublicHTTPErrorTypeGeneric, title)
}

func NewNotFound(title string) *HTTPError {
	return NewHTTPError(http.StatusNotFound, types.PublicHTTPErrorTypeGeneric, title)
}
