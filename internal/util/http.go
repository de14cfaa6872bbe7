package util

import (
	"github.com/brickbee/go-trade-vault/internal/api/httperrors"
	"github.com/labstack/echo/v4"
)

// Validatable payloads verify their own required fields after binding.
type Validatable interface {
	Validate() error
}

// BindAndValidateBody binds the JSON request body into v and runs its
// validation if it has any. Failures surface as 400 with the public error
// envelope.
func BindAndValidateBody(c echo.Context, v interface{}) error {
	if err := c.Bind(v); err != nil {
		return httperrors.NewBadRequest("failed to parse request body")
	}

	if validatable, ok := v.(Validatable); ok {
		if err := validatable.Validate(); err != nil {
			return httperrors.NewBadRequest(err.Error())
		}
	}

	return nil
}

// ValidateAndReturn writes the response payload with the given status code.
func ValidateAndReturn(c echo.Context, code int, v interface{}) error {
	return c.JSON(code, v)
}
