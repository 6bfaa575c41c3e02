package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sailing-innocent/SailZen/internal/pkg/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// FromError maps a service error to its HTTP status using the error kind,
// keeping the kind as the machine-readable code.
func FromError(c *gin.Context, err error) {
	code := string(apperr.KindOf(err))
	if code == "" {
		code = "internal_error"
	}
	RespondError(c, apperr.HTTPStatus(err), code, err)
}
