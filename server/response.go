package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/voxkit/errors"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondWithError writes err as an error envelope. AppErrors keep their
// status and code; anything else is a 500 INTERNAL_ERROR.
func RespondWithError(c *gin.Context, err error) {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.Internal(err)
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// RespondOK sends a 200 response wrapping data.
func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondRaw sends body as-is with the given content type.
func RespondRaw(c *gin.Context, contentType string, body []byte) {
	c.Data(http.StatusOK, contentType, body)
}

func errNoRoute(path string) *errors.AppError {
	return errors.NotFound("route", path)
}

func errNoMethod(method string) *errors.AppError {
	return errors.New(errors.ErrCodeInvalidInput, "method "+method+" not allowed", http.StatusMethodNotAllowed)
}
