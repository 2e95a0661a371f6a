package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/jobflow/errors"
)

// DataResponse is the success envelope.
type DataResponse struct {
	Data any `json:"data"`
}

// RespondWithError writes err's AppError envelope; other errors become a 500.
func RespondWithError(c *gin.Context, err error) {
	appErr := errors.From(err)
	_ = c.Error(err)
	c.JSON(appErr.HTTPStatus, appErr.ToResponse())
}

func RespondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, DataResponse{Data: data})
}

// RespondAccepted answers 202 with data and, when location is set, a
// Location header.
func RespondAccepted(c *gin.Context, location string, data any) {
	if location != "" {
		c.Header("Location", location)
	}
	c.JSON(http.StatusAccepted, DataResponse{Data: data})
}
