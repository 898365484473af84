package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/classrecord/classrecord-api/pkg/errors"
	"github.com/classrecord/classrecord-api/pkg/middleware/requestid"
)

// Envelope is the API's response contract. Exactly one of Data or Error is
// set; error responses also carry the request ID so clients can quote it
// when reporting a problem.
type Envelope struct {
	Data      interface{}      `json:"data,omitempty"`
	Error     *appErrors.Error `json:"error,omitempty"`
	RequestID string           `json:"requestId,omitempty"`
}

// JSON sends a success response wrapped in the envelope.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, Envelope{Data: data})
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Error sends an error response converting the error to the common structure.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(appErr.Status, Envelope{Error: appErr, RequestID: requestid.Value(c)})
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
