// Package httperr defines the error taxonomy shared by all handlers:
// validation (400), unauthorized (401), forbidden (403), not-found
// (404) and conflict (409), plus a single Respond mapper so every
// controller surfaces errors the same way. Anything that is not an
// *Error is treated as an internal failure: logged in full, surfaced
// as a generic 500.
package httperr

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Error struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *Error) Error() string { return e.Message }

func Validation(format string, args ...any) *Error {
	return &Error{Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func Unauthorized(message string) *Error {
	return &Error{Status: http.StatusUnauthorized, Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Status: http.StatusForbidden, Message: message}
}

func NotFound(resource string) *Error {
	return &Error{Status: http.StatusNotFound, Message: resource + " not found"}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Status: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

// Respond writes err as a JSON response. Taxonomy errors keep their
// status and message; everything else is logged and hidden behind a
// generic 500 body.
func Respond(c *gin.Context, err error) {
	var he *Error
	if errors.As(err, &he) {
		c.JSON(he.Status, gin.H{"error": he.Message})
		return
	}
	log.Printf("internal error: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
