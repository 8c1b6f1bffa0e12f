package core

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Exception is a request-level failure identified by a language string key,
// the way the player reports invalid modules or missing parameters.
type Exception struct {
	Code   string // language string identifier, e.g. "invalidcoursemodule"
	A      string // optional {$a} for the message
	Status int
	Err    error
}

func (e *Exception) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	if e.A != "" {
		return e.Code + " (" + e.A + ")"
	}
	return e.Code
}

func (e *Exception) Unwrap() error { return e.Err }

// Is matches another exception with the same code.
func (e *Exception) Is(target error) bool {
	t, ok := target.(*Exception)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

var (
	ErrInvalidCourseModule = &Exception{Code: "invalidcoursemodule", Status: fiber.StatusNotFound}
	ErrCourseMisconf       = &Exception{Code: "coursemisconf", Status: fiber.StatusNotFound}
	ErrMissingParameter    = &Exception{Code: "missingparameter", Status: fiber.StatusBadRequest}
	ErrRequireLogin        = &Exception{Code: "requirelogin", Status: fiber.StatusUnauthorized}
	ErrRequireLoginError   = &Exception{Code: "requireloginerror", Status: fiber.StatusForbidden}
	ErrInvalidSco          = &Exception{Code: "invalidactivity", Status: fiber.StatusNotFound}
)

// NewException builds an exception of a known kind carrying extra context.
func NewException(kind *Exception, a string, err error) *Exception {
	return &Exception{Code: kind.Code, Status: kind.Status, A: a, Err: err}
}

// AsException unwraps err into an Exception. Anything else becomes a 500.
func AsException(err error) *Exception {
	var e *Exception
	if errors.As(err, &e) {
		return e
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return &Exception{Code: "generalexceptionmessage", A: fe.Message, Status: fe.Code, Err: err}
	}
	return &Exception{Code: "generalexceptionmessage", Status: fiber.StatusInternalServerError, Err: err}
}
