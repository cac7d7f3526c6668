package util

import (
	"fmt"
	"net/http"
)

// MyResponseError is returned by handlers that already know the status to answer with.
type MyResponseError struct {
	Msg    string
	Status int
}

func (e MyResponseError) Error() string { return e.Msg }

func NewResponseError(status int, format string, args ...any) error {
	return MyResponseError{
		Msg:    fmt.Sprintf(format, args...),
		Status: status,
	}
}

func BadRequest(format string, args ...any) error {
	return NewResponseError(http.StatusBadRequest, format, args...)
}
