package wire

import (
	"encoding/json"
	"strconv"
)

// DefaultAPIPrefix is the mount path used when no prefix is configured.
const DefaultAPIPrefix = "/api/batch"

// CallsParam is the query parameter carrying the encoded (id, path) pairs.
const CallsParam = "calls"

// Error codes carried in failure items
const (
	CodeBadRequest = 400
	CodeNotFound   = 404
	CodeInternal   = 500
)

// Error names carried in failure items
const (
	NameBadRequest = "BadRequestError"
	NameNotFound   = "NotFoundError"
	NameDomain     = "DomainError"
	NameInternal   = "InternalError"
)

// ID is a correlation id tying a request-side call to its
// response-side outcome. Unique within a batch.
type ID string

// NewID creates an ID from a client-side sequence number.
func NewID(n int64) ID {
	return ID(strconv.FormatInt(n, 10))
}

// Call is one (id, path) pair of a batch request.
type Call struct {
	ID   ID
	Path []string
}

// BodyItem is one element of the request body array.
// Input is omitted entirely when the caller passed no input.
type BodyItem struct {
	ID    ID              `json:"id"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Error is a structured per-item failure.
type Error struct {
	Code    int    `json:"code"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// NewError creates an Error with the given code and name.
func NewError(code int, name, message string) *Error {
	return &Error{Code: code, Name: name, Message: message}
}

// NewNotFoundError reports a path that resolved to no route.
func NewNotFoundError(path string) *Error {
	return NewError(CodeNotFound, NameNotFound, "no route registered for path "+path)
}

// NewInternalError reports a server-side consistency failure.
func NewInternalError(message string) *Error {
	return NewError(CodeInternal, NameInternal, message)
}

// FromError converts a handler error into a failure item payload.
// A *wire.Error passes through unchanged so handlers can control the
// code and name; anything else becomes a DomainError.
func FromError(err error) *Error {
	if werr, ok := err.(*Error); ok {
		return werr
	}
	return NewError(CodeInternal, NameDomain, err.Error())
}
