package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidPath   = errors.New("invalid path")
	ErrNoContent     = errors.New("no response content from llm")
	ErrParse         = errors.New("malformed model response")
)
