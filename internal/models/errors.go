package models

import "errors"

var (
	ErrNotFound           = errors.New("file not found")
	ErrIO                 = errors.New("file not readable")
	ErrMethodNotAllowed   = errors.New("method not allowed")
	ErrForbidden          = errors.New("forbidden path")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrRangeMalformed     = errors.New("malformed range")
	ErrRangeUnsatisfiable = errors.New("range not satisfiable")
	ErrNotReady           = errors.New("build in progress")
)
