package engine

import "errors"

var (
	ErrTableNotFound  = errors.New("table does not exist")
	ErrTableExists    = errors.New("table already exists")
	ErrColumnNotFound = errors.New("column does not exist")
)
