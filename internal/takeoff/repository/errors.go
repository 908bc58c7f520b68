package repository

import "errors"

// ============================================================
// Errors
// ============================================================

var (
	// ErrNotFound — запись с таким id в коллекции отсутствует.
	ErrNotFound = errors.New("record not found")

	// ErrNoConnection — бэкенд недоступен.
	ErrNoConnection = errors.New("no database connection")
)
