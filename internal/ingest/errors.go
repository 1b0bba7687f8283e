package ingest

import "fmt"

// Category classifies a fatal ingestion error.
type Category string

const (
	CategoryInvalidRequest Category = "invalid_request"
	CategoryInvalidPolicy  Category = "invalid_policy"
	CategoryWrongFormat    Category = "wrong_format"
	CategoryMalformedFile  Category = "malformed_file"
	CategoryMissingColumns Category = "missing_columns"
	CategoryNoValidRows    Category = "no_valid_rows"
)

// Error aborts an ingestion before the store is touched.
type Error struct {
	Category Category
	Message  string
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(c Category, format string, args ...interface{}) *Error {
	return &Error{Category: c, Message: fmt.Sprintf(format, args...)}
}
