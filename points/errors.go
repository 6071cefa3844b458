package points

import (
	"errors"
	"fmt"
)

var (
	// ErrSchema is matched by every SchemaError.
	ErrSchema = errors.New("invalid point table schema")

	// ErrTimestampFormat is matched by every TimestampFormatError.
	ErrTimestampFormat = errors.New("unparseable timestamp")
)

// SchemaError reports a required column that is missing or a cell that
// cannot be read as the column's type.
type SchemaError struct {
	Column string
	Row    int // -1 when the whole column is missing
	Msg    string
}

func (e *SchemaError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("column %q: %s", e.Column, e.Msg)
	}
	return fmt.Sprintf("column %q row %d: %s", e.Column, e.Row, e.Msg)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

func missingColumn(col string) *SchemaError {
	return &SchemaError{Column: col, Row: -1, Msg: "not present in point table"}
}

// TimestampFormatError names the timestamp value and the format it failed to parse with.
type TimestampFormatError struct {
	Row    int
	Value  string
	Format string
	Err    error
}

func (e *TimestampFormatError) Error() string {
	return fmt.Sprintf("row %d: timestamp %q does not match format %q: %v", e.Row, e.Value, e.Format, e.Err)
}

func (e *TimestampFormatError) Is(target error) bool { return target == ErrTimestampFormat }

func (e *TimestampFormatError) Unwrap() error { return e.Err }
