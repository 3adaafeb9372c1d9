package query

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUserAborted is returned when an oversized pull is declined at the
// safety gate. It is distinct from transport failures so callers can tell
// "chose not to" from "failed".
var ErrUserAborted = errors.New("extraction aborted by user")

// UnknownDimensionError is returned when a dimension id is not part of the
// table's metadata.
type UnknownDimensionError struct {
	Table     string
	Dimension string
	Available []string
}

func (e *UnknownDimensionError) Error() string {
	return fmt.Sprintf("table %s has no dimension %q\nAvailable dimensions: %s",
		e.Table, e.Dimension, strings.Join(e.Available, ", "))
}
