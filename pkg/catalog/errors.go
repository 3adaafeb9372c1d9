package catalog

import "fmt"

// Level names one layer of the catalog tree.
type Level string

// Catalog tree levels, outermost first.
const (
	LevelRoot  Level = "root"
	LevelOne   Level = "lvl1"
	LevelTwo   Level = "lvl2"
	LevelThree Level = "lvl3"
	LevelTable Level = "table"
)

// levelAt returns the subject level for a 1-based nesting depth.
func levelAt(depth int) Level {
	switch depth {
	case 1:
		return LevelOne
	case 2:
		return LevelTwo
	default:
		return LevelThree
	}
}

// CatalogFormatError is returned when the catalog tree is malformed or
// structurally unexpected. Level names the layer at fault and Path locates
// the offending node.
type CatalogFormatError struct {
	Level  Level
	Path   string
	Reason string
	Err    error
}

func (e *CatalogFormatError) Error() string {
	msg := fmt.Sprintf("malformed catalog at %s", e.Level)
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *CatalogFormatError) Unwrap() error { return e.Err }

func formatErr(level Level, path, reason string) *CatalogFormatError {
	return &CatalogFormatError{Level: level, Path: path, Reason: reason}
}
