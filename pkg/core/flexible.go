package core

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexibleString converts a json.RawMessage to a string, handling cases where
// the portal sends numbers or booleans where an identifier is expected.
// Returns empty string for null/empty.
func FlexibleString(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var strVal string
	if err := json.Unmarshal(raw, &strVal); err == nil {
		return strVal, nil
	}

	var numVal json.Number
	if err := json.Unmarshal(raw, &numVal); err == nil {
		if i, err := strconv.ParseInt(numVal.String(), 10, 64); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		return numVal.String(), nil
	}

	var boolVal bool
	if err := json.Unmarshal(raw, &boolVal); err == nil {
		return strconv.FormatBool(boolVal), nil
	}

	return "", fmt.Errorf("expected scalar, got %s", describeJSON(raw))
}

// FlexibleBool interprets a JSON scalar as a boolean. Strings "true"/"1" and
// non-zero numbers are true. Null and empty input are false.
func FlexibleBool(raw json.RawMessage) (bool, error) {
	s, err := FlexibleString(raw)
	if err != nil {
		return false, err
	}
	switch s {
	case "", "false", "0":
		return false, nil
	case "true", "1":
		return true, nil
	}
	return false, fmt.Errorf("expected boolean, got %q", s)
}

// describeJSON names the JSON kind of raw for error messages.
func describeJSON(raw json.RawMessage) string {
	for _, c := range raw {
		switch c {
		case ' ', '\t', '\r', '\n':
			continue
		case '{':
			return "object"
		case '[':
			return "array"
		default:
			return "value"
		}
	}
	return "empty input"
}
