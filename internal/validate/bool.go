package validate

import (
	"encoding/json"
	"reflect"
)

// Bool is a request flag that also accepts 1, 0, "1" and "0".
type Bool bool

func (b *Bool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "null":
	case "true", "1", `"1"`:
		*b = true
	case "false", "0", `"0"`:
		*b = false
	default:
		return &json.UnmarshalTypeError{Value: string(data), Type: reflect.TypeOf(true)}
	}
	return nil
}
