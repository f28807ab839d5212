package validate

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator"
)

// Error is a failed validation keyed by JSON field name.
type Error struct {
	Fields map[string][]string
}

func (e *Error) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+strings.Join(e.Fields[k], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *Error) Add(field, message string) *Error {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], message)
	return e
}

func NewError(field, message string) *Error {
	return (&Error{}).Add(field, message)
}

type Validator struct {
	validator *validator.Validate
}

func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "query", "param"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return &Validator{validator: v}
}

func (v *Validator) RegisterStructValidation(fn validator.StructLevelFunc, types ...interface{}) {
	v.validator.RegisterStructValidation(fn, types...)
}

// Struct validates i and returns *Error for rule violations.
func (v *Validator) Struct(i interface{}) error {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	out := &Error{}
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), Message(fe.Field(), fe.Tag(), fe.Param(), fe.Kind()))
	}
	return out
}

// Message renders a human readable message for a failed rule.
func Message(field, tag, param string, kind reflect.Kind) string {
	name := strings.ReplaceAll(field, "_", " ")
	switch tag {
	case "required":
		return fmt.Sprintf("The %s field is required.", name)
	case "required_with":
		return fmt.Sprintf("The %s field is required when %s is present.", name, humanize(param))
	case "required_without":
		return fmt.Sprintf("The %s field is required when %s is not present.", name, humanize(param))
	case "excluded_with":
		return fmt.Sprintf("The %s field is prohibited when %s is present.", name, humanize(param))
	case "required_if":
		return fmt.Sprintf("The %s field is required when %s is true.", name, humanize(param))
	case "prohibited":
		return fmt.Sprintf("The %s field is prohibited.", name)
	case "max":
		if kind == reflect.String {
			return fmt.Sprintf("The %s may not be greater than %s characters.", name, param)
		}
		return fmt.Sprintf("The %s may not be greater than %s.", name, param)
	case "min":
		if kind == reflect.String {
			return fmt.Sprintf("The %s must be at least %s characters.", name, param)
		}
		return fmt.Sprintf("The %s must be at least %s.", name, param)
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", name)
	case "oneof":
		return fmt.Sprintf("The selected %s is invalid.", name)
	case "hexcolor", "len":
		return fmt.Sprintf("The %s format is invalid.", name)
	case "unique":
		return fmt.Sprintf("The %s has already been taken.", name)
	case "exists":
		return fmt.Sprintf("The selected %s is invalid.", name)
	case "integer":
		return fmt.Sprintf("The %s must be an integer.", name)
	case "boolean":
		return fmt.Sprintf("The %s field must be true or false.", name)
	case "string":
		return fmt.Sprintf("The %s must be a string.", name)
	default:
		return fmt.Sprintf("The %s is invalid.", name)
	}
}

func humanize(param string) string {
	return strings.ReplaceAll(toSnake(param), "_", " ")
}

func toSnake(s string) string {
	s = strings.ReplaceAll(s, "ID", "Id")
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
