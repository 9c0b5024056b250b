// Package validate holds the declarative field rules used by every form.
// A rule looks at one field value and returns a human readable message, or
// "" when the value passes.
package validate

import (
	"math"
	"mime/multipart"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

var digitsRegexp = regexp.MustCompile(`^\d+$`)

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	must(val.RegisterValidation("digits", func(fl validator.FieldLevel) bool {
		return digitsRegexp.MatchString(fl.Field().String())
	}))
	// replaces the built-in digits-only "number" tag
	must(val.RegisterValidation("number", func(fl validator.FieldLevel) bool {
		return IsNumber(fl.Field().String())
	}))
	return val
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// IsNumber reports whether s parses as a numeric value that is not NaN.
// Surrounding whitespace is ignored.
func IsNumber(s string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return false
	}
	return !math.IsNaN(f)
}

// Value is one raw form input. File is set only for file inputs.
type Value struct {
	Text string
	File *multipart.FileHeader
}

// Text wraps a plain string input
func Text(s string) Value {
	return Value{Text: s}
}

// File wraps an uploaded file input
func File(fh *multipart.FileHeader) Value {
	return Value{File: fh}
}

// Rule checks a single value
type Rule func(val Value) string

func tag(tag, msg string) Rule {
	return func(val Value) string {
		if err := v.Var(val.Text, tag); err != nil {
			return msg
		}
		return ""
	}
}

// Required fails when the trimmed text is empty
func Required(msg string) Rule {
	return func(val Value) string {
		if err := v.Var(strings.TrimSpace(val.Text), "required"); err != nil {
			return msg
		}
		return ""
	}
}

// MinLen fails when the text has fewer than n characters
func MinLen(n int, msg string) Rule {
	return tag("min="+strconv.Itoa(n), msg)
}

// EmailSimple accepts any text holding exactly one '@'
func EmailSimple(msg string) Rule {
	return func(val Value) string {
		if strings.Count(val.Text, "@") != 1 {
			return msg
		}
		return ""
	}
}

// EmailStrict requires a well formed address
func EmailStrict(msg string) Rule {
	return tag("email", msg)
}

// Digits requires ^\d+$
func Digits(msg string) Rule {
	return tag("digits", msg)
}

// OneOf requires the text to be one of the options
func OneOf(options []string, msg string) Rule {
	return tag("oneof="+strings.Join(options, " "), msg)
}

// Number requires a parseable, non-NaN number
func Number(msg string) Rule {
	return tag("number", msg)
}

// FileRequired requires an actual uploaded file, not just a field value
func FileRequired(msg string) Rule {
	return func(val Value) string {
		if val.File == nil || val.File.Filename == "" || val.File.Size <= 0 {
			return msg
		}
		return ""
	}
}

// Field names a form field and its ordered rules. The first failing
// rule's message wins.
type Field struct {
	Name  string
	File  bool
	Rules []Rule
}

// Errors maps field name to message. Absent fields are valid.
type Errors map[string]string

func (e Errors) OK() bool {
	return len(e) == 0
}

// Schema is the set of fields of one form
type Schema struct {
	Name   string
	Fields []Field
}

// Field returns the named field definition
func (s *Schema) Field(name string) (Field, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ValidateField runs the rules of a single field. Unknown fields are valid.
func (s *Schema) ValidateField(name string, val Value) string {
	f, ok := s.Field(name)
	if !ok {
		return ""
	}
	for _, rule := range f.Rules {
		if msg := rule(val); msg != "" {
			return msg
		}
	}
	return ""
}

// Validate runs every field of the schema against values
func (s *Schema) Validate(values map[string]Value) Errors {
	errs := Errors{}
	for _, f := range s.Fields {
		if msg := s.ValidateField(f.Name, values[f.Name]); msg != "" {
			errs[f.Name] = msg
		}
	}
	return errs
}

// Struct checks the `validate` tags of a request payload
func Struct(s interface{}) error {
	return v.Struct(s)
}
