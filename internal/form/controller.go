// Package form keeps the state of one form submission: the entered values,
// the per-field messages and the outcome of the submit action.
package form

import (
	"context"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/talkincode/storefront/internal/validate"
)

// Status of a submit attempt
type Status int

const (
	Invalid Status = iota + 1
	Succeeded
	Failed
)

// Result is returned by Submit. Err is set only when the action failed.
type Result struct {
	Status Status
	Err    error
}

func (r Result) Invalid() bool   { return r.Status == Invalid }
func (r Result) Succeeded() bool { return r.Status == Succeeded }
func (r Result) Failed() bool    { return r.Status == Failed }

// Action performs the side effect of a valid submit
type Action func(ctx context.Context, c *Controller) error

// Controller holds values and messages for every field of a schema
type Controller struct {
	schema *validate.Schema
	values map[string]validate.Value
	errors validate.Errors
}

func New(schema *validate.Schema) *Controller {
	c := &Controller{schema: schema}
	c.Reset()
	return c
}

// Bind builds a controller from a submitted request. Text fields come from
// the form values, file fields from the multipart form when present. Only
// fields known to the schema are read.
func Bind(schema *validate.Schema, r *http.Request) *Controller {
	c := New(schema)
	for _, f := range schema.Fields {
		if f.File {
			if r.MultipartForm != nil {
				if files := r.MultipartForm.File[f.Name]; len(files) > 0 {
					c.SetFile(f.Name, files[0])
					continue
				}
			}
			c.SetFile(f.Name, nil)
			continue
		}
		c.Set(f.Name, r.FormValue(f.Name))
	}
	return c
}

func (c *Controller) Schema() *validate.Schema {
	return c.schema
}

// Set stores a text value and revalidates only that field. It returns the
// field's message, "" when valid.
func (c *Controller) Set(field, value string) string {
	return c.store(field, validate.Text(value))
}

// SetFile stores an uploaded file and revalidates only that field
func (c *Controller) SetFile(field string, fh *multipart.FileHeader) string {
	return c.store(field, validate.File(fh))
}

func (c *Controller) store(field string, val validate.Value) string {
	c.values[field] = val
	msg := c.schema.ValidateField(field, val)
	if msg == "" {
		delete(c.errors, field)
	} else {
		c.errors[field] = msg
	}
	return msg
}

// Value returns the text entered for field
func (c *Controller) Value(field string) string {
	return c.values[field].Text
}

// TrimmedValue returns the entered text without surrounding whitespace
func (c *Controller) TrimmedValue(field string) string {
	return strings.TrimSpace(c.values[field].Text)
}

// File returns the uploaded file of field, nil when none
func (c *Controller) File(field string) *multipart.FileHeader {
	return c.values[field].File
}

// Error returns the current message of field
func (c *Controller) Error(field string) string {
	return c.errors[field]
}

func (c *Controller) Errors() validate.Errors {
	return c.errors
}

// Values returns the text of every field, used to re-render the form
func (c *Controller) Values() map[string]string {
	out := make(map[string]string, len(c.values))
	for k, v := range c.values {
		out[k] = v.Text
	}
	return out
}

// Validate revalidates every field and reports whether all pass
func (c *Controller) Validate() bool {
	c.errors = c.schema.Validate(c.values)
	return c.errors.OK()
}

// Reset restores the initial empty values and clears every message
func (c *Controller) Reset() {
	c.values = make(map[string]validate.Value, len(c.schema.Fields))
	for _, f := range c.schema.Fields {
		c.values[f.Name] = validate.Value{}
	}
	c.errors = validate.Errors{}
}

// Submit revalidates all fields and runs action only when they pass. A
// successful action resets the form, a failed one keeps the entered values.
func (c *Controller) Submit(ctx context.Context, action Action) Result {
	if !c.Validate() {
		return Result{Status: Invalid}
	}
	if err := action(ctx, c); err != nil {
		return Result{Status: Failed, Err: err}
	}
	c.Reset()
	return Result{Status: Succeeded}
}
