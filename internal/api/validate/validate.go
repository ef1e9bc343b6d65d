// Package validate checks request bodies against JSON Schemas before they
// are bound to request structs.
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"todo_collab/internal/common"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const maxBodyBytes = 1 << 20

const (
	Login          = "login"
	UserCreate     = "user_create"
	UserUpdate     = "user_update"
	ChangePassword = "change_password"
	ToDo           = "todo"
	TaskCreate     = "task_create"
	TaskUpdate     = "task_update"
	State          = "state"
)

const nonEmpty = `{"type": "string", "minLength": 1}`

var sources = map[string]string{
	Login: `{
		"type": "object",
		"required": ["email", "password"],
		"properties": {
			"email": {"type": "string", "format": "email"},
			"password": ` + nonEmpty + `
		}
	}`,
	UserCreate: `{
		"type": "object",
		"required": ["first_name", "last_name", "email", "password"],
		"properties": {
			"first_name": ` + nonEmpty + `,
			"last_name": ` + nonEmpty + `,
			"email": {"type": "string", "format": "email"},
			"password": ` + nonEmpty + `
		}
	}`,
	UserUpdate: `{
		"type": "object",
		"required": ["first_name", "last_name", "email"],
		"properties": {
			"first_name": ` + nonEmpty + `,
			"last_name": ` + nonEmpty + `,
			"email": {"type": "string", "format": "email"},
			"role": {"type": "string"},
			"password": {"type": "string"}
		}
	}`,
	ChangePassword: `{
		"type": "object",
		"required": ["old_password", "new_password"],
		"properties": {
			"old_password": {"type": "string"},
			"new_password": ` + nonEmpty + `
		}
	}`,
	ToDo: `{
		"type": "object",
		"required": ["title"],
		"properties": {"title": ` + nonEmpty + `}
	}`,
	TaskCreate: `{
		"type": "object",
		"required": ["name", "priority"],
		"properties": {
			"name": ` + nonEmpty + `,
			"priority": {"type": "string"}
		}
	}`,
	TaskUpdate: `{
		"type": "object",
		"required": ["name", "priority", "state_id"],
		"properties": {
			"name": ` + nonEmpty + `,
			"priority": {"type": "string"},
			"state_id": {"type": "integer", "minimum": 1}
		}
	}`,
	State: `{
		"type": "object",
		"required": ["name"],
		"properties": {"name": ` + nonEmpty + `}
	}`,
}

var schemas = mustCompile(sources)

func mustCompile(src map[string]string) map[string]*jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	out := make(map[string]*jsonschema.Schema, len(src))
	for name, body := range src {
		url := name + ".json"
		if err := compiler.AddResource(url, strings.NewReader(body)); err != nil {
			panic(fmt.Sprintf("validate: add schema %s: %v", name, err))
		}
		schema, err := compiler.Compile(url)
		if err != nil {
			panic(fmt.Sprintf("validate: compile schema %s: %v", name, err))
		}
		out[name] = schema
	}
	return out
}

// Decode reads the request body, validates it against the named schema and
// unmarshals it into dst. Malformed JSON yields common.ErrBadRequest, a
// schema violation common.ErrValidation.
func Decode(r *http.Request, schemaName string, dst interface{}) error {
	schema, ok := schemas[schemaName]
	if !ok {
		return fmt.Errorf("unknown schema %q", schemaName)
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", common.ErrBadRequest)
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", common.ErrBadRequest)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("%s: %w", describe(err), common.ErrValidation)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("invalid payload: %w", common.ErrBadRequest)
	}
	return nil
}

// describe reports the first leaf cause of a schema failure.
func describe(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "/"
	}
	return loc + ": " + ve.Message
}
