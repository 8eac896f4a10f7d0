package handlers

import (
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	createTaskSchema = mustCompileSchema("create_task.json", `{
		"type": "object",
		"required": ["task"],
		"properties": {
			"task": {"type": "string"}
		}
	}`)

	updateTaskSchema = mustCompileSchema("update_task.json", `{
		"type": "object",
		"required": ["task", "completed"],
		"properties": {
			"task": {"type": "string"},
			"completed": {"type": "boolean"}
		}
	}`)

	credentialsSchema = mustCompileSchema("credentials.json", `{
		"type": "object",
		"required": ["email", "password"],
		"properties": {
			"email": {"type": "string"},
			"password": {"type": "string"}
		}
	}`)

	validateTokenSchema = mustCompileSchema("validate_token.json", `{
		"type": "object",
		"required": ["token"],
		"properties": {
			"token": {"type": "string"}
		}
	}`)
)

func mustCompileSchema(name, src string) *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
		panic(fmt.Sprintf("add schema %s: %v", name, err))
	}
	return compiler.MustCompile(name)
}

// schemaMessage reports the first leaf violation, e.g.
// "/completed: expected boolean, but got string".
func schemaMessage(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := ve.InstanceLocation
	if loc == "" {
		loc = "body"
	}
	return fmt.Sprintf("%s: %s", loc, ve.Message)
}
