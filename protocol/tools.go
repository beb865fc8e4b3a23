// Package protocol defines the wire contract with the codex agent runtime.
//
// tools.go - Helpers for MCP tool listings
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ValidateToolInput checks caller-supplied arguments against a tool's
// declared input schema. Tools without a schema accept any arguments.
func ValidateToolInput(tool mcp.Tool, args map[string]any) error {
	if tool.InputSchema == nil {
		return nil
	}

	// The SDK carries the schema as decoded JSON, not a typed schema.
	// Marshal and unmarshal to get one we can resolve.
	schemaBytes, err := json.Marshal(tool.InputSchema)
	if err != nil {
		return fmt.Errorf("tool %s has an unencodable input schema: %w", tool.Name, err)
	}
	schema := &jsonschema.Schema{}
	if err := json.Unmarshal(schemaBytes, schema); err != nil {
		return fmt.Errorf("tool %s has a malformed input schema: %w", tool.Name, err)
	}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("tool %s has an unresolvable input schema: %w", tool.Name, err)
	}
	if err := resolved.Validate(args); err != nil {
		return fmt.Errorf("invalid arguments for tool %s: %w", tool.Name, err)
	}
	return nil
}

// ToolNames returns the tool names from a list_mcp_tools response, in map
// order, useful for display and logging.
func ToolNames(msg McpListToolsResponseMsg) []string {
	names := make([]string, 0, len(msg.Tools))
	for name := range msg.Tools {
		names = append(names, name)
	}
	return names
}

// SchemaProperties returns the property names declared by a schema, or nil
// when the schema declares none.
func SchemaProperties(schema *jsonschema.Schema) []string {
	if schema == nil || len(schema.Properties) == 0 {
		return nil
	}
	props := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		props = append(props, name)
	}
	return props
}
