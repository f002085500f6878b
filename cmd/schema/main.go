// Command schema renders the wire protocol as a JSON schema document for
// client tooling and message validation.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	server "github.com/DanielSh-bit/tank-family-server"
	"github.com/DanielSh-bit/tank-family-server/internal/net/proto"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
	}

	inbound := reflector.Reflect(new(proto.ClientMessage))
	inbound.Title = "Client Message"
	inbound.Description = "Envelope for every message a client may send."

	variants := []*jsonschema.Schema{
		reflector.Reflect(new(server.JoinedMessage)),
		reflector.Reflect(new(server.AuthOKMessage)),
		reflector.Reflect(new(server.ErrorMessage)),
		reflector.Reflect(new(server.LobbyStateMessage)),
		reflector.Reflect(new(server.GameStateMessage)),
	}

	root := &jsonschema.Schema{
		Title:       "Tank Battle Wire Protocol",
		Description: "One JSON object per websocket message, tagged by the type field.",
		OneOf:       append([]*jsonschema.Schema{inbound}, variants...),
	}
	return root
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
