package contracts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed schemas/events
var schemasFS embed.FS

var (
	compileOnce     sync.Once
	compileErr      error
	compiledSchemas map[string]*jsonschema.Schema
)

// loadSchemas компилирует все схемы из schemas/events один раз за процесс
func loadSchemas() error {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.AssertFormat = true
		compiledSchemas = make(map[string]*jsonschema.Schema)

		var paths []string
		compileErr = fs.WalkDir(schemasFS, "schemas/events", func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(path, ".json") {
				return nil
			}
			data, err := schemasFS.ReadFile(path)
			if err != nil {
				return err
			}
			if err := compiler.AddResource(path, bytes.NewReader(data)); err != nil {
				return fmt.Errorf("failed to add schema resource %s: %w", path, err)
			}
			paths = append(paths, path)
			return nil
		})
		if compileErr != nil {
			return
		}

		for _, path := range paths {
			schema, err := compiler.Compile(path)
			if err != nil {
				compileErr = fmt.Errorf("could not compile schema %s: %w", path, err)
				return
			}
			compiledSchemas[keyFromPath(path)] = schema
		}
	})
	return compileErr
}

// keyFromPath: "schemas/events/task-created/v1.json" -> "TaskCreatedEvent/1.0.0"
func keyFromPath(path string) string {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(path, "schemas/events/"), ".json")
	parts := strings.Split(trimmed, "/")
	if len(parts) != 2 {
		return ""
	}

	caser := cases.Title(language.English)
	var name strings.Builder
	for _, p := range strings.Split(parts[0], "-") {
		name.WriteString(caser.String(p))
	}
	name.WriteString("Event")

	return name.String() + "/" + strings.TrimPrefix(parts[1], "v") + ".0.0"
}

// ValidateEvent проверяет тело сообщения по схеме события нужной версии
func ValidateEvent(eventType, eventVersion string, body []byte) error {
	if err := loadSchemas(); err != nil {
		return err
	}
	schema, ok := compiledSchemas[eventType+"/"+eventVersion]
	if !ok {
		return fmt.Errorf("schema for event '%s' version '%s' not found", eventType, eventVersion)
	}

	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("message body is not a valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}
	return nil
}
