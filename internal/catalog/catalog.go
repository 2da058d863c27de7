// Package catalog loads the model and assistant descriptor sets from YAML
// and exposes them as an immutable lookup value.
package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	modelsFile     = "models.yml"
	assistantsFile = "assistants.yml"
)

// Catalog is the read-only configuration consumed by the conversation
// layer. Entries keep their YAML document order, so "first configured" is
// well defined and used as the default for new sessions.
type Catalog struct {
	models     []Model
	assistants []Assistant
}

// Load reads models.yml and assistants.yml from dir.
func Load(dir string) (Catalog, error) {
	var c Catalog

	modelsRaw, err := os.ReadFile(filepath.Join(dir, modelsFile))
	if err != nil {
		return Catalog{}, fmt.Errorf("read %s: %w", modelsFile, err)
	}
	c.models, err = decodeModels(modelsRaw)
	if err != nil {
		return Catalog{}, fmt.Errorf("parse %s: %w", modelsFile, err)
	}

	assistantsRaw, err := os.ReadFile(filepath.Join(dir, assistantsFile))
	if err != nil {
		return Catalog{}, fmt.Errorf("read %s: %w", assistantsFile, err)
	}
	c.assistants, err = decodeAssistants(assistantsRaw)
	if err != nil {
		return Catalog{}, fmt.Errorf("parse %s: %w", assistantsFile, err)
	}

	if len(c.models) == 0 {
		return Catalog{}, fmt.Errorf("%s: at least one model is required", modelsFile)
	}
	if len(c.assistants) == 0 {
		return Catalog{}, fmt.Errorf("%s: at least one assistant is required", assistantsFile)
	}
	return c, nil
}

// Parse builds a catalog from in-memory YAML documents. Used by tests and
// by Load.
func Parse(modelsRaw, assistantsRaw []byte) (Catalog, error) {
	models, err := decodeModels(modelsRaw)
	if err != nil {
		return Catalog{}, fmt.Errorf("parse models: %w", err)
	}
	assistants, err := decodeAssistants(assistantsRaw)
	if err != nil {
		return Catalog{}, fmt.Errorf("parse assistants: %w", err)
	}
	if len(models) == 0 {
		return Catalog{}, fmt.Errorf("at least one model is required")
	}
	if len(assistants) == 0 {
		return Catalog{}, fmt.Errorf("at least one assistant is required")
	}
	return Catalog{models: models, assistants: assistants}, nil
}

// Model looks up a model descriptor by key.
func (c Catalog) Model(key string) (Model, bool) {
	for _, m := range c.models {
		if m.Key == key {
			return m, true
		}
	}
	return Model{}, false
}

// Assistant looks up an assistant descriptor by key.
func (c Catalog) Assistant(key string) (Assistant, bool) {
	for _, a := range c.assistants {
		if a.Key == key {
			return a, true
		}
	}
	return Assistant{}, false
}

// Models returns the model descriptors in configuration order.
func (c Catalog) Models() []Model {
	out := make([]Model, len(c.models))
	copy(out, c.models)
	return out
}

// Assistants returns the assistant descriptors in configuration order.
func (c Catalog) Assistants() []Assistant {
	out := make([]Assistant, len(c.assistants))
	copy(out, c.assistants)
	return out
}

// DefaultModel is the key of the first configured model.
func (c Catalog) DefaultModel() string {
	if len(c.models) == 0 {
		return ""
	}
	return c.models[0].Key
}

// DefaultAssistant is the key of the first configured assistant.
func (c Catalog) DefaultAssistant() string {
	if len(c.assistants) == 0 {
		return ""
	}
	return c.assistants[0].Key
}

// decodeModels unmarshals a top-level YAML mapping of key -> descriptor,
// preserving document order via the node API.
func decodeModels(raw []byte) ([]Model, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	root := mappingRoot(&doc)
	if root == nil {
		return nil, nil
	}
	out := make([]Model, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		var m Model
		if err := root.Content[i+1].Decode(&m); err != nil {
			return nil, err
		}
		m.Key = root.Content[i].Value
		if err := m.Validate(); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func decodeAssistants(raw []byte) ([]Assistant, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	root := mappingRoot(&doc)
	if root == nil {
		return nil, nil
	}
	out := make([]Assistant, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		var a Assistant
		if err := root.Content[i+1].Decode(&a); err != nil {
			return nil, err
		}
		a.Key = root.Content[i].Value
		if err := a.Validate(); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func mappingRoot(doc *yaml.Node) *yaml.Node {
	if doc == nil || len(doc.Content) == 0 {
		return nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil
	}
	return root
}
