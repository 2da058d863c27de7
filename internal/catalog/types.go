package catalog

import (
	"errors"
	"fmt"
)

// ModelType distinguishes conversational models from reserved future types.
type ModelType string

const ModelTypeChat ModelType = "chat"

// Pricing is display metadata for the model carousel.
type Pricing struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
}

// Model describes one configured completion model. Props is passed through
// to the completion call and is opaque to the conversation layer.
type Model struct {
	Key          string         `yaml:"-"`
	Model        string         `yaml:"model"`
	Type         ModelType      `yaml:"type"`
	Vision       bool           `yaml:"vision"`
	Intelligence string         `yaml:"intelligence"`
	Speed        string         `yaml:"speed"`
	Pricing      Pricing        `yaml:"pricing"`
	Props        map[string]any `yaml:"props"`
}

func (m Model) Validate() error {
	if m.Key == "" {
		return errors.New("model key is required")
	}
	if m.Model == "" {
		return fmt.Errorf("model %q: upstream model name is required", m.Key)
	}
	if m.Type == "" {
		return fmt.Errorf("model %q: type is required", m.Key)
	}
	return nil
}

// Assistant describes one configured assistant persona.
type Assistant struct {
	Key          string `yaml:"-"`
	Instructions string `yaml:"instructions"`
	Description  string `yaml:"description"`
}

func (a Assistant) Validate() error {
	if a.Key == "" {
		return errors.New("assistant key is required")
	}
	if a.Instructions == "" {
		return fmt.Errorf("assistant %q: instructions are required", a.Key)
	}
	return nil
}
