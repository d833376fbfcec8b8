package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Shapes declares, per entity kind, the fields a document may carry and the
// constraints the shape checker enforces on them.
type Shapes struct {
	Version int         `yaml:"version"`
	Kinds   []KindShape `yaml:"kinds"`

	kindIndex map[string]*KindShape
}

type KindShape struct {
	Kind   string  `yaml:"kind"`
	Fields []Field `yaml:"fields"`
}

type Field struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Values   []string `yaml:"values"`
	Required bool     `yaml:"required"`
}

func LoadShapes(path string) (*Shapes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading shapes: %w", err)
	}

	var shapes Shapes
	if err := yaml.Unmarshal(data, &shapes); err != nil {
		return nil, fmt.Errorf("loading shapes: %w", err)
	}

	if err := validateShapes(&shapes); err != nil {
		return nil, fmt.Errorf("loading shapes: %w", err)
	}

	shapes.kindIndex = make(map[string]*KindShape)
	for i := range shapes.Kinds {
		kind := &shapes.Kinds[i]
		shapes.kindIndex[strings.ToLower(kind.Kind)] = kind
	}

	return &shapes, nil
}

func validateShapes(s *Shapes) error {
	if s.Version != 1 {
		return fmt.Errorf("unsupported version: %d", s.Version)
	}
	if len(s.Kinds) == 0 {
		return fmt.Errorf("at least one kind is required")
	}

	kindNames := make(map[string]struct{})
	for i, kind := range s.Kinds {
		if strings.TrimSpace(kind.Kind) == "" {
			return fmt.Errorf("kind %d name is required", i)
		}
		key := strings.ToLower(kind.Kind)
		if _, exists := kindNames[key]; exists {
			return fmt.Errorf("duplicate kind: %s", kind.Kind)
		}
		kindNames[key] = struct{}{}

		fieldNames := make(map[string]struct{})
		for _, field := range kind.Fields {
			name := strings.ToLower(strings.TrimSpace(field.Name))
			if name == "" {
				return fmt.Errorf("kind %s has field with empty name", kind.Kind)
			}
			if _, exists := fieldNames[name]; exists {
				return fmt.Errorf("kind %s has duplicate field: %s", kind.Kind, field.Name)
			}
			fieldNames[name] = struct{}{}
			if strings.EqualFold(field.Type, "enum") && len(field.Values) == 0 {
				return fmt.Errorf("kind %s field %s enum has no values", kind.Kind, field.Name)
			}
		}
	}

	return nil
}

func (s *Shapes) KindShapeByName(name string) (*KindShape, bool) {
	if s == nil {
		return nil, false
	}
	if s.kindIndex != nil {
		kind, ok := s.kindIndex[strings.ToLower(name)]
		return kind, ok
	}
	for i := range s.Kinds {
		if strings.EqualFold(s.Kinds[i].Kind, name) {
			return &s.Kinds[i], true
		}
	}
	return nil, false
}
