package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// CategorySpec describes one category entry from the categories file.
type CategorySpec struct {
	// Name is the category name (required, unique within the file).
	Name string `yaml:"name"`

	// Language is the keyword language tag (default: en).
	Language string `yaml:"language"`

	// MaxPosts overrides the global accepted-post cap for this category.
	MaxPosts int `yaml:"max_posts"`

	// MaxKeywords overrides the global keyword cap for this category.
	MaxKeywords int `yaml:"max_keywords"`
}

// categoriesFile is the YAML document shape.
type categoriesFile struct {
	Categories []CategorySpec `yaml:"categories"`
}

// LoadCategories reads category specs from a YAML file.
// Names are trimmed and must be unique; the language defaults to "en".
func LoadCategories(path string) ([]CategorySpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}

	var doc categoriesFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse categories file: %w", err)
	}

	if len(doc.Categories) == 0 {
		return nil, fmt.Errorf("%w: categories file %s lists no categories", ErrInvalid, path)
	}

	seen := make(map[string]struct{}, len(doc.Categories))
	specs := make([]CategorySpec, 0, len(doc.Categories))
	for _, spec := range doc.Categories {
		spec.Name = strings.TrimSpace(spec.Name)
		if spec.Name == "" {
			return nil, fmt.Errorf("%w: category with empty name in %s", ErrInvalid, path)
		}
		key := strings.ToLower(spec.Name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate category %q in %s", ErrInvalid, spec.Name, path)
		}
		seen[key] = struct{}{}

		if spec.Language == "" {
			spec.Language = "en"
		}
		spec.Language = strings.ToLower(strings.TrimSpace(spec.Language))

		specs = append(specs, spec)
	}

	return specs, nil
}
