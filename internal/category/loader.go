package category

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

func setDefaults(v interface{}) error {
	return defaults.Set(v)
}

// tableFile is the on-disk layout of config/categories.yaml. Sections are
// decoded as nodes so that each category inherits from the default block.
type tableFile struct {
	Default    yaml.Node            `yaml:"default"`
	Categories map[string]yaml.Node `yaml:"categories"`
	Groups     *Groups              `yaml:"groups"`
	Points     yaml.Node            `yaml:"points"`
}

// LoadTable reads a category table from YAML. Keys left out of a category
// take the value from the default block, and keys left out of the default
// block take the built-in baseline.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category table %s: %w", path, err)
	}
	t, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load category table %s: %w", path, err)
	}
	return t, nil
}

// ParseTable decodes a category table document
func ParseTable(data []byte) (*Table, error) {
	var file tableFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	base := Baseline()
	if err := decodeOnto(&file.Default, &base); err != nil {
		return nil, fmt.Errorf("failed to decode default block: %w", err)
	}

	categories := make(map[string]Params, len(file.Categories))
	for name, node := range file.Categories {
		p := base
		p.InvertRSI = nil
		if err := decodeOnto(&node, &p); err != nil {
			return nil, fmt.Errorf("failed to decode category %s: %w", name, err)
		}
		categories[name] = p
	}

	groups := DefaultGroups()
	if file.Groups != nil {
		groups = *file.Groups
	}

	points := DefaultPoints()
	if err := decodeOnto(&file.Points, &points); err != nil {
		return nil, fmt.Errorf("failed to decode points: %w", err)
	}

	return NewTable(base, categories, groups, points)
}

// decodeOnto overlays node onto out, leaving fields absent from node untouched
func decodeOnto(node *yaml.Node, out interface{}) error {
	if node.Kind == 0 {
		return nil
	}
	return node.Decode(out)
}
