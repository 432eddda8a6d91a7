package export

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Category string

const (
	Personal   Category = "personal"
	Academic   Category = "academic"
	Evaluation Category = "evaluation"
	Comments   Category = "comments"
)

// Categories in column order.
var Categories = []Category{Personal, Academic, Evaluation, Comments}

func (c Category) valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

type FieldInfo struct {
	Label    string   `yaml:"label"`
	Category Category `yaml:"category"`
}

// Catalog maps form field names to display labels and export categories.
type Catalog struct {
	CategoryLabels map[Category]string  `yaml:"categories"`
	Fields         map[string]FieldInfo `yaml:"fields"`
}

//go:embed catalog.yaml
var defaultCatalog []byte

func DefaultCatalog() *Catalog {
	c, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic("export: embedded catalog: " + err.Error())
	}
	return c
}

func ParseCatalog(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, errors.Wrap(err, "export.catalog.parse")
	}

	for cat := range c.CategoryLabels {
		if !cat.valid() {
			return nil, fmt.Errorf("export.catalog: unknown category %q", cat)
		}
	}
	for name, f := range c.Fields {
		if f.Category == "" {
			f.Category = Evaluation
			c.Fields[name] = f
		}
		if !f.Category.valid() {
			return nil, fmt.Errorf("export.catalog: field %q has unknown category %q", name, f.Category)
		}
	}
	return c, nil
}

// LoadCatalog reads a catalog file; an empty path gives the default catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "export.catalog.read")
	}
	return ParseCatalog(data)
}

func (c *Catalog) Label(field string) string {
	if f, ok := c.Fields[field]; ok && f.Label != "" {
		return f.Label
	}
	return titleCase(field)
}

func (c *Catalog) Category(field string) Category {
	if f, ok := c.Fields[field]; ok {
		return f.Category
	}
	return Evaluation
}

func (c *Catalog) CategoryLabel(cat Category) string {
	if label, ok := c.CategoryLabels[cat]; ok {
		return label
	}
	return titleCase(string(cat))
}

// titleCase turns snake_case into "Snake Case".
func titleCase(field string) string {
	words := strings.Fields(strings.ReplaceAll(field, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}
