package data

import (
	"fmt"
	"os"

	"github.com/forgesim/server/internal/core/ecs"
	"gopkg.in/yaml.v3"
)

// TemplateEntry is one template as written in the content file. Data maps
// registered kind names to their default field values.
type TemplateEntry struct {
	Name  string    `yaml:"name"`
	Count int       `yaml:"count"` // instances created at boot
	Data  yaml.Node `yaml:"data"`
}

type templateListFile struct {
	Templates []TemplateEntry `yaml:"templates"`
}

// Spawn pairs a loaded template with its boot instance count.
type Spawn struct {
	Template *ecs.Template
	Count    int
}

// TemplateTable holds the templates created from a content file, in file
// order.
type TemplateTable struct {
	byName map[string]*ecs.Template
	spawns []Spawn
}

// LoadTemplates reads a YAML content file and creates its templates in w.
func LoadTemplates(path string, w *ecs.World) (*TemplateTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates: %w", err)
	}
	t, err := ParseTemplates(raw, w)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// ParseTemplates creates the templates described by raw in w. Kind names are
// resolved through the world's accessor registry; unknown kinds are an error.
func ParseTemplates(raw []byte, w *ecs.World) (*TemplateTable, error) {
	var f templateListFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	t := &TemplateTable{byName: make(map[string]*ecs.Template, len(f.Templates))}
	for i := range f.Templates {
		entry := &f.Templates[i]
		if entry.Name == "" {
			return nil, fmt.Errorf("template #%d: missing name", i)
		}
		if _, dup := t.byName[entry.Name]; dup {
			return nil, fmt.Errorf("template %q: duplicate name", entry.Name)
		}
		if entry.Count < 0 {
			return nil, fmt.Errorf("template %q: negative count %d", entry.Name, entry.Count)
		}
		tmpl, err := w.CreateTemplate(entry.Name)
		if err != nil {
			return nil, err
		}
		if err := decodeDefaults(tmpl, w.Accessors(), &entry.Data); err != nil {
			return nil, fmt.Errorf("template %q: %w", entry.Name, err)
		}
		t.byName[entry.Name] = tmpl
		t.spawns = append(t.spawns, Spawn{Template: tmpl, Count: entry.Count})
	}
	return t, nil
}

func decodeDefaults(tmpl *ecs.Template, reg *ecs.AccessorRegistry, node *yaml.Node) error {
	if node.Kind == 0 || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: data must be a mapping of kind names", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		a, ok := reg.ByName(key.Value)
		if !ok {
			return fmt.Errorf("line %d: unknown data kind %q", key.Line, key.Value)
		}
		d, err := tmpl.AddDefault(a)
		if err != nil {
			return err
		}
		if val.Kind == yaml.ScalarNode && val.Tag == "!!null" {
			continue
		}
		if err := val.Decode(d); err != nil {
			return fmt.Errorf("decode %s: %w", key.Value, err)
		}
	}
	return nil
}

// Get returns the template with the given name.
func (t *TemplateTable) Get(name string) *ecs.Template {
	return t.byName[name]
}

// Count returns the number of loaded templates.
func (t *TemplateTable) Count() int {
	return len(t.spawns)
}

// Spawns returns every template with its boot instance count, in file order.
func (t *TemplateTable) Spawns() []Spawn {
	return t.spawns
}

// SpawnAll instantiates every template Count times.
func (t *TemplateTable) SpawnAll() ([]*ecs.Entity, error) {
	var out []*ecs.Entity
	for _, s := range t.spawns {
		for i := 0; i < s.Count; i++ {
			e, err := s.Template.Instantiate()
			if err != nil {
				return nil, fmt.Errorf("spawn %q: %w", s.Template.PrettyName(), err)
			}
			out = append(out, e)
		}
	}
	return out, nil
}
