package roles

import (
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/nevscope/nevscope/pkg/models"
)

// roleFile is the YAML shape of a custom role definition file.
type roleFile struct {
	Roles []roleEntry `yaml:"roles"`
}

type roleEntry struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Requires    []string `yaml:"requires"`
	Optional    []string `yaml:"optional"`
	Datasets    []string `yaml:"datasets"`
	Fallback    string   `yaml:"fallback_field"`
	Prompt      string   `yaml:"prompt"`
}

// LoadFile reads custom role definitions from a YAML file and registers them
// into the table. Prompts are Go text templates over dataset summaries
// ({{.Summaries.name}}) and upstream results ({{.Upstream.role}}).
func LoadFile(t *Table, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading role file: %w", err)
	}

	var file roleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing role file %s: %w", path, err)
	}

	for _, entry := range file.Roles {
		spec, err := specFromEntry(entry)
		if err != nil {
			return fmt.Errorf("role file %s: %w", path, err)
		}
		if err := t.Register(spec); err != nil {
			return fmt.Errorf("role file %s: %w", path, err)
		}
	}
	return nil
}

func specFromEntry(entry roleEntry) (*Spec, error) {
	if entry.Name == "" {
		return nil, fmt.Errorf("role entry has no name")
	}
	if strings.TrimSpace(entry.Prompt) == "" {
		return nil, fmt.Errorf("role %s has no prompt", entry.Name)
	}

	tmpl, err := template.New(entry.Name).Parse(entry.Prompt)
	if err != nil {
		return nil, fmt.Errorf("role %s prompt template: %w", entry.Name, err)
	}

	var requires []models.Requirement
	for _, role := range entry.Requires {
		requires = append(requires, models.Requirement{Role: role})
	}
	for _, role := range entry.Optional {
		requires = append(requires, models.Requirement{Role: role, Optional: true})
	}

	fallback := entry.Fallback
	if fallback == "" {
		fallback = "summary"
	}

	return &Spec{
		Name:          entry.Name,
		Description:   entry.Description,
		Requires:      requires,
		Datasets:      entry.Datasets,
		FallbackField: fallback,
		Prompt: func(in PromptInput) string {
			var b strings.Builder
			if err := tmpl.Execute(&b, in); err != nil {
				// Fall back to the raw template text so the task still runs.
				return entry.Prompt
			}
			return b.String()
		},
	}, nil
}
