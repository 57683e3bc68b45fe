package site

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Loader reads site.yaml from disk.
type Loader struct {
	filePath string
}

func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Path returns the file the loader reads.
func (l *Loader) Path() string { return l.filePath }

// Load reads and parses the site file.
func (l *Loader) Load() (Config, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read site file: %w", err)
	}
	return Parse(data)
}

// Parse decodes site.yaml content. Template variables such as
// {{HUBFEED_VAR_DOCS_URL}} are replaced by empty strings first.
func Parse(data []byte) (Config, error) {
	data = templateVar.ReplaceAll(data, []byte(`""`))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse site yaml: %w", err)
	}
	return cfg, nil
}
