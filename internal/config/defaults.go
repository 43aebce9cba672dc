package config

import (
	"os"

	"gopkg.in/yaml.v2"

	"github.com/httm-go/httm/internal/i18n"
	"github.com/httm-go/httm/internal/model"
)

// Defaults holds the optional on-disk default settings read before CLI
// flags and environment variables are applied, the way the teacher's test
// fixtures load a pool layout from a YAML file.
type Defaults struct {
	// Aliases is a default "LOCAL:REMOTE[,LOCAL:REMOTE...]" string, used
	// when neither the environment nor a CLI flag supplies one.
	Aliases string `yaml:"aliases"`
	// Uniqueness is a default deduplication policy name ("metadata",
	// "contents" or "none").
	Uniqueness string `yaml:"uniqueness"`
}

// LoadDefaultsFile reads and parses an optional YAML defaults file. A
// missing file is not an error: the zero-value Defaults is returned so
// every caller-side default still applies.
func LoadDefaultsFile(path string) (Defaults, error) {
	var d Defaults
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return d, model.NewResolutionError(i18n.G("couldn't read defaults file %q: %v"), path, err)
	}
	if err := yaml.Unmarshal(b, &d); err != nil {
		return d, model.NewResolutionError(i18n.G("couldn't parse defaults file %q: %v"), path, err)
	}
	return d, nil
}
