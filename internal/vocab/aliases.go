package vocab

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// aliasFile is the YAML shape for spot-type alias overrides:
//
//	spot_type_aliases:
//	  PROMO: PR
//	  FILLER: FI
type aliasFile struct {
	SpotTypeAliases map[string]string `yaml:"spot_type_aliases"`
}

// LoadAliases reads a YAML alias table and installs it on the classifier.
// Aliases map a station-specific raw code onto one of the built-in spot
// types; an alias targeting an unknown spot type is rejected so a typo in
// the table cannot silently widen the vocabulary.
func (c *Classifier) LoadAliases(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return c.LoadAliasesFromReader(f)
}

// LoadAliasesFromReader parses aliases from an io.Reader.
func (c *Classifier) LoadAliasesFromReader(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	var af aliasFile
	if err := yaml.Unmarshal(data, &af); err != nil {
		return fmt.Errorf("parsing alias file: %w", err)
	}

	for alias, target := range af.SpotTypeAliases {
		st, ok := spotTypes[strings.ToUpper(strings.TrimSpace(target))]
		if !ok {
			return fmt.Errorf("alias %q targets unknown spot type %q", alias, target)
		}
		c.aliases[strings.ToUpper(strings.TrimSpace(alias))] = st
	}

	if len(af.SpotTypeAliases) > 0 {
		c.log.Info("loaded spot-type aliases", "count", len(af.SpotTypeAliases))
	}
	return nil
}
