package snapshot

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// aliasFile is the on-disk shape of an alias table:
//
//	aliases:
//	  PartType1/Pos: PartType1/Coordinates
//	  PartType4/Coordinates: PartType1/Coordinates
type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// ParseAliases decodes a YAML alias table.
func ParseAliases(data []byte) (map[string]string, error) {
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("snapshot: parse aliases: %w", err)
	}
	return f.Aliases, nil
}

// LoadAliases reads a YAML alias table from disk.
func LoadAliases(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: read aliases: %w", err)
	}
	return ParseAliases(data)
}
