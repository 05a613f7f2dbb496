package settings

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ExportYAML writes s as a YAML document.
func ExportYAML(w io.Writer, s Settings) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s.Normalized()); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return enc.Close()
}

// ImportYAML reads a YAML document written by ExportYAML. Absent keys take
// their default values.
func ImportYAML(r io.Reader) (Settings, error) {
	var p Partial
	if err := yaml.NewDecoder(r).Decode(&p); err != nil && err != io.EOF {
		return Default(), fmt.Errorf("failed to decode settings: %w", err)
	}
	return Normalize(p), nil
}
