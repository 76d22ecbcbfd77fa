package document

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
)

// Format names an output encoding for Export.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatTOML Format = "toml"
)

// Export writes the document values to w in the given format. Comments are
// only kept for YAML.
func (d *Document) Export(w io.Writer, format Format) error {
	switch format {
	case FormatYAML, "":
		data, err := d.Encode()
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(d.ToMap()); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(dropNulls(d.ToMap())); err != nil {
			return fmt.Errorf("encode TOML: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// dropNulls removes nil values, which TOML cannot represent.
func dropNulls(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		switch value := v.(type) {
		case nil:
			continue
		case map[string]any:
			out[k] = dropNulls(value)
		default:
			out[k] = value
		}
	}
	return out
}
