package app

import (
	"fmt"
	"io"

	"github.com/specialistvlad/fieldgraph/internal/field"
	ctyyaml "github.com/zclconf/go-cty-yaml"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

type result struct {
	location string
	value    cty.Value // null when undefined
}

// writeResults renders one line per location for text output, or a single
// document of the form {field, results: [{location, defined, value}]}.
func writeResults(w io.Writer, format, name string, results []result) error {
	if format == "" || format == OutputText {
		for _, r := range results {
			text := "undefined"
			if !r.value.IsNull() {
				text = field.RenderValue(r.value)
			}
			if _, err := fmt.Fprintf(w, "%s\t%s\n", r.location, text); err != nil {
				return err
			}
		}
		return nil
	}

	rows := make([]cty.Value, len(results))
	for i, r := range results {
		rows[i] = cty.ObjectVal(map[string]cty.Value{
			"location": cty.StringVal(r.location),
			"defined":  cty.BoolVal(!r.value.IsNull()),
			"value":    r.value,
		})
	}
	doc := cty.ObjectVal(map[string]cty.Value{
		"field":   cty.StringVal(name),
		"results": cty.ListVal(rows),
	})

	var out []byte
	var err error
	switch format {
	case OutputJSON:
		out, err = ctyjson.Marshal(doc, doc.Type())
		out = append(out, '\n')
	case OutputYAML:
		out, err = ctyyaml.Marshal(doc)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}
