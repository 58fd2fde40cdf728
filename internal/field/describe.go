package field

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"
)

// RenderValue formats a cty value the way it would appear in an HCL file.
func RenderValue(v cty.Value) string {
	return strings.TrimSpace(string(hclwrite.TokensForValue(v).Bytes()))
}

func commandString(d Description, sources []*Field) string {
	var b strings.Builder
	b.WriteString(d.Type)
	if len(sources) > 0 {
		names := make([]string, len(sources))
		for i, src := range sources {
			names[i] = strconv.Quote(src.name)
		}
		fmt.Fprintf(&b, " source_fields=[%s]", strings.Join(names, ", "))
	}
	writeAttributes(&b, d.Attributes)
	return b.String()
}

// definitionKey identifies a definition by value. Sources are referenced by
// index so renames do not change it.
func definitionKey(d Description, sources []*Field) string {
	var b strings.Builder
	b.WriteString(d.Type)
	b.WriteByte('(')
	for i, src := range sources {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(src.index))
	}
	b.WriteByte(')')
	writeAttributes(&b, d.Attributes)
	return b.String()
}

func writeAttributes(b *strings.Builder, attrs map[string]cty.Value) {
	for _, name := range slices.Sorted(maps.Keys(attrs)) {
		fmt.Fprintf(b, " %s=%s", name, RenderValue(attrs[name]))
	}
}
