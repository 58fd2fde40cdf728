package description

import (
	"github.com/hashicorp/hcl/v2"
)

// fileRoot decodes every top-level block of a description file.
type fileRoot struct {
	Elements []*elementBlock `hcl:"element,block"`
	Nodes    []*nodeBlock    `hcl:"node,block"`
	Nodesets []*nodesetBlock `hcl:"nodeset,block"`
	Fields   []*fieldBlock   `hcl:"field,block"`
}

type elementBlock struct {
	ID        int `hcl:"id"`
	Dimension int `hcl:"dimension"`
}

type nodeBlock struct {
	ID     int                  `hcl:"id"`
	Values map[string][]float64 `hcl:"values,optional"`
}

type nodesetBlock struct {
	Name  string       `hcl:"name,label"`
	Nodes []*nodeBlock `hcl:"node,block"`
}

type fieldBlock struct {
	Name           string   `hcl:"name,label"`
	Type           string   `hcl:"type"`
	SourceFields   []string `hcl:"source_fields,optional"`
	Managed        *bool    `hcl:"managed,optional"`
	ComponentNames []string `hcl:"component_names,optional"`
	// Remain holds the type specific attributes.
	Remain hcl.Body `hcl:",remain"`
}
