package app

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/fieldgraph/internal/location"
)

// Config holds everything an App run needs.
type Config struct {
	DescriptionPath string // .hcl file or directory
	Field           string

	// Evaluation locations. At most one of Nodeset, Nodes or Element is set;
	// with none the field is evaluated once without a location.
	Nodeset string
	Nodes   []int
	Element int // element identifier, 0 is unset
	Xi      []float64
	Time    float64

	// DescribeOnly writes the loaded region back as a description instead of
	// evaluating.
	DescribeOnly bool
	// Output is one of OutputText, OutputJSON or OutputYAML. Empty means
	// text.
	Output string

	LogFormat     string
	LogLevel      string
	ChangeFeedURL string
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.DescriptionPath == "" {
		return nil, errors.New("DescriptionPath is a required configuration field and cannot be empty")
	}
	if cfg.Field == "" && !cfg.DescribeOnly {
		return nil, errors.New("a field name is required unless only describing")
	}

	targets := 0
	if cfg.Nodeset != "" {
		targets++
	}
	if len(cfg.Nodes) > 0 {
		targets++
	}
	if cfg.Element != 0 {
		targets++
	}
	if targets > 1 {
		return nil, errors.New("choose one of nodeset, nodes or element")
	}

	if cfg.Element != 0 && (len(cfg.Xi) == 0 || len(cfg.Xi) > location.MaxXi) {
		return nil, fmt.Errorf("element locations need 1 to %d xi values, got %d", location.MaxXi, len(cfg.Xi))
	}
	if cfg.Element == 0 && len(cfg.Xi) > 0 {
		return nil, errors.New("xi values need an element")
	}
	switch cfg.Output {
	case "", OutputText, OutputJSON, OutputYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q", cfg.Output)
	}
	return &cfg, nil
}
