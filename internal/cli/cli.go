package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/specialistvlad/fieldgraph/internal/app"
)

// ExitError carries the process exit code for a usage problem.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns the config, whether the
// program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("fieldeval", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
fieldeval - Evaluate computed fields defined in HCL descriptions.

Usage:
  fieldeval [options] DESCRIPTION_PATH

Arguments:
  DESCRIPTION_PATH
    Path to a single .hcl file or a directory containing .hcl files.

Examples:
  fieldeval -field mean_t -nodeset inlet heart/
  fieldeval -field grad -element 1 -xi 0.5,0.5 plate.hcl
  fieldeval -field label -output json plate.hcl
  fieldeval -describe plate.hcl

Options:
`)
		flagSet.PrintDefaults()
	}

	descFlag := flagSet.String("description", "", "Path to the description file or directory.")
	dFlag := flagSet.String("d", "", "Path to the description file or directory (shorthand).")
	fieldFlag := flagSet.String("field", "", "Name of the field to evaluate.")
	nodesetFlag := flagSet.String("nodeset", "", "Evaluate at every node of this nodeset.")
	nodesFlag := flagSet.String("nodes", "", "Comma separated node identifiers to evaluate at.")
	elementFlag := flagSet.Int("element", 0, "Element identifier to evaluate in; needs -xi.")
	xiFlag := flagSet.String("xi", "", "Comma separated element chart coordinates.")
	timeFlag := flagSet.Float64("time", 0, "Evaluation time.")
	describeFlag := flagSet.Bool("describe", false, "Write the loaded description instead of evaluating.")
	outputFlag := flagSet.String("output", app.OutputText, "Result format. Options: 'text', 'json' or 'yaml'.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "warn", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	feedFlag := flagSet.String("change-feed", "", "socket.io server URL that receives field change batches.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	path := ""
	if *descFlag != "" {
		path = *descFlag
	} else if *dFlag != "" {
		path = *dFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	if path == "" {
		slog.Debug("No description path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	nodes, err := parseList(*nodesFlag, strconv.Atoi)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid nodes: %v", err)}
	}
	xi, err := parseList(*xiFlag, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("invalid xi: %v", err)}
	}

	config, err := app.NewConfig(app.Config{
		DescriptionPath: path,
		Field:           *fieldFlag,
		Nodeset:         *nodesetFlag,
		Nodes:           nodes,
		Element:         *elementFlag,
		Xi:              xi,
		Time:            *timeFlag,
		DescribeOnly:    *describeFlag,
		Output:          strings.ToLower(*outputFlag),
		LogFormat:       logFormat,
		LogLevel:        logLevel,
		ChangeFeedURL:   *feedFlag,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

// parseList splits a comma separated flag value. An empty value is an
// empty list.
func parseList[T any](s string, parse func(string) (T, error)) ([]T, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]T, 0, len(parts))
	for _, p := range parts {
		v, err := parse(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
