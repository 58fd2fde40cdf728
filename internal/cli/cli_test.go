package cli

import (
	"bytes"
	"testing"

	"github.com/specialistvlad/fieldgraph/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name     string
		args     []string
		want     *app.Config
		wantExit bool
		wantErr  string
	}{
		{
			name: "positional path",
			args: []string{"-field", "t", "-nodeset", "edge", "plate.hcl"},
			want: &app.Config{DescriptionPath: "plate.hcl", Field: "t", Nodeset: "edge", Output: "text", LogFormat: "text", LogLevel: "warn"},
		},
		{
			name: "flag path wins",
			args: []string{"-description", "a.hcl", "-d", "b.hcl", "-field", "t", "c.hcl"},
			want: &app.Config{DescriptionPath: "a.hcl", Field: "t", Output: "text", LogFormat: "text", LogLevel: "warn"},
		},
		{
			name: "element and xi",
			args: []string{"-d", "p", "-field", "xi", "-element", "2", "-xi", "0.5, 0.25", "-time", "1.5"},
			want: &app.Config{DescriptionPath: "p", Field: "xi", Element: 2, Xi: []float64{0.5, 0.25}, Time: 1.5, Output: "text", LogFormat: "text", LogLevel: "warn"},
		},
		{
			name: "nodes and logging",
			args: []string{"-field", "t", "-nodes", "3,1", "-output", "YAML", "-log-format", "JSON", "-log-level", "Debug", "-change-feed", "http://localhost:3000", "p"},
			want: &app.Config{DescriptionPath: "p", Field: "t", Nodes: []int{3, 1}, Output: "yaml", LogFormat: "json", LogLevel: "debug", ChangeFeedURL: "http://localhost:3000"},
		},
		{
			name: "describe",
			args: []string{"-describe", "p"},
			want: &app.Config{DescriptionPath: "p", DescribeOnly: true, Output: "text", LogFormat: "text", LogLevel: "warn"},
		},
		{name: "help", args: []string{"-h"}, wantExit: true},
		{name: "no path", args: []string{"-field", "t"}, wantExit: true},
		{name: "unknown flag", args: []string{"-bogus"}, wantErr: "flag provided but not defined: -bogus"},
		{name: "bad format", args: []string{"-field", "t", "-log-format", "xml", "p"}, wantErr: "invalid log-format"},
		{name: "bad level", args: []string{"-field", "t", "-log-level", "loud", "p"}, wantErr: "invalid log-level"},
		{name: "bad nodes", args: []string{"-field", "t", "-nodes", "1,x", "p"}, wantErr: "invalid nodes"},
		{name: "bad xi", args: []string{"-field", "t", "-element", "1", "-xi", "a", "p"}, wantErr: "invalid xi"},
		{name: "bad output", args: []string{"-field", "t", "-output", "csv", "p"}, wantErr: "unknown output format"},
		{name: "config rejected", args: []string{"p"}, wantErr: "field name is required"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var out bytes.Buffer
			cfg, exit, err := Parse(tc.args, &out)
			if tc.wantErr != "" {
				require.Error(t, err)
				var exitErr *ExitError
				require.ErrorAs(t, err, &exitErr)
				assert.Equal(t, 2, exitErr.Code)
				assert.Contains(t, exitErr.Message, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.wantExit, exit)
			assert.Equal(t, tc.want, cfg)
			if tc.wantExit {
				assert.Contains(t, out.String(), "Usage:")
			}
		})
	}
}
