package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	anchorH1   = "5388c745e1c52fa4383ecf7fd7c0bf68407f1c21c43872f939691104d36e3943"
	anchorDock = "b8babeba590b2c8cd1b2f20c68ad951478497a2d491d45f19e4deb05a99db7ef"
)

const ingestInput = `{"timestamp":1,"sequence_id":1,"previous_hash":"G","current_hash":"A"}
{"timestamp":2,"sequence_id":2,"previous_hash":"G","current_hash":"B"}
not json
{"pattern_id":"PATTERN_CLUST_SOAK_01","data":[1,2,3,4,5,6]}
`

const armProfile = `
envelope: {
	name: "arm"
	dimensions: [
		{name: "shoulder", lower_hard: -10, upper_hard: 10, lower_soft: -5, upper_soft: 5},
		{name: "wrist", lower_hard: -1, upper_hard: 1, lower_soft: -0.5, upper_soft: 0.5},
	]
}
`

// execute runs the root command with args and stdin and returns what it
// wrote to stdout and stderr.
func execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	for _, name := range []string{"QUBE_SEED", "QUBE_JOURNAL", "QUBE_LOG_LEVEL", "QUBE_MAX_LINE_BYTES", "QUBE_SYNTHESIZE_EVERY"} {
		if _, ok := os.LookupEnv(name); ok {
			t.Setenv(name, "")
			os.Unsetenv(name)
		}
	}

	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
