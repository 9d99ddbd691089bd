package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/qube/internal/envelope"
)

func TestParseAction(t *testing.T) {
	a, err := parseAction(" 1.5, -2 ,NaN,Inf")
	require.NoError(t, err)
	require.Len(t, a, 4)
	assert.Equal(t, 1.5, a[0])
	assert.Equal(t, -2.0, a[1])

	a, err = parseAction("")
	require.NoError(t, err)
	assert.Equal(t, envelope.Action{}, a)

	_, err = parseAction("1,x")
	assert.ErrorContains(t, err, "value 1")
}

func TestClip_HardLimits(t *testing.T) {
	profile := writeFile(t, t.TempDir(), "arm.cue", armProfile)

	out, _, err := execute(t, "", "clip", "--profile", profile, "--action", "12,-2")
	require.NoError(t, err)
	assert.Contains(t, out, "shoulder")
	assert.Contains(t, out, "hard_limit")
	assert.Contains(t, out, "Safe. Clamped action: [10 -1]")
}

func TestClip_JSONNonFinite(t *testing.T) {
	profile := writeFile(t, t.TempDir(), "arm.cue", armProfile)

	out, _, err := execute(t, "", "clip", "--profile", profile, "--action", "NaN,0", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, envelope.IsNonFinite(err))

	var resp struct {
		Status string `json:"status"`
		Error  struct {
			Code    string          `json:"code"`
			Details json.RawMessage `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, CodeUnsafeAction, resp.Error.Code)
	assert.Contains(t, string(resp.Error.Details), `"original_value":"NaN"`)
	assert.Contains(t, string(resp.Error.Details), `"clamped":[0,0]`)
}

func TestClip_DimensionMismatch(t *testing.T) {
	profile := writeFile(t, t.TempDir(), "arm.cue", armProfile)

	out, _, err := execute(t, "", "clip", "--profile", profile, "--action", "1")
	require.Error(t, err)
	assert.True(t, envelope.IsDimensionMismatch(err))
	assert.Contains(t, out, "UNSAFE: DIMENSION_MISMATCH")
}

func TestClip_BadProfile(t *testing.T) {
	profile := writeFile(t, t.TempDir(), "bad.cue", "envelope: {")

	_, _, err := execute(t, "", "clip", "--profile", profile, "--action", "1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestClip_RequiredFlags(t *testing.T) {
	_, _, err := execute(t, "", "clip")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
