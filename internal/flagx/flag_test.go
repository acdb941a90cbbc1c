package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-d", "memory:"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"-config=alt.json", "-d", "memory:"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-config=alt.json"},
		},
		{
			name:         "both forms present, order preserved",
			args:         []string{"-config=first.json", "-c", "second.json", "-t", "15"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{"-config=first.json", "-c", "second.json"},
		},
		{
			name:         "unknown flags and their values ignored",
			args:         []string{"-d", "memory:", "-l=debug"},
			allowedFlags: []string{"-c", "-config"},
			want:         []string{},
		},
		{
			name:         "stops at the subcommand",
			args:         []string{"-d", "memory:", "verify", "-c", "x.json"},
			allowedFlags: []string{"-c", "-d"},
			want:         []string{"-d", "memory:"},
		},
		{
			name:         "stops at double dash",
			args:         []string{"--", "-c", "x.json"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
		{
			name:         "flag without value at end is kept as-is",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "flag followed by another flag",
			args:         []string{"-c", "-t", "5"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "help flag does not swallow the command",
			args:         []string{"-h", "count"},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FilterArgs(tc.args, tc.allowedFlags))
		})
	}
}

func TestJSONConfigPath(t *testing.T) {
	assert.Equal(t, "conf.json", JSONConfigPath([]string{"-d", "memory:", "-c", "conf.json", "count"}))
	assert.Equal(t, "alt.json", JSONConfigPath([]string{"-config=alt.json"}))
	assert.Equal(t, "", JSONConfigPath([]string{"-d", "memory:", "count"}))
	assert.Equal(t, "", JSONConfigPath(nil))
}
