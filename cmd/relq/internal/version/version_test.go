package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInfo(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Contains(t, info.String(), "relq version "+Version)
	assert.Contains(t, info.FullString(), "Git Commit: "+GitCommit)
}

func TestSatisfies(t *testing.T) {
	tests := []struct {
		version    string
		constraint string
		want       bool
	}{
		{"0.1.0", ">= 0.1", true},
		{"0.1.0", ">= 0.2", false},
		{"1.2.3", ">= 1.0, < 2.0", true},
		{"2.0.0", "~> 1.2", false},
	}
	for _, tt := range tests {
		ok, err := Satisfies(tt.version, tt.constraint)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "%s %s", tt.version, tt.constraint)
	}

	_, err := Satisfies("not-a-version", ">= 1")
	assert.Error(t, err)
	_, err = Satisfies("1.0.0", "=>>1")
	assert.Error(t, err)
}
