package version

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	Version, GitCommit = "", ""
	require.Equal(t, "wordprob version: unknown\n git commit:      unknown\n", String())

	Version, GitCommit = "v0.3.0", "4f2a9c1"
	defer func() { Version, GitCommit = "", "" }()
	require.Equal(t, "wordprob version: v0.3.0\n git commit:      4f2a9c1\n", String())
}
