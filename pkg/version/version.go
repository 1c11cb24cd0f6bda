package version

import "fmt"

// Version is the release of the wordprob binaries, set at link time.
var Version string

// GitCommit is the commit the binary was built from, set at link time.
var GitCommit string

func String() string {
	return fmt.Sprintf("wordprob version: %s\n git commit:      %s\n", orUnknown(Version), orUnknown(GitCommit))
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
