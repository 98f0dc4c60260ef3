package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	saved := GitCommit
	t.Cleanup(func() { GitCommit = saved })
	GitCommit = "abc1234"

	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, "abc1234", info.GitCommit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestString(t *testing.T) {
	info := VersionInfo{Version: "1.2.3", GitCommit: "deadbeef", BuildTime: "2025-01-02T03:04:05Z", GoVersion: "go1.24.2"}
	assert.Equal(t, "Version: 1.2.3\nGitCommit: deadbeef\nBuildTime: 2025-01-02T03:04:05Z\nGoVersion: go1.24.2", info.String())
}
