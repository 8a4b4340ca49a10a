package version

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func stamp(t *testing.T, v, commit, built string) {
	t.Helper()
	oldV, oldC, oldB := Version, GitCommit, BuildTime
	Version, GitCommit, BuildTime = v, commit, built
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldV, oldC, oldB })
}

func TestStampedBuild(t *testing.T) {
	stamp(t, "v1.2.0", "0123456789abcdef", "2026-10-01T12:00:00Z")

	info := GetBuildInfo()
	assert.Equal(t, "v1.2.0", info.Version)
	assert.Equal(t, "0123456789abcdef", info.GitCommit)
	assert.Equal(t, time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC), info.BuildTime)
	assert.Equal(t, "v1.2.0 (0123456)", GetShortVersion())

	out := info.String()
	assert.Contains(t, out, "archipelago v1.2.0")
	assert.Contains(t, out, "Commit: 0123456789abcdef")
	assert.Contains(t, out, "Built: 2026-10-01T12:00:00Z")
	assert.Contains(t, out, "Platform: ")
}

func TestParseBuildTime(t *testing.T) {
	tests := []struct {
		in   string
		zero bool
	}{
		{"2026-10-01T12:00:00Z", false},
		{"2026-10-01T12:00:00", false},
		{"unknown", true},
		{"", true},
		{"yesterday", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.zero, parseBuildTime(tt.in).IsZero())
		})
	}
}

func TestUnstampedBuildInfo(t *testing.T) {
	stamp(t, "dev", "unknown", "unknown")

	info := GetBuildInfo()
	assert.NotEmpty(t, info.Version)
	assert.True(t, info.BuildTime.IsZero())
	assert.NotContains(t, info.String(), "Built:")
}
