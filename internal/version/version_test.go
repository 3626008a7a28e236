package version

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func withBuildInfo(t *testing.T, bi *debug.BuildInfo) {
	t.Helper()
	orig := readBuildInfo
	readBuildInfo = func() (*debug.BuildInfo, bool) { return bi, bi != nil }
	t.Cleanup(func() { readBuildInfo = orig })
}

func withLdflags(t *testing.T, version, commit, date string) {
	t.Helper()
	origVersion, origCommit, origDate := Version, Commit, Date
	Version, Commit, Date = version, commit, date
	t.Cleanup(func() {
		Version, Commit, Date = origVersion, origCommit, origDate
	})
}

func TestGetInfo_Ldflags(t *testing.T) {
	withLdflags(t, "1.0.0", "abc123def456", "2024-01-01T12:00:00Z")
	withBuildInfo(t, &debug.BuildInfo{
		Main:     debug.Module{Version: "v9.9.9"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "ffff"}},
	})

	info := GetInfo()
	if info.Version != "1.0.0" || info.Commit != "abc123def456" || info.Date != "2024-01-01T12:00:00Z" {
		t.Errorf("ldflags values should win, got %+v", info)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GoVersion = %v, want %v", info.GoVersion, runtime.Version())
	}
}

func TestGetInfo_BuildInfoFallback(t *testing.T) {
	tests := []struct {
		name       string
		bi         *debug.BuildInfo
		wantVer    string
		wantCommit string
	}{
		{
			name: "go install",
			bi: &debug.BuildInfo{
				Main: debug.Module{Version: "v0.3.0"},
				Settings: []debug.BuildSetting{
					{Key: "vcs.revision", Value: "0123456789abcdef"},
					{Key: "vcs.time", Value: "2025-05-01T00:00:00Z"},
				},
			},
			wantVer:    "v0.3.0",
			wantCommit: "0123456789abcdef",
		},
		{
			name:       "devel build",
			bi:         &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}},
			wantVer:    "dev",
			wantCommit: "unknown",
		},
		{
			name:       "no build info",
			bi:         nil,
			wantVer:    "dev",
			wantCommit: "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withLdflags(t, "dev", "unknown", "unknown")
			withBuildInfo(t, tt.bi)

			info := GetInfo()
			if info.Version != tt.wantVer {
				t.Errorf("Version = %q, want %q", info.Version, tt.wantVer)
			}
			if info.Commit != tt.wantCommit {
				t.Errorf("Commit = %q, want %q", info.Commit, tt.wantCommit)
			}
		})
	}
}

func TestInfo_String(t *testing.T) {
	info := Info{
		Version:   "1.2.3",
		Commit:    "abcdef1234567890",
		Date:      "2025-01-01",
		GoVersion: "go1.24.6",
		Platform:  "linux/amd64",
	}

	got := info.String()
	for _, want := range []string{"runeforge 1.2.3", "(abcdef12)", "go1.24.6", "linux/amd64"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
