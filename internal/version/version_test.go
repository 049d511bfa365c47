package version

import "testing"

func TestGetVersionInfo(t *testing.T) {
	info := GetVersionInfo()
	if info["version"] != GetVersion() {
		t.Errorf("Expected version %s, got %s", GetVersion(), info["version"])
	}
	for _, key := range []string{"gitCommit", "gitTreeState", "buildDate", "goVersion", "platform"} {
		if info[key] == "" {
			t.Errorf("Expected %s to be set", key)
		}
	}
}
