package version

import "testing"

func TestGetReportsAPIVersion(t *testing.T) {
	info := Get("v1")
	if info.APIVersion != "v1" {
		t.Fatalf("APIVersion = %q, want v1", info.APIVersion)
	}
	if info.Version != BuildVersion() {
		t.Fatalf("Version = %q, want %q", info.Version, BuildVersion())
	}
}
