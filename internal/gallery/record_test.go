package gallery

import "testing"

func TestStem(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"sunset.jpg", "sunset"},
		{"photos/2024/sunset.jpg", "sunset"},
		{"C:\\Uploads\\sunset.png", "sunset"},
		{"archive.tar.gz", "archive.tar"},
		{"noext", "noext"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := stem(tt.in); got != tt.want {
			t.Errorf("stem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDisplayNameChain(t *testing.T) {
	if got := displayName("Given", "orig.jpg", "blob/key.jpg"); got != "Given" {
		t.Errorf("explicit name wins: got %q", got)
	}
	if got := displayName("", "orig.jpg", "blob/key.jpg"); got != "orig" {
		t.Errorf("original filename stem: got %q", got)
	}
	if got := displayName("", "", "blob/key.jpg"); got != "key" {
		t.Errorf("blob key stem: got %q", got)
	}
	// No usable source at all falls back to a generated name.
	if got := displayName("", "", ""); got == "" {
		t.Error("expected a generated fallback name")
	}
}
