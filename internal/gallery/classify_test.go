package gallery

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		width  int
		height int
		want   Orientation
	}{
		{"full hd", 1920, 1080, Landscape},
		{"full hd rotated", 1080, 1920, Portrait},
		{"exact square", 1000, 1000, Square},
		{"unknown dimensions", 0, 0, Square},
		{"unknown width", 0, 1080, Square},
		{"unknown height", 1920, 0, Square},
		{"slightly wide stays square", 1100, 1000, Square},
		{"just past landscape threshold", 1160, 1000, Landscape},
		{"slightly tall stays square", 900, 1000, Square},
		{"just past portrait threshold", 860, 1000, Portrait},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ratio, o := Classify(tt.width, tt.height)
			if o != tt.want {
				t.Errorf("Classify(%d, %d) = %q, want %q (ratio %f)",
					tt.width, tt.height, o, tt.want, ratio)
			}
		})
	}
}

func TestClassifyDefaultRatio(t *testing.T) {
	ratio, o := Classify(0, 0)
	if ratio != 1.0 {
		t.Errorf("expected default ratio 1.0, got %f", ratio)
	}
	if o != Square {
		t.Errorf("expected square for unknown dimensions, got %q", o)
	}
}

func TestClassifyRatioValue(t *testing.T) {
	ratio, _ := Classify(1920, 1080)
	want := 1920.0 / 1080.0
	if ratio != want {
		t.Errorf("expected ratio %f, got %f", want, ratio)
	}
}
