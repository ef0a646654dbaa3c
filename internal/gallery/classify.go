package gallery

// Aspect ratio thresholds. Anything between the two is close enough to 1:1
// to render as square.
const (
	landscapeRatio = 1.15
	portraitRatio  = 0.87

	// defaultRatio is used when dimensions are unknown.
	defaultRatio = 1.0
)

// Classify derives the aspect ratio and orientation from pixel dimensions.
// When either dimension is unknown (<= 0) the ratio defaults to 1.0 and the
// orientation to square. Pure and deterministic; re-invoked whenever
// dimensions are established or corrected.
func Classify(width, height int) (float64, Orientation) {
	ratio := defaultRatio
	if width > 0 && height > 0 {
		ratio = float64(width) / float64(height)
	}

	switch {
	case ratio > landscapeRatio:
		return ratio, Landscape
	case ratio < portraitRatio:
		return ratio, Portrait
	default:
		return ratio, Square
	}
}
