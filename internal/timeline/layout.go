package timeline

// DefaultMobileBreakpoint is the viewport width below which the mobile source is used
const DefaultMobileBreakpoint = 768

// SectionOffset returns the vertical offset in pixels of the caption section
// that starts at startTime.
func SectionOffset(startTime, secondsPer100vh, viewportHeight float64) float64 {
	if secondsPer100vh <= 0 {
		return 0
	}
	return Round2(startTime/secondsPer100vh) * viewportHeight
}

// SectionsHeight returns the total scroll height needed to play duration seconds
func SectionsHeight(duration, secondsPer100vh, viewportHeight float64) float64 {
	if secondsPer100vh <= 0 || duration <= 0 {
		return 0
	}
	return Round2(duration/secondsPer100vh) * viewportHeight
}

// MarkerPercent returns the left offset, in percent, of a marker on the
// editor progress bar.
func MarkerPercent(startTime, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return Clamp(startTime, 0, duration) / duration * 100
}

// SeekFromBar converts a click position on the progress bar, as a fraction of
// its width, into a playback time.
func SeekFromBar(pos, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return Clamp(pos, 0, 1) * duration
}

// PickSource chooses between desktop and mobile media sources for a
// viewport width. A missing source falls back to the other one.
func PickSource(width, breakpoint int, desktop, mobile string) string {
	if breakpoint <= 0 {
		breakpoint = DefaultMobileBreakpoint
	}
	if width >= breakpoint {
		if desktop != "" {
			return desktop
		}
		return mobile
	}
	if mobile != "" {
		return mobile
	}
	return desktop
}
