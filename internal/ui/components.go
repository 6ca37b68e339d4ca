package ui

import (
	"fmt"
	"strings"
	"time"
)

// renderMeter draws a labelled bar for a band energy in [0, 1].
func renderMeter(label string, v float64, width int) string {
	width = max(width, 4)
	ratio := min(max(v, 0), 1)
	filled := int(ratio * float64(width))
	return label + " " + meterStyle.Render(strings.Repeat("━", filled)) + strings.Repeat("─", width-filled)
}

// formatDuration formats a duration as m:ss.
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
