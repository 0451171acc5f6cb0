package subtitle

import (
	"fmt"
	"time"
)

// FormatTimestamp formats d in the timestamp notation of kind.
func FormatTimestamp(d time.Duration, kind Kind) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	milliseconds := int(d.Milliseconds()) % 1000

	sep := ","
	if kind == KindVTT {
		sep = "."
	}
	return fmt.Sprintf("%02d:%02d:%02d%s%03d", hours, minutes, seconds, sep, milliseconds)
}
