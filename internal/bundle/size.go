package bundle

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// nextSIPrefix steps a prefix up by one magnitude
var nextSIPrefix = map[string]string{
	"": "k", "k": "M", "M": "G", "G": "T", "T": "P", "P": "E", "E": "Z", "Z": "Y",
}

// FormatSize renders a byte count using decimal (1000-based) prefixes.
// Counts below 1000 are shown as whole bytes, e.g. "512 bytes"; larger
// counts are rounded to zero decimals, e.g. "12 kB".
func FormatSize(bytes float64) string {
	if bytes < 1000 {
		return fmt.Sprintf("%d bytes", int64(math.Round(bytes)))
	}
	value, prefix := humanize.ComputeSI(bytes)
	// log10 of exact powers of 1000 can land just below the integer
	if next, ok := nextSIPrefix[prefix]; ok && value >= 1000 {
		value, prefix = value/1000, next
	}
	return fmt.Sprintf("%.0f %sB", value, prefix)
}
