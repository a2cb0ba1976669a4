package format

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	_  = iota // ignore first value
	KB = 1 << (10 * iota)
	MB
	GB
	TB
)

// FormatBytes formats a byte count into human-readable units, avoiding .00 for whole numbers.
func FormatBytes(b int64) string {
	val := float64(b)
	var unit string

	switch {
	case b >= TB:
		val /= float64(TB)
		unit = "TB"
	case b >= GB:
		val /= float64(GB)
		unit = "GB"
	case b >= MB:
		val /= float64(MB)
		unit = "MB"
	case b >= KB:
		val /= float64(KB)
		unit = "KB"
	default:
		return fmt.Sprintf("%dB", b)
	}

	if val == float64(int(val)) {
		return fmt.Sprintf("%.0f%s", val, unit)
	}
	return fmt.Sprintf("%.2f%s", val, unit)
}

// ParseBytes parses a human-readable size such as "128KB", "1.5MB" or "4096".
// Units are powers of 1024 and case-insensitive; a trailing "iB" is accepted.
func ParseBytes(s string) (uint64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}

	s = strings.TrimSuffix(s, "IB")
	s = strings.TrimSuffix(s, "B")

	mul := uint64(1)
	switch {
	case strings.HasSuffix(s, "K"):
		mul = KB
	case strings.HasSuffix(s, "M"):
		mul = MB
	case strings.HasSuffix(s, "G"):
		mul = GB
	case strings.HasSuffix(s, "T"):
		mul = TB
	}
	if mul > 1 {
		s = s[:len(s)-1]
	}

	num := strings.TrimSpace(s)
	if n, err := strconv.ParseUint(num, 10, 64); err == nil {
		return n * mul, nil
	}

	f, err := strconv.ParseFloat(num, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid size %q", num)
	}
	return uint64(f * float64(mul)), nil
}
