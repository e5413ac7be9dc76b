// Package commas formats integers with thousands separators for diagnostics.
package commas

import "strconv"

func Int(v int) string {
	return String(strconv.Itoa(v))
}

func Int64(v int64) string {
	return String(strconv.FormatInt(v, 10))
}

func String(s string) string {
	if s == "" {
		return s
	}

	negative := false
	if s[0] == '-' {
		negative = true
		s = s[1:]
	}

	pos := len(s) - 3
	for pos > 0 {
		s = s[:pos] + "," + s[pos:]
		pos -= 3
	}

	if negative {
		return "-" + s
	}
	return s
}
