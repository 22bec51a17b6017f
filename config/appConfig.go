package config

import (
	"os"
	"strconv"
	"strings"
)

// DuplicateWindowDays bounds how far back duplicate detection looks when
// comparing an imported row against existing payments. 0 (the default)
// compares against the full payment history, which can flag recurring
// legitimate payments of the same amount; set a window to scope it.
func DuplicateWindowDays() int {
	return nonNegativeIntFromEnv("DUPLICATE_WINDOW_DAYS", 0)
}

// DefaultCheckNumber is the starting check number for accounts whose counter
// has never been set.
func DefaultCheckNumber() int {
	n := nonNegativeIntFromEnv("DEFAULT_CHECK_NUMBER", 1000)
	if n == 0 {
		return 1000
	}
	return n
}

func nonNegativeIntFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
