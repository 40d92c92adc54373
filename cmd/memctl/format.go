package main

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// parseSize accepts "4096", "64KiB", "1 MB" and similar.
func parseSize(s string) (int, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > math.MaxInt32 {
		return 0, fmt.Errorf("size %q too large", s)
	}
	return int(n), nil
}

// formatBytes renders n as "65,520 (64 KiB)".
func formatBytes(n int) string {
	if n < 1024 {
		return printer.Sprintf("%d B", n)
	}
	return printer.Sprintf("%d (%s)", n, humanize.IBytes(uint64(n)))
}

// formatCount renders n with thousands separators.
func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}
