package main

import "fmt"

// shortenURL keeps the tail of long URLs, where the page name lives.
func shortenURL(u string, width int) string {
	switch {
	case width <= 0:
		return ""
	case len(u) <= width:
		return u
	case width <= 3:
		return u[:width]
	}
	return "..." + u[len(u)-(width-3):]
}

var byteUnits = []string{"KB", "MB", "GB"}

// humanBytes formats n with binary units and one decimal.
func humanBytes(n int) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	v := float64(n) / 1024
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", v, byteUnits[unit])
}
