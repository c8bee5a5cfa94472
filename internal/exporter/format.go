package exporter

import (
	"strconv"
	"time"
)

// dateLayout is how report dates are printed.
const dateLayout = "2006-01-02"

// formatFloat prints the shortest decimal that round-trips.
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatUint(u uint64) string {
	return strconv.FormatUint(u, 10)
}

// formatDate leaves absent dates empty.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
