package utils

import (
	"strconv"
)

// BuildReportCacheKey derives a stable cache key for an aggregated
// report. Keys are versioned so a format change invalidates old entries.
func BuildReportCacheKey(kind, userID, start, end string, limit int) string {
	return "reports:" + kind + ":v1:user=" + userID +
		":start=" + start +
		":end=" + end +
		":limit=" + strconv.Itoa(limit)
}
