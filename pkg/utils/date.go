package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseTimeOfDay parses an "HH:MM" clock string into its hour and minute parts.
func ParseTimeOfDay(value string) (hour, minute int, err error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time of day %q, expected HH:MM", value)
	}

	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in time of day %q", value)
	}

	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in time of day %q", value)
	}

	return hour, minute, nil
}

func PrettyDate(date time.Time) string {
	return date.Format("02 Jan 2006 - 15:04 MST")
}
