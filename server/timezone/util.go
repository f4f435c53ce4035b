// Package timezone provides timezone utilities for medibook.
//
// Appointments are expressed as wall-clock date and time in a single
// configured clinic timezone; these helpers load and format that zone.
package timezone

import (
	"time"

	"github.com/pkg/errors"
)

// Common timezone constants
const (
	// TimezoneUTC is the UTC timezone identifier
	TimezoneUTC = "UTC"

	// TimezoneAsiaKolkata is the India Standard Time timezone, the clinic default
	TimezoneAsiaKolkata = "Asia/Kolkata"
)

// UTC is the coordinated universal time timezone
var UTC = time.UTC

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Kolkata").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == TimezoneUTC {
		return UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, errors.Wrapf(err, "invalid timezone %q", tz)
	}

	return loc, nil
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	_, err := ParseTimezone(tz)
	return err == nil
}

// FormatAppointment renders an appointment slot for display.
// Format: "Mon, 19 Oct 2026 15:00 IST"
func FormatAppointment(date, clock string, tz *time.Location) (string, error) {
	if tz == nil {
		tz = UTC
	}
	t, err := time.ParseInLocation(time.DateOnly+" 15:04", date+" "+clock, tz)
	if err != nil {
		return "", errors.Wrapf(err, "invalid appointment slot %s %s", date, clock)
	}
	return t.Format("Mon, 02 Jan 2006 15:04 MST"), nil
}
