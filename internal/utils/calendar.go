package utils

import (
	"strings"
	"time"
)

const icsStamp = "20060102T150405Z"

// MakeICS renders a single-event iCalendar object.  Times are written in
// UTC and lines end in CRLF.  A non-positive duration defaults to 30
// minutes.
func MakeICS(summary, description string, start time.Time, durationMinutes int, location string) string {
	if durationMinutes <= 0 {
		durationMinutes = 30
	}
	start = start.UTC()
	end := start.Add(time.Duration(durationMinutes) * time.Minute)

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//hrpass//interviews//EN",
		"BEGIN:VEVENT",
		"SUMMARY:" + icsEscape(summary),
		"DESCRIPTION:" + icsEscape(description),
		"DTSTART:" + start.Format(icsStamp),
		"DTEND:" + end.Format(icsStamp),
		"LOCATION:" + icsEscape(location),
		"END:VEVENT",
		"END:VCALENDAR",
	}
	return strings.Join(lines, "\r\n") + "\r\n"
}

var icsEscaper = strings.NewReplacer(`\`, `\\`, ";", `\;`, ",", `\,`, "\r\n", `\n`, "\n", `\n`)

func icsEscape(s string) string { return icsEscaper.Replace(s) }
