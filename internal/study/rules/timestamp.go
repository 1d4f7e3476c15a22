package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	// SubmitTimeLayout renders instants the way the judge site displays them.
	SubmitTimeLayout = "2006년 1월 2일 15:04:05"
	// DateLayout is the calendar date format used by the API.
	DateLayout = "2006-01-02"
)

// KST is the judge site's zone. Korea has no DST, so the fixed offset is exact
// when the tz database is unavailable.
var KST = loadKST()

func loadKST() *time.Location {
	if loc, err := time.LoadLocation("Asia/Seoul"); err == nil {
		return loc
	}
	return time.FixedZone("KST", 9*60*60)
}

var timestampPattern = regexp.MustCompile(`(\d{4})년\s*(\d{1,2})월\s*(\d{1,2})일\s*(\d{1,2}):(\d{2}):(\d{2})`)

// ParseError reports a submission timestamp that could not be parsed.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse timestamp %q: %s", e.Raw, e.Reason)
}

// ParseTimestamp reads a "YYYY년 M월 D일 HH:MM:SS" string as KST wall-clock time.
func ParseTimestamp(raw string) (time.Time, error) {
	m := timestampPattern.FindStringSubmatch(raw)
	if m == nil {
		return time.Time{}, &ParseError{Raw: raw, Reason: "unexpected format"}
	}
	parts := make([]int, 6)
	for i := range parts {
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return time.Time{}, &ParseError{Raw: raw, Reason: err.Error()}
		}
		parts[i] = n
	}
	year, month, day, hour, minute, second := parts[0], parts[1], parts[2], parts[3], parts[4], parts[5]
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, &ParseError{Raw: raw, Reason: "component out of range"}
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, KST)
	if t.Day() != day {
		return time.Time{}, &ParseError{Raw: raw, Reason: "invalid calendar date"}
	}
	return t, nil
}

// FormatSubmitTime renders t in KST using the judge site's display format.
func FormatSubmitTime(t time.Time) string {
	return t.In(KST).Format(SubmitTimeLayout)
}

// DateOf returns KST midnight of the calendar day containing t.
func DateOf(t time.Time) time.Time {
	y, m, d := t.In(KST).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, KST)
}

// ParseDate parses a YYYY-MM-DD string as a KST calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, KST)
}

// FormatDate renders the KST calendar date of t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.In(KST).Format(DateLayout)
}

// IsWeekend reports whether t falls on Saturday or Sunday in KST.
func IsWeekend(t time.Time) bool {
	wd := t.In(KST).Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
