package rules

import (
	"strconv"
	"time"
)

const (
	// SilverMinLevel is the lowest silver level and the weekday requirement.
	SilverMinLevel = 6
	// GoldMinLevel is the lowest gold level and the weekend requirement.
	GoldMinLevel = 11
	maxRatedLevel = 30

	// UnknownTier is returned for unrated or out-of-range levels.
	UnknownTier = "?"
)

var tierGroups = [...]string{"실버", "골드", "플래티넘", "다이아", "루비"}

// IsRecordable reports whether a submission at raw counts on its own.
// Weekdays need silver or above, weekends gold or above.
func IsRecordable(raw string, level int) (bool, error) {
	t, err := ParseTimestamp(raw)
	if err != nil {
		return false, err
	}
	return IsRecordableAt(t, level), nil
}

// IsRecordableAt is IsRecordable for an already parsed instant.
func IsRecordableAt(t time.Time, level int) bool {
	if IsWeekend(t) {
		return level >= GoldMinLevel
	}
	return level >= SilverMinLevel
}

// QualifiesWeekendBonus reports whether a weekend day's new submissions are
// all recorded: one gold-or-above problem, or two silver-or-above problems.
func QualifiesWeekendBonus(levels []int) bool {
	gold, silver := 0, 0
	for _, level := range levels {
		if level >= GoldMinLevel {
			gold++
		}
		if level >= SilverMinLevel {
			silver++
		}
	}
	return gold >= 1 || silver >= 2
}

// LevelToTier maps a level to its tier label, e.g. 6 -> 실버5, 30 -> 루비1.
func LevelToTier(level int) string {
	if level < SilverMinLevel || level > maxRatedLevel {
		return UnknownTier
	}
	offset := level - SilverMinLevel
	rank := 5 - offset%5
	return tierGroups[offset/5] + strconv.Itoa(rank)
}
