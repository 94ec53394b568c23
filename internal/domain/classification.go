package domain

import "time"

const (
	reviewThresholdDays   = 10
	priorityThresholdDays = 20
)

// ClassifyAge derives the A/R/P tier from the age of a ticket in days.
func ClassifyAge(days int) Classification {
	switch {
	case days >= priorityThresholdDays:
		return ClassificationP
	case days >= reviewThresholdDays:
		return ClassificationR
	default:
		return ClassificationA
	}
}

// RagFor maps a classification onto the report indicator.
func RagFor(c Classification) RagStatus {
	switch c {
	case ClassificationP:
		return RagRed
	case ClassificationR:
		return RagAmber
	default:
		return RagGreen
	}
}

// AgeInDays counts whole days elapsed between created and now.
func AgeInDays(created, now time.Time) int {
	if now.Before(created) {
		return 0
	}
	return int(now.Sub(created).Hours() / 24)
}
