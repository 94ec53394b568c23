package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassifyAge_Thresholds(t *testing.T) {
	for age := 0; age <= 60; age++ {
		got := ClassifyAge(age)
		switch {
		case age >= 20:
			assert.Equal(t, ClassificationP, got, "age %d", age)
		case age >= 10:
			assert.Equal(t, ClassificationR, got, "age %d", age)
		default:
			assert.Equal(t, ClassificationA, got, "age %d", age)
		}
	}
}

func TestRagFor(t *testing.T) {
	assert.Equal(t, RagGreen, RagFor(ClassificationA))
	assert.Equal(t, RagAmber, RagFor(ClassificationR))
	assert.Equal(t, RagRed, RagFor(ClassificationP))
}

func TestAgeInDays(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, AgeInDays(now.Add(-23*time.Hour), now))
	assert.Equal(t, 1, AgeInDays(now.Add(-25*time.Hour), now))
	assert.Equal(t, 20, AgeInDays(now.AddDate(0, 0, -20), now))
	assert.Equal(t, 0, AgeInDays(now.Add(time.Hour), now))
}

func TestParseClassification(t *testing.T) {
	c, err := ParseClassification("r")
	assert.NoError(t, err)
	assert.Equal(t, ClassificationR, c)

	_, err = ParseClassification("Z")
	assert.Error(t, err)
}
