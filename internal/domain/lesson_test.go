package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinWordCount(t *testing.T) {
	tests := []struct {
		duration int
		want     int
	}{
		{30, 750},
		{45, 850},
		{60, 1000},
		{90, 750},
		{0, 750},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MinWordCount(tt.duration), "duration %d", tt.duration)
	}
}

func TestCountWords(t *testing.T) {
	assert.Equal(t, 0, CountWords("   \n\t "))
	assert.Equal(t, 4, CountWords("  **Lesson  Overview**\nYear 5\t maths"))
}

func TestPlanCatalog(t *testing.T) {
	c := NewPlanCatalog("", "price_custom", "")

	standard, ok := c.Get(PlanStandard)
	assert.True(t, ok)
	assert.Equal(t, "price_custom", standard.PriceID)
	assert.Equal(t, 3, standard.DailyMax)
	assert.Equal(t, 90, standard.MonthlyMax)

	starter, _ := c.Get(PlanStarter)
	assert.Equal(t, DefaultStarterPriceID, starter.PriceID)

	_, ok = c.Get("business")
	assert.False(t, ok)

	plans := c.Plans()
	plans[0].Name = "changed"
	first, _ := c.Get(PlanStarter)
	assert.Equal(t, "Starter", first.Name)
}

func TestParseExportFormat(t *testing.T) {
	f, ok := ParseExportFormat("docx")
	assert.True(t, ok)
	assert.Equal(t, FormatDOCX, f)

	_, ok = ParseExportFormat("odt")
	assert.False(t, ok)
}
