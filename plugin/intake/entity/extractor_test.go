package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/medibook/plugin/intake/department"
)

func value(p *string) string {
	if p == nil {
		return "<nil>"
	}
	return *p
}

func TestExtract_NoSignals(t *testing.T) {
	x := NewExtractor(nil)

	for _, text := range []string{"", "hello there", "please call me back"} {
		t.Run(text, func(t *testing.T) {
			got := x.Extract(text)
			assert.Nil(t, got.Entities.DatePhrase)
			assert.Nil(t, got.Entities.TimePhrase)
			assert.Nil(t, got.Entities.DepartmentKeyword)
			assert.Equal(t, ConfidenceLow, got.Confidence)
		})
	}
}

func TestExtract_Department(t *testing.T) {
	x := NewExtractor(nil)

	got := x.Extract("I need a Dentist appointment")
	require.NotNil(t, got.Entities.DepartmentKeyword)
	assert.Equal(t, "dentist", *got.Entities.DepartmentKeyword)
	assert.Equal(t, ConfidenceLow, got.Confidence)

	// First keyword in map order wins, not first in text.
	got = x.Extract("doctor said to see a cardiology and dental team")
	assert.Equal(t, "dental", value(got.Entities.DepartmentKeyword))
}

func TestExtract_TimePhrases(t *testing.T) {
	x := NewExtractor(nil)

	tests := []struct {
		text string
		want string
		rule string
	}{
		{"book me at 3pm", "3pm", "hour_meridiem"},
		{"book me at 3 PM", "3 pm", "hour_meridiem"},
		{"book me @ 3pm", "3pm", "hour_meridiem"},
		{"@3pm works", "3pm", "hour_meridiem"},
		{"3pm", "3pm", "hour_meridiem"},
		{"around 10:30am please", "10:30am", "hour_minute"},
		{"around 10:30 pm please", "10:30 pm", "hour_minute"},
		{"slot at 14:15", "14:15", "hour_minute"},
		{"either 9:00 or 4pm", "4pm", "hour_meridiem"},
		{"no time here", "<nil>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := x.Extract(tt.text)
			assert.Equal(t, tt.want, value(got.Entities.TimePhrase))
			assert.Equal(t, tt.rule, got.TimeRule)
		})
	}
}

func TestExtract_DatePhrases(t *testing.T) {
	x := NewExtractor(nil)

	tests := []struct {
		text string
		want string
		rule string
	}{
		{"dentist next Friday at 3pm", "next friday", "next_word"},
		{"next week please", "next week", "next_word"},
		{"tomorrow morning", "tomorrow", "tomorrow"},
		{"today if possible", "today", "today"},
		{"this Monday", "monday", "weekday"},
		{"tomorrow or next monday", "next monday", "next_word"},
		{"on 12/11/2026", "12/11/2026", "numeric_date"},
		{"on 5-3-26", "5-3-26", "numeric_date"},
		{"on 15 March", "15 march", "day_month"},
		{"on 3 sept", "3 sept", "day_month"},
		{"whenever", "<nil>", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := x.Extract(tt.text)
			assert.Equal(t, tt.want, value(got.Entities.DatePhrase))
			assert.Equal(t, tt.rule, got.DateRule)
		})
	}
}

func TestExtract_Confidence(t *testing.T) {
	x := NewExtractor(nil)

	tests := []struct {
		name string
		text string
		want float64
	}{
		{"all three", "Dentist appointment next Friday at 3pm", ConfidenceHigh},
		{"department and date", "cardiology tomorrow", ConfidenceHigh},
		{"department and time", "eye checkup @ 4pm", ConfidenceHigh},
		{"date and time", "tomorrow at 10:00", ConfidenceHigh},
		{"only date", "tomorrow", ConfidenceLow},
		{"only time", "at 5pm", ConfidenceLow},
		{"only department", "neurology", ConfidenceLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, x.Extract(tt.text).Confidence)
		})
	}
}

func TestExtract_CustomDepartments(t *testing.T) {
	m, err := department.New([]department.Entry{{Keyword: "skin", Name: "Dermatology"}}, "")
	require.NoError(t, err)
	x := NewExtractor(m)

	got := x.Extract("Skin clinic tomorrow")
	assert.Equal(t, "skin", value(got.Entities.DepartmentKeyword))

	got = x.Extract("dentist tomorrow")
	assert.Nil(t, got.Entities.DepartmentKeyword)
}

func TestEntities_Found(t *testing.T) {
	s := "x"
	assert.Equal(t, 0, Entities{}.Found())
	assert.Equal(t, 1, Entities{DatePhrase: &s}.Found())
	assert.Equal(t, 3, Entities{DatePhrase: &s, TimePhrase: &s, DepartmentKeyword: &s}.Found())
}
