package guardrail

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/medibook/plugin/intake/entity"
	"github.com/hrygo/medibook/plugin/intake/temporal"
)

func TestEvaluate(t *testing.T) {
	dept, date, clock := "dentist", "tomorrow", "3pm"
	normalized := temporal.Normalized{Date: "2026-10-15", Time: "15:00", Timezone: "Asia/Kolkata"}

	tests := []struct {
		name     string
		entities entity.Entities
		want     string
	}{
		{"nothing found", entity.Entities{}, MessageAmbiguousDepartment},
		{"department missing", entity.Entities{DatePhrase: &date, TimePhrase: &clock}, MessageAmbiguousDepartment},
		{"date checked before time", entity.Entities{DepartmentKeyword: &dept}, MessageAmbiguousDateTime},
		{"date missing", entity.Entities{DepartmentKeyword: &dept, TimePhrase: &clock}, MessageAmbiguousDateTime},
		{"time missing", entity.Entities{DepartmentKeyword: &dept, DatePhrase: &date}, MessageAmbiguousTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.entities, normalized)
			require.NotNil(t, got)
			assert.Equal(t, StatusNeedsClarification, got.Status)
			assert.Equal(t, tt.want, got.Message)
		})
	}
}

func TestEvaluate_Pass(t *testing.T) {
	dept, date, clock := "dentist", "tomorrow", "3pm"
	e := entity.Entities{DepartmentKeyword: &dept, DatePhrase: &date, TimePhrase: &clock}

	assert.Nil(t, Evaluate(e, temporal.Normalized{}))
}

func TestEvaluate_PresenceOnly(t *testing.T) {
	// Phrases that cannot be resolved still count as present.
	dept, date, clock := "eye", "blorp", "noonish"
	e := entity.Entities{DepartmentKeyword: &dept, DatePhrase: &date, TimePhrase: &clock}

	assert.Nil(t, Evaluate(e, temporal.Normalized{Date: "2026-10-21", Time: "09:00"}))
}
