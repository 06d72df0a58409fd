package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type slotQuery struct {
	CompetitionID string `json:"competId" validate:"required"`
	Time          string `json:"time" validate:"required,hhmm"`
	Gender        string `json:"gender,omitempty" validate:"omitempty,gender"`
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(slotQuery{CompetitionID: "1", Time: "08h55"}, "bad query"))
	require.NoError(t, Validate(slotQuery{CompetitionID: "1", Time: "08:55", Gender: "F"}, "bad query"))

	err := Validate(slotQuery{Time: "8 heures", Gender: "X"}, "bad query")
	require.Error(t, err)

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindValidation, e.Kind)
	assert.Equal(t, map[string]string{
		"competId": "required",
		"time":     "hhmm",
		"gender":   "gender",
	}, e.Fields)
}

func TestSafeValidate(t *testing.T) {
	assert.True(t, SafeValidate(slotQuery{CompetitionID: "1", Time: "23h59"}))
	assert.False(t, SafeValidate(slotQuery{CompetitionID: "1", Time: "24h00"}))
}
