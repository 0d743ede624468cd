package analysis

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apr-manager/internal/risk"
)

const conformingPayload = `{
	"risks": [
		{
			"task": "Grinding on line 3",
			"hazard": "Flying sparks near solvent storage",
			"probability": 3,
			"severity": 4,
			"riskLevel": 1,
			"riskCategory": "Acceptable – sufficient controls",
			"controlMeasures": "Move solvents, fire watch, hot work permit",
			"applicableNRs": ["NR-18", "NR-6"]
		},
		{
			"task": "Ladder access",
			"hazard": "Fall from height",
			"probability": 2,
			"severity": 2,
			"riskLevel": 0,
			"riskCategory": "",
			"controlMeasures": "Tie-off, inspected ladder",
			"applicableNRs": []
		}
	],
	"specialWorkPermits": {
		"nr10_electrical": false,
		"nr35_height": true,
		"nr33_confined": false,
		"nr12_pressure": false,
		"nr18_excavation": false,
		"nr18_hot_work": true,
		"nr18_lifting": false,
		"others": ""
	},
	"requiredPPE": ["Face shield", "FR clothing"],
	"communicationNeeds": {
		"management": false,
		"supervision": true,
		"safety": true,
		"environment": false,
		"emergency_brigade": true,
		"security": false,
		"purchasing": false,
		"hr": false
	},
	"summary": "Hot work next to solvents dominates the risk profile."
}`

func TestParseResultRecomputesDerivedFields(t *testing.T) {
	result, err := ParseResult([]byte(conformingPayload))
	require.NoError(t, err)
	require.Len(t, result.Risks, 2)

	// upstream lied about riskLevel/riskCategory on both items;
	// the engine's verdict wins
	first := result.Risks[0]
	assert.Equal(t, 12, first.RiskLevel)
	assert.Equal(t, string(risk.CategoryInadmissible), first.RiskCategory)

	second := result.Risks[1]
	assert.Equal(t, 4, second.RiskLevel)
	assert.Equal(t, string(risk.CategoryTolerable), second.RiskCategory)

	assert.True(t, result.SpecialWorkPermits.NR18HotWork)
	assert.True(t, result.CommunicationNeeds.EmergencyBrigade)
}

func TestParseResultRejectsNonConformingPayloads(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"not json", `the activity is risky`},
		{"unknown field", `{"risks": [], "summary": "x", "surprise": 1}`},
		{"missing risks", `{"summary": "x"}`},
		{"probability out of range", `{"risks":[{"task":"t","hazard":"h","probability":5,"severity":1,"controlMeasures":"c"}],"summary":"x"}`},
		{"severity out of range", `{"risks":[{"task":"t","hazard":"h","probability":1,"severity":0,"controlMeasures":"c"}],"summary":"x"}`},
		{"empty hazard", `{"risks":[{"task":"t","hazard":"","probability":1,"severity":1,"controlMeasures":"c"}],"summary":"x"}`},
		{"missing summary", `{"risks":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResult([]byte(tt.payload))
			require.Error(t, err)

			var se *SchemaError
			require.True(t, errors.As(err, &se), "want SchemaError, got %T", err)
			assert.Equal(t, tt.payload, string(se.Raw))
		})
	}
}

func TestLevelsFeedSummarize(t *testing.T) {
	result, err := ParseResult([]byte(conformingPayload))
	require.NoError(t, err)

	summary := risk.Summarize(result.Levels())
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Critical)
	assert.Contains(t, summary.Banner, "DO NOT EXECUTE")
}

func TestResponseSchemaRequiresEveryField(t *testing.T) {
	schema := ResponseSchema()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])

	required, ok := schema["required"].([]string)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{
		"risks", "specialWorkPermits", "requiredPPE", "communicationNeeds", "summary",
	}, required)
}
