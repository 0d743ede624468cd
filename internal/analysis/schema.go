package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"

	"apr-manager/internal/risk"
)

// RiskItem is one row of the hazard matrix. RiskLevel and RiskCategory
// are derived locally from probability and severity; values supplied by
// the reasoning service are discarded.
type RiskItem struct {
	Task            string   `json:"task"`
	Hazard          string   `json:"hazard"`
	Probability     int      `json:"probability"`
	Severity        int      `json:"severity"`
	RiskLevel       int      `json:"riskLevel"`
	RiskCategory    string   `json:"riskCategory"`
	ControlMeasures string   `json:"controlMeasures"`
	ApplicableNRs   []string `json:"applicableNRs"`
}

// SpecialWorkPermits flags the fixed set of regulated work categories.
type SpecialWorkPermits struct {
	NR10Electrical bool   `json:"nr10_electrical"`
	NR35Height     bool   `json:"nr35_height"`
	NR33Confined   bool   `json:"nr33_confined"`
	NR12Pressure   bool   `json:"nr12_pressure"`
	NR18Excavation bool   `json:"nr18_excavation"`
	NR18HotWork    bool   `json:"nr18_hot_work"`
	NR18Lifting    bool   `json:"nr18_lifting"`
	Others         string `json:"others"`
}

// CommunicationNeeds routes the APR to the sectors that must be told
// before work starts.
type CommunicationNeeds struct {
	Management       bool `json:"management"`
	Supervision      bool `json:"supervision"`
	Safety           bool `json:"safety"`
	Environment      bool `json:"environment"`
	EmergencyBrigade bool `json:"emergency_brigade"`
	Security         bool `json:"security"`
	Purchasing       bool `json:"purchasing"`
	HR               bool `json:"hr"`
}

// Result is the structured hazard analysis persisted on the APR.
type Result struct {
	Risks              []RiskItem         `json:"risks"`
	SpecialWorkPermits SpecialWorkPermits `json:"specialWorkPermits"`
	RequiredPPE        []string           `json:"requiredPPE"`
	CommunicationNeeds CommunicationNeeds `json:"communicationNeeds"`
	Summary            string             `json:"summary"`
}

// SchemaError carries the raw payload that failed validation, so a
// non-conforming reply can be inspected without ever being trusted.
type SchemaError struct {
	Raw    []byte
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("analysis payload rejected: %s", e.Reason)
}

// ParseResult decodes and validates a reasoning-service reply. Anything
// that does not conform to the schema is a SchemaError, never a partial
// result.
func ParseResult(raw []byte) (*Result, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var r Result
	if err := dec.Decode(&r); err != nil {
		return nil, &SchemaError{Raw: raw, Reason: err.Error()}
	}
	if r.Risks == nil {
		return nil, &SchemaError{Raw: raw, Reason: "missing risks array"}
	}
	for i, item := range r.Risks {
		if item.Task == "" || item.Hazard == "" {
			return nil, &SchemaError{Raw: raw, Reason: fmt.Sprintf("risk %d: empty task or hazard", i)}
		}
		if item.Probability < 1 || item.Probability > 4 {
			return nil, &SchemaError{Raw: raw, Reason: fmt.Sprintf("risk %d: probability %d out of [1,4]", i, item.Probability)}
		}
		if item.Severity < 1 || item.Severity > 4 {
			return nil, &SchemaError{Raw: raw, Reason: fmt.Sprintf("risk %d: severity %d out of [1,4]", i, item.Severity)}
		}
		if item.ControlMeasures == "" {
			return nil, &SchemaError{Raw: raw, Reason: fmt.Sprintf("risk %d: empty control measures", i)}
		}
	}
	if r.Summary == "" {
		return nil, &SchemaError{Raw: raw, Reason: "missing summary"}
	}

	r.normalize()
	return &r, nil
}

// normalize recomputes every derived field from the numeric inputs.
func (r *Result) normalize() {
	for i := range r.Risks {
		item := &r.Risks[i]
		level, category, err := risk.Assess(item.Probability, item.Severity)
		if err != nil {
			// validated above; unreachable
			continue
		}
		item.RiskLevel = level
		item.RiskCategory = string(category)
		if item.ApplicableNRs == nil {
			item.ApplicableNRs = []string{}
		}
	}
	if r.RequiredPPE == nil {
		r.RequiredPPE = []string{}
	}
}

// Levels returns the risk levels for aggregation.
func (r *Result) Levels() []int {
	levels := make([]int, len(r.Risks))
	for i, item := range r.Risks {
		levels[i] = item.RiskLevel
	}
	return levels
}

// ResponseSchema is the json_schema payload sent to the reasoning
// service so the reply is forced into the Result shape.
func ResponseSchema() map[string]any {
	str := map[string]any{"type": "string"}
	boolean := map[string]any{"type": "boolean"}
	grade := map[string]any{"type": "integer", "minimum": 1, "maximum": 4}
	strList := map[string]any{"type": "array", "items": str}

	obj := func(props map[string]any) map[string]any {
		required := make([]string, 0, len(props))
		for k := range props {
			required = append(required, k)
		}
		return map[string]any{
			"type":                 "object",
			"properties":           props,
			"required":             required,
			"additionalProperties": false,
		}
	}

	return obj(map[string]any{
		"risks": map[string]any{
			"type": "array",
			"items": obj(map[string]any{
				"task":            str,
				"hazard":          str,
				"probability":     grade,
				"severity":        grade,
				"riskLevel":       map[string]any{"type": "integer"},
				"riskCategory":    str,
				"controlMeasures": str,
				"applicableNRs":   strList,
			}),
		},
		"specialWorkPermits": obj(map[string]any{
			"nr10_electrical": boolean,
			"nr35_height":     boolean,
			"nr33_confined":   boolean,
			"nr12_pressure":   boolean,
			"nr18_excavation": boolean,
			"nr18_hot_work":   boolean,
			"nr18_lifting":    boolean,
			"others":          str,
		}),
		"requiredPPE": strList,
		"communicationNeeds": obj(map[string]any{
			"management":        boolean,
			"supervision":       boolean,
			"safety":            boolean,
			"environment":       boolean,
			"emergency_brigade": boolean,
			"security":          boolean,
			"purchasing":        boolean,
			"hr":                boolean,
		}),
		"summary": str,
	})
}
