// Package risk implements the deterministic scoring matrix used across
// analysis and reporting. It is pure: no storage, no clock, no I/O.
package risk

import (
	"fmt"

	"apr-manager/internal/apperr"
)

type Category string

const (
	CategoryAcceptable   Category = "Acceptable – sufficient controls"
	CategoryTolerable    Category = "Tolerable – attention to controls"
	CategoryUnacceptable Category = "Unacceptable – requires additional controls"
	CategoryInadmissible Category = "Inadmissible – do not execute"
)

const (
	// Band thresholds on the risk level NR = P × S.
	thresholdAcceptable   = 2
	thresholdTolerable    = 4
	thresholdUnacceptable = 9

	// Aggregation bands used by Summarize.
	HighBand     = 6
	CriticalBand = 12
)

// Level computes NR = P × S for probability and severity in [1,4].
func Level(probability, severity int) (int, error) {
	if probability < 1 || probability > 4 {
		return 0, apperr.BadRequest("probability out of range [1,4]: %d", probability)
	}
	if severity < 1 || severity > 4 {
		return 0, apperr.BadRequest("severity out of range [1,4]: %d", severity)
	}
	return probability * severity, nil
}

// Categorize maps a risk level onto the four-band table. Categories are
// always derived here, never taken from an upstream payload, so the
// matrix stays internally consistent even against a buggy producer.
func Categorize(level int) Category {
	switch {
	case level <= thresholdAcceptable:
		return CategoryAcceptable
	case level <= thresholdTolerable:
		return CategoryTolerable
	case level <= thresholdUnacceptable:
		return CategoryUnacceptable
	default:
		return CategoryInadmissible
	}
}

// Assess combines Level and Categorize.
func Assess(probability, severity int) (int, Category, error) {
	level, err := Level(probability, severity)
	if err != nil {
		return 0, "", err
	}
	return level, Categorize(level), nil
}

type Summary struct {
	Total    int    `json:"total"`
	High     int    `json:"high"`     // levels >= HighBand
	Critical int    `json:"critical"` // levels >= CriticalBand
	Banner   string `json:"banner"`
}

// Summarize aggregates a set of risk levels into counters and a
// severity-led banner. The banner is composed from the numbers alone,
// independent of whatever prose the analysis text carries, and always
// forces the do-not-execute warning when any item reaches the
// inadmissible band.
func Summarize(levels []int) Summary {
	s := Summary{Total: len(levels)}
	for _, l := range levels {
		if l >= HighBand {
			s.High++
		}
		if l >= CriticalBand {
			s.Critical++
		}
	}

	switch {
	case s.Critical > 0:
		s.Banner = fmt.Sprintf("DO NOT EXECUTE: %d risk(s) in the inadmissible band", s.Critical)
	case s.High > 0:
		s.Banner = fmt.Sprintf("%d of %d risk(s) require additional controls before execution", s.High, s.Total)
	case s.Total > 0:
		s.Banner = fmt.Sprintf("%d risk(s) identified, all within tolerable bands", s.Total)
	default:
		s.Banner = "no risks identified"
	}
	return s
}
