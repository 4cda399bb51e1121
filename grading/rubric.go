package grading

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"uamvh.cloud/escolar/escolar/v1/common"
)

// Rubric is one weighted component of a partial grade.
type Rubric string

const (
	Asistencia  Rubric = "asistencia"
	Actividades Rubric = "actividades"
	Evidencias  Rubric = "evidencias"
	Producto    Rubric = "producto"
	Examen      Rubric = "examen"
)

var Rubrics = []Rubric{Asistencia, Actividades, Evidencias, Producto, Examen}

func (r Rubric) normal() Rubric {
	return Rubric(strings.ToLower(strings.TrimSpace(string(r))))
}

func ParseRubric(s string) (Rubric, bool) {
	r := Rubric(s).normal()
	for _, known := range Rubrics {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// Weight is the percentage a rubric contributes to a partial.
type Weight struct {
	Rubric  Rubric  `json:"rubric"`
	Percent float64 `json:"percent"`
}

// Evaluation is a single rubric grade within a partial.
type Evaluation struct {
	Partial int     `json:"partial"`
	Rubric  Rubric  `json:"rubric"`
	Grade   float64 `json:"grade"`
}

var ErrWeightsTotal = errors.New("weights must add up to 100")

// ValidateWeights checks a weighting scheme before it is saved.
func ValidateWeights(weights []Weight) error {
	seen := map[Rubric]bool{}
	total := 0.0
	for _, w := range weights {
		r, ok := ParseRubric(string(w.Rubric))
		if !ok {
			return fmt.Errorf("unknown rubric %q", w.Rubric)
		}
		if seen[r] {
			return fmt.Errorf("rubric %q listed twice", r)
		}
		if w.Percent < 0 || w.Percent > 100 {
			return fmt.Errorf("rubric %q: percent %.2f out of range", r, w.Percent)
		}
		seen[r] = true
		total += w.Percent
	}
	if math.Abs(total-100) > 0.001 {
		return fmt.Errorf("%w: got %.2f", ErrWeightsTotal, total)
	}
	return nil
}

// WeightsFromSchemes converts the grading schemes of a course group. Unknown
// scheme types are ignored and missing rubrics weigh zero.
func WeightsFromSchemes(schemes []common.GradingSchemeDTO) []Weight {
	byRubric := map[Rubric]float64{}
	for _, s := range schemes {
		if r, ok := ParseRubric(s.Type); ok {
			byRubric[r] = s.Percentage
		}
	}
	weights := make([]Weight, 0, len(Rubrics))
	for _, r := range Rubrics {
		weights = append(weights, Weight{Rubric: r, Percent: byRubric[r]})
	}
	return weights
}
