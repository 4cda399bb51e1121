// Package grading computes partial and final averages from weighted rubric
// grades.
package grading

import "math"

type Averages struct {
	Partial1 float64 `json:"parcial1"`
	Partial2 float64 `json:"parcial2"`
	Partial3 float64 `json:"parcial3"`
	Final    float64 `json:"final"`
}

func (a Averages) Partials() []float64 {
	return []float64{a.Partial1, a.Partial2, a.Partial3}
}

// CalcAverages returns the weighted average of each partial and the final
// average. Rubrics with no grade above zero are left out and the remaining
// weights are renormalized. The final average is the mean of the partials
// that have a grade.
func CalcAverages(evaluations []Evaluation, weights []Weight) Averages {
	var partials [3]float64

	for p := 1; p <= 3; p++ {
		sum, total := 0.0, 0.0
		for _, w := range weights {
			e := findEvaluation(evaluations, p, w.Rubric)
			if e == nil || e.Grade <= 0 {
				continue
			}
			sum += e.Grade * (w.Percent / 100)
			total += w.Percent
		}
		if total > 0 {
			partials[p-1] = Round1((sum / total) * 100)
		}
	}

	avg := Averages{Partial1: partials[0], Partial2: partials[1], Partial3: partials[2]}
	if final, ok := MeanPositive(partials[:]); ok {
		avg.Final = Round1(final)
	}
	return avg
}

func findEvaluation(evaluations []Evaluation, partial int, rubric Rubric) *Evaluation {
	for i := range evaluations {
		if evaluations[i].Partial == partial && evaluations[i].Rubric.normal() == rubric.normal() {
			return &evaluations[i]
		}
	}
	return nil
}

// MeanPositive averages the values greater than zero.
func MeanPositive(values []float64) (float64, bool) {
	sum, n := 0.0, 0
	for _, v := range values {
		if v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Round1 rounds half up to one decimal.
func Round1(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// Round2 rounds half up to two decimals.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// AttendancePercentage returns the whole percentage of attended classes,
// or 0 when no class was held.
func AttendancePercentage(total, attended int) int {
	if total == 0 {
		return 0
	}
	return int(math.Floor(float64(attended)/float64(total)*100 + 0.5))
}
