package grading

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uamvh.cloud/escolar/escolar/v1/common"
)

var halfAndHalf = []Weight{
	{Rubric: Actividades, Percent: 50},
	{Rubric: Examen, Percent: 50},
}

func TestCalcAverages(t *testing.T) {
	tests := []struct {
		name        string
		evaluations []Evaluation
		weights     []Weight
		expected    Averages
	}{
		{
			name:     "No evaluations",
			weights:  halfAndHalf,
			expected: Averages{},
		},
		{
			name: "Uniform grade across all rubrics",
			evaluations: []Evaluation{
				{Partial: 1, Rubric: Asistencia, Grade: 8},
				{Partial: 1, Rubric: Actividades, Grade: 8},
				{Partial: 1, Rubric: Evidencias, Grade: 8},
				{Partial: 1, Rubric: Producto, Grade: 8},
				{Partial: 1, Rubric: Examen, Grade: 8},
			},
			weights: []Weight{
				{Rubric: Asistencia, Percent: 10},
				{Rubric: Actividades, Percent: 20},
				{Rubric: Evidencias, Percent: 20},
				{Rubric: Producto, Percent: 20},
				{Rubric: Examen, Percent: 30},
			},
			expected: Averages{Partial1: 8, Final: 8},
		},
		{
			name: "Missing rubric is renormalized",
			evaluations: []Evaluation{
				{Partial: 1, Rubric: Actividades, Grade: 9},
			},
			weights:  halfAndHalf,
			expected: Averages{Partial1: 9, Final: 9},
		},
		{
			name: "Zero grade counts as missing",
			evaluations: []Evaluation{
				{Partial: 2, Rubric: Actividades, Grade: 6},
				{Partial: 2, Rubric: Examen, Grade: 0},
			},
			weights:  halfAndHalf,
			expected: Averages{Partial2: 6, Final: 6},
		},
		{
			name: "Final averages only graded partials",
			evaluations: []Evaluation{
				{Partial: 1, Rubric: Actividades, Grade: 9},
				{Partial: 1, Rubric: Examen, Grade: 7},
				{Partial: 2, Rubric: Actividades, Grade: 6},
			},
			weights:  halfAndHalf,
			expected: Averages{Partial1: 8, Partial2: 6, Final: 7},
		},
		{
			name: "Final rounds half up",
			evaluations: []Evaluation{
				{Partial: 1, Rubric: Actividades, Grade: 8},
				{Partial: 1, Rubric: Examen, Grade: 8},
				{Partial: 3, Rubric: Actividades, Grade: 9},
				{Partial: 3, Rubric: Examen, Grade: 8},
			},
			weights:  halfAndHalf,
			expected: Averages{Partial1: 8, Partial3: 8.5, Final: 8.3},
		},
		{
			name: "Rubric without weight is ignored",
			evaluations: []Evaluation{
				{Partial: 1, Rubric: Producto, Grade: 2},
				{Partial: 1, Rubric: Examen, Grade: 10},
			},
			weights:  halfAndHalf,
			expected: Averages{Partial1: 10, Final: 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CalcAverages(tt.evaluations, tt.weights))
		})
	}
}

func TestCalcAveragesStaysWithinGradeRange(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	weights := []Weight{
		{Rubric: Asistencia, Percent: 10},
		{Rubric: Actividades, Percent: 25},
		{Rubric: Evidencias, Percent: 15},
		{Rubric: Producto, Percent: 20},
		{Rubric: Examen, Percent: 30},
	}

	for i := 0; i < 500; i++ {
		var evals []Evaluation
		for p := 1; p <= 3; p++ {
			for _, r := range Rubrics {
				if rnd.Intn(4) == 0 {
					continue
				}
				evals = append(evals, Evaluation{Partial: p, Rubric: r, Grade: float64(rnd.Intn(101)) / 10})
			}
		}

		avg := CalcAverages(evals, weights)
		for _, v := range append(avg.Partials(), avg.Final) {
			assert.GreaterOrEqual(t, v, 0.0)
			assert.LessOrEqual(t, v, 10.0)
		}
	}
}

func TestDetermineSituation(t *testing.T) {
	tests := []struct {
		final     float64
		exemption float64
		expected  Situation
	}{
		{8.0, DefaultExemption, Exentado},
		{10, DefaultExemption, Exentado},
		{7.99, DefaultExemption, Ordinario},
		{6.0, DefaultExemption, Ordinario},
		{5.99, DefaultExemption, Extraordinario},
		{0.1, DefaultExemption, Extraordinario},
		{0, DefaultExemption, NA},
		{8.5, 9, Ordinario},
		{9, 9, Exentado},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, DetermineSituation(tt.final, tt.exemption), "final %.2f exemption %.1f", tt.final, tt.exemption)
	}
	assert.Equal(t, "N/A", NA.Label())
}

func TestAttendancePercentage(t *testing.T) {
	assert.Equal(t, 0, AttendancePercentage(0, 0))
	assert.Equal(t, 67, AttendancePercentage(3, 2))
	assert.Equal(t, 88, AttendancePercentage(8, 7))
	assert.Equal(t, 100, AttendancePercentage(10, 10))
}

func TestRounding(t *testing.T) {
	assert.Equal(t, 8.3, Round1(8.25))
	assert.Equal(t, 8.2, Round1(8.24))
	assert.Equal(t, 7.13, Round2(7.125))
}

func TestValidateWeights(t *testing.T) {
	require.NoError(t, ValidateWeights(halfAndHalf))

	err := ValidateWeights([]Weight{{Rubric: Examen, Percent: 60}})
	assert.ErrorIs(t, err, ErrWeightsTotal)

	err = ValidateWeights([]Weight{{Rubric: Examen, Percent: 50}, {Rubric: Examen, Percent: 50}})
	assert.ErrorContains(t, err, "twice")

	err = ValidateWeights([]Weight{{Rubric: "Examen", Percent: 50}, {Rubric: " examen", Percent: 50}})
	assert.ErrorContains(t, err, "twice")

	err = ValidateWeights([]Weight{{Rubric: "tareas", Percent: 100}})
	assert.ErrorContains(t, err, "unknown rubric")
}

func TestWeightsFromSchemes(t *testing.T) {
	weights := WeightsFromSchemes([]common.GradingSchemeDTO{
		{Type: "Examen", Percentage: 40},
		{Type: "ACTIVIDADES", Percentage: 60},
		{Type: "otro", Percentage: 15},
	})

	require.Len(t, weights, len(Rubrics))
	assert.Equal(t, Weight{Rubric: Asistencia, Percent: 0}, weights[0])
	assert.Equal(t, Weight{Rubric: Actividades, Percent: 60}, weights[1])
	assert.Equal(t, Weight{Rubric: Examen, Percent: 40}, weights[4])
	assert.NoError(t, ValidateWeights(weights))
}
