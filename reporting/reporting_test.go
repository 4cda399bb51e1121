package reporting

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"uamvh.cloud/escolar/escolar/v1/common"
)

func boleta(name, reg string, courses ...common.BoletaCourseDTO) common.BoletaDTO {
	return common.BoletaDTO{
		FullName:           name,
		RegistrationNumber: reg,
		GroupName:          "2A",
		Semester:           2,
		PeriodName:         "Ene-Jun 2025",
		Courses:            courses,
	}
}

func course(name string, p1, p2, p3, ord, ext float64) common.BoletaCourseDTO {
	return common.BoletaCourseDTO{
		Name: name,
		Grades: []common.BoletaGradeDTO{
			{Partial: 1, Grade: p1},
			{Partial: 2, Grade: p2},
			{Partial: 3, Grade: p3},
		},
		FinalGrades: common.BoletaFinalDTO{GradeOrdinary: ord, GradeExtraordinary: ext},
	}
}

func TestCourseFinal(t *testing.T) {
	tests := []struct {
		name               string
		p1, p2, p3, o, ext float64
		want               float64
	}{
		{"extraordinary wins", 5, 5, 5, 6, 8, 8},
		{"ordinary", 6, 6, 6, 8, 0, 8},
		{"mean of graded partials", 8, 9, 0, 0, 0, 8.5},
		{"nothing graded", 0, 0, 0, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CourseFinal(tt.p1, tt.p2, tt.p3, tt.o, tt.ext), 1e-9)
		})
	}
}

func TestExportConcentradoRoundTrip(t *testing.T) {
	boletas := []common.BoletaDTO{
		boleta("Ana Ruiz", "2024001",
			course("Matemáticas", 8, 9, 7, 0, 0),
			course("Historia", 6, 6, 6, 8, 0)),
		boleta("Luis Pérez", "2024002",
			course("Matemáticas", 5, 6, 4, 6, 7.5)),
	}

	var buf bytes.Buffer
	require.NoError(t, ExportConcentrado(&buf, boletas))

	c, err := ParseConcentrado(bytes.NewReader(buf.Bytes()), "2A.xlsx")
	require.NoError(t, err)

	assert.Equal(t, "2A", c.GroupName)
	assert.Equal(t, 2, c.Semester)
	assert.Equal(t, "Ene-Jun 2025", c.PeriodName)
	assert.Equal(t, []string{"Matemáticas", "Historia"}, c.Courses)
	require.Len(t, c.Students, 2)

	ana := c.Students[0]
	assert.Equal(t, "Ana Ruiz", ana.FullName)
	assert.Equal(t, "2024001", ana.RegistrationNumber)
	assert.Equal(t, CourseGrade{P1: 8, P2: 9, P3: 7, Final: 8}, ana.Courses["Matemáticas"])
	assert.Equal(t, CourseGrade{P1: 6, P2: 6, P3: 6, Ord: 8, Final: 8}, ana.Courses["Historia"])
	assert.InDelta(t, 8, ana.Average, 1e-9)

	luis := c.Students[1]
	assert.InDelta(t, 7.5, luis.Courses["Matemáticas"].Final, 1e-9)
	assert.Zero(t, luis.Courses["Historia"].Final)
	assert.InDelta(t, 7.5, luis.Average, 1e-9)
}

func TestExportConcentradoWithoutBoletas(t *testing.T) {
	var buf bytes.Buffer
	assert.ErrorIs(t, ExportConcentrado(&buf, nil), ErrNoBoletas)
	assert.Zero(t, buf.Len())
}

func TestParseConcentradoRejectsUnknownLayout(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A6", "Lista de asistencia"))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	_, err := ParseConcentrado(&buf, "asistencia.xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asistencia.xlsx")
}

func TestComputeStatistics(t *testing.T) {
	concentrados := []Concentrado{
		{
			GroupName: "2A",
			Semester:  2,
			Courses:   []string{"Matemáticas", "Historia"},
			Students: []StudentGrades{
				{FullName: "Ana", Average: 8, Courses: map[string]CourseGrade{
					"Matemáticas": {Final: 8},
					"Historia":    {Final: 8},
				}},
				{FullName: "Luis", Average: 7.5, Courses: map[string]CourseGrade{
					"Matemáticas": {Final: 7.5},
				}},
			},
		},
		{
			GroupName: "1A",
			Semester:  1,
			Courses:   []string{"Matemáticas"},
			Students: []StudentGrades{
				{FullName: "Eva", Average: 6, Courses: map[string]CourseGrade{"Matemáticas": {Final: 6}}},
				{FullName: "Sin calificar", Courses: map[string]CourseGrade{}},
			},
		},
	}

	stats := ComputeStatistics(concentrados)

	assert.Equal(t, []SemesterAverage{{Semester: 1, Average: 6}, {Semester: 2, Average: 7.75}}, stats.Averages)
	require.Len(t, stats.Semesters, 2)

	first := stats.Semesters[0]
	assert.Equal(t, map[string]int{"Matemáticas": 1}, first.FailingCourses)

	second := stats.Semesters[1]
	assert.Equal(t, []string{"Matemáticas", "Historia"}, second.Courses)
	require.Len(t, second.Groups, 1)
	assert.Equal(t, GroupStatistics{
		GroupName:      "2A",
		Average:        7.75,
		CourseAverages: map[string]float64{"Matemáticas": 7.75, "Historia": 8},
	}, second.Groups[0])
	assert.Equal(t, map[string]int{"Matemáticas": 0, "Historia": 0}, second.FailingCourses)
}

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := ComputeStatistics(nil)
	assert.Empty(t, stats.Averages)
	assert.Empty(t, stats.Semesters)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "MATRICULA", normalize(" Matrícula "))
	assert.Equal(t, "NOMBRE COMPLETO", normalize("nombre   completo"))
	assert.Equal(t, "PERIODO", normalize("Período"))
}

func TestNumber(t *testing.T) {
	assert.Equal(t, 8.5, number("8,5"))
	assert.Equal(t, 9.0, number(" 9 "))
	assert.Zero(t, number("NP"))
	assert.Nil(t, optionalNumber(""))
	assert.Equal(t, 0.0, *optionalNumber("0"))
}

// helpers shared with the import tests

func workbook(t *testing.T, cells map[string]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for axis, v := range cells {
		require.NoError(t, f.SetCellValue("Sheet1", axis, v))
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	return &buf
}

func hasWarning(warnings []string, parts ...string) bool {
	for _, w := range warnings {
		ok := true
		for _, p := range parts {
			if !strings.Contains(w, p) {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
