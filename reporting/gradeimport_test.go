package reporting

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type gradeRow struct {
	reg, name       string
	p1, p2, p3, avg any
	ordinary, extra any
}

func courseFile(t *testing.T, name, group, courseName string, rows ...gradeRow) NamedFile {
	t.Helper()
	cells := map[string]any{
		"C5": group,
		"C6": courseName,
		"C7": "Mtra. López",
	}
	for i, r := range rows {
		n := gradeFirstRow + i
		put := func(col string, v any) {
			if v != nil {
				cells[col+strconv.Itoa(n)] = v
			}
		}
		put("B", r.reg)
		put("C", r.name)
		put("D", r.p1)
		put("E", r.p2)
		put("F", r.p3)
		put("G", r.avg)
		put("J", r.ordinary)
		put("L", r.extra)
	}
	return NamedFile{Name: name, Reader: workbook(t, cells)}
}

func TestImportGradeFiles(t *testing.T) {
	files := []NamedFile{
		courseFile(t, "matematicas.xlsx", "2A", "Matemáticas",
			gradeRow{reg: "2024001", name: "Ana Ruiz", p1: 8, p2: 9, p3: 7, avg: 8, ordinary: 8},
			gradeRow{reg: "2024002", name: "Luis Pérez", p1: 5, p2: 6, p3: 4, avg: 5, extra: 7},
			gradeRow{reg: "2024001", name: "Ana Ruiz", p1: 1},
		),
		courseFile(t, "historia.xlsx", "2B", "Historia",
			gradeRow{reg: "2024001", name: "Ana Ruiz López", p1: 9, p2: 9, p3: 9, avg: 9},
			gradeRow{reg: "2024003"},
		),
		courseFile(t, "matematicas-v2.xlsx", "2A", "Matemáticas",
			gradeRow{reg: "2024002", name: "Luis", p1: 6, p2: 6, p3: 6, avg: 6, ordinary: 6},
		),
		{Name: "roto.xlsx", Reader: bytes.NewReader([]byte("not a workbook"))},
	}

	got := ImportGradeFiles(files, "Ene-Jun 2025", 2)

	require.Len(t, got.Boletas, 2)
	ana := got.Boletas[0]
	assert.Equal(t, "2024001", ana.RegistrationNumber)
	assert.Equal(t, "Ana Ruiz López", ana.FullName)
	assert.Equal(t, "2A", ana.GroupName)
	assert.Equal(t, "Ene-Jun 2025", ana.PeriodName)
	assert.Equal(t, 2, ana.Semester)
	require.Len(t, ana.Courses, 2)
	assert.Equal(t, "Matemáticas", ana.Courses[0].Name)
	assert.Equal(t, 8.0, ana.Courses[0].FinalGrades.GradeOrdinary)
	assert.Equal(t, 9.0, ana.Courses[0].Grades[1].Grade)
	assert.Equal(t, "Historia", ana.Courses[1].Name)

	luis := got.Boletas[1]
	assert.Equal(t, "Luis Pérez", luis.FullName)
	require.Len(t, luis.Courses, 1)
	assert.Equal(t, 6.0, luis.Courses[0].FinalGrades.GradeOrdinary)
	assert.Zero(t, luis.Courses[0].FinalGrades.GradeExtraordinary)

	w := got.Warnings
	assert.True(t, hasWarning(w, "matematicas.xlsx", "2024001", "duplicada en la fila 12"))
	assert.True(t, hasWarning(w, "2024001", "Se usará el más completo"))
	assert.True(t, hasWarning(w, "2024001", "diferente grupo", "2B"))
	assert.True(t, hasWarning(w, "historia.xlsx", "2024003", "sin nombre"))
	assert.True(t, hasWarning(w, "2024002", "Se mantiene el original"))
	assert.True(t, hasWarning(w, "2024002", "Matemáticas", "duplicada"))
	assert.Len(t, w, 6)

	require.Len(t, got.Errors, 1)
	assert.Contains(t, got.Errors[0], "roto.xlsx")
}

func TestImportGradeFilesMissingCourseName(t *testing.T) {
	got := ImportGradeFiles([]NamedFile{
		courseFile(t, "sin-materia.xlsx", "2A", "",
			gradeRow{reg: "2024001", name: "Ana Ruiz", p1: 8}),
	}, "Ene-Jun 2025", 2)

	require.Len(t, got.Boletas, 1)
	assert.True(t, hasWarning(got.Warnings, "sin-materia.xlsx", "asignatura"))
	assert.Empty(t, got.Errors)
}

func TestImportedBoletasExport(t *testing.T) {
	got := ImportGradeFiles([]NamedFile{
		courseFile(t, "matematicas.xlsx", "2A", "Matemáticas",
			gradeRow{reg: "2024001", name: "Ana Ruiz", p1: 8, p2: 9, p3: 7, ordinary: 8}),
	}, "Ene-Jun 2025", 2)

	var buf bytes.Buffer
	require.NoError(t, ExportConcentrado(&buf, got.Boletas))
	c, err := ParseConcentrado(&buf, "2A.xlsx")
	require.NoError(t, err)
	require.Len(t, c.Students, 1)
	assert.InDelta(t, 8, c.Students[0].Average, 1e-9)
}
