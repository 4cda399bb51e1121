// Package reporting reads and writes the school's grade spreadsheets:
// concentrados (one sheet per group with every course), per-course grade
// sheets and student rosters.
package reporting

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/xuri/excelize/v2"
	"uamvh.cloud/escolar/grading"
)

const (
	SheetName = "Calificaciones"

	subtitleRow    = 6
	courseRow      = 8
	firstDataRow   = 10
	firstCourseCol = 3
	courseWidth    = 5
	averageHeader  = "Promedio"
)

var (
	ErrNoSheets = errors.New("workbook has no sheets")

	groupPattern    = regexp.MustCompile(`Grupo:\s*(.+?)\s*\|`)
	semesterPattern = regexp.MustCompile(`Semestre:\s*(\d+)`)
	periodPattern   = regexp.MustCompile(`Período:\s*(.+)$`)
)

// CourseGrade holds the five columns of one course plus the derived
// final grade.
type CourseGrade struct {
	P1    float64 `json:"p1"`
	P2    float64 `json:"p2"`
	P3    float64 `json:"p3"`
	Ord   float64 `json:"ord"`
	Ext   float64 `json:"ext"`
	Final float64 `json:"finalGrade"`
}

type StudentGrades struct {
	FullName           string                 `json:"fullName"`
	RegistrationNumber string                 `json:"registrationNumber"`
	Courses            map[string]CourseGrade `json:"courseGrades"`
	Average            float64                `json:"promedio"`
}

type Concentrado struct {
	GroupName  string          `json:"groupName"`
	Semester   int             `json:"semester"`
	PeriodName string          `json:"periodName"`
	Courses    []string        `json:"courses"`
	Students   []StudentGrades `json:"students"`
}

// CourseFinal is the grade that counts for a course: extraordinary when
// present, else ordinary, else the mean of the graded partials.
func CourseFinal(p1, p2, p3, ord, ext float64) float64 {
	switch {
	case ext > 0:
		return ext
	case ord > 0:
		return ord
	}
	mean, _ := grading.MeanPositive([]float64{p1, p2, p3})
	return mean
}

func ParseConcentrado(r io.Reader, name string) (*Concentrado, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	_, rows, err := sheetRows(f, SheetName)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	subtitle := cell(rows, 1, subtitleRow)
	group := groupPattern.FindStringSubmatch(subtitle)
	semester := semesterPattern.FindStringSubmatch(subtitle)
	if group == nil || semester == nil {
		return nil, fmt.Errorf("no se pudo extraer información del archivo %s: se esperaba \"Calificaciones - Grupo: X | Semestre: Y | Período: Z\" en la fila %d", name, subtitleRow)
	}

	c := &Concentrado{GroupName: group[1]}
	c.Semester, _ = strconv.Atoi(semester[1])
	if period := periodPattern.FindStringSubmatch(subtitle); period != nil {
		c.PeriodName = period[1]
	}

	var starts []int
	width := 0
	if len(rows) >= courseRow {
		width = len(rows[courseRow-1])
	}
	for col := firstCourseCol; col <= width+courseWidth; {
		v := cell(rows, col, courseRow)
		if v == averageHeader {
			break
		}
		if v == "" {
			col++
			continue
		}
		c.Courses = append(c.Courses, v)
		starts = append(starts, col)
		col += courseWidth
	}

	averageCol := firstCourseCol
	if len(starts) > 0 {
		averageCol = starts[len(starts)-1] + courseWidth
	}

	for row := firstDataRow; row <= len(rows); row++ {
		fullName := cell(rows, 1, row)
		if fullName == "" {
			break
		}
		s := StudentGrades{
			FullName:           fullName,
			RegistrationNumber: cell(rows, 2, row),
			Courses:            make(map[string]CourseGrade, len(c.Courses)),
			Average:            number(cell(rows, averageCol, row)),
		}
		for i, course := range c.Courses {
			col := starts[i]
			g := CourseGrade{
				P1:  number(cell(rows, col, row)),
				P2:  number(cell(rows, col+1, row)),
				P3:  number(cell(rows, col+2, row)),
				Ord: number(cell(rows, col+3, row)),
				Ext: number(cell(rows, col+4, row)),
			}
			g.Final = CourseFinal(g.P1, g.P2, g.P3, g.Ord, g.Ext)
			s.Courses[course] = g
		}
		c.Students = append(c.Students, s)
	}
	return c, nil
}
