package reporting

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"uamvh.cloud/escolar/escolar/v1/common"
	"uamvh.cloud/escolar/grading"
)

const schoolName = "Unidad Académica Multidisciplinaria 'VALLE HERMOSO'"

var ErrNoBoletas = errors.New("no hay boletas disponibles para este grupo")

var subHeaders = []string{"P1", "P2", "P3", "Ord", "Ext"}

type exportStyles struct {
	title, subtitle, header, course, sub, name, value, failing int
}

func thinBorder() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "000000", Style: 1},
		{Type: "top", Color: "000000", Style: 1},
		{Type: "right", Color: "000000", Style: 1},
		{Type: "bottom", Color: "000000", Style: 1},
	}
}

func newExportStyles(f *excelize.File) (exportStyles, error) {
	center := &excelize.Alignment{Horizontal: "center", Vertical: "center"}
	fill := func(color string) excelize.Fill {
		return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{color}}
	}
	defs := []*excelize.Style{
		{Font: &excelize.Font{Bold: true, Size: 14}, Alignment: center},
		{Font: &excelize.Font{Bold: true, Size: 12}, Alignment: center},
		{Font: &excelize.Font{Bold: true, Color: "FFFFFF"}, Fill: fill("0066CC"), Alignment: center, Border: thinBorder()},
		{Font: &excelize.Font{Bold: true, Color: "FFFFFF"}, Fill: fill("BC4B26"), Alignment: center, Border: thinBorder()},
		{Font: &excelize.Font{Bold: true, Color: "FFFFFF"}, Fill: fill("D05F27"), Alignment: center, Border: thinBorder()},
		{Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"}, Border: thinBorder()},
		{Alignment: center, Border: thinBorder()},
		{Font: &excelize.Font{Color: "FF0000"}, Alignment: center, Border: thinBorder()},
	}
	ids := make([]int, len(defs))
	for i, d := range defs {
		id, err := f.NewStyle(d)
		if err != nil {
			return exportStyles{}, err
		}
		ids[i] = id
	}
	return exportStyles{ids[0], ids[1], ids[2], ids[3], ids[4], ids[5], ids[6], ids[7]}, nil
}

// ExportConcentrado writes the concentrado of one group: a row per
// student with P1 P2 P3 Ord Ext for every course and the overall average.
// Zero grades are left blank and grades under 7 are shown in red.
func ExportConcentrado(w io.Writer, boletas []common.BoletaDTO) error {
	if len(boletas) == 0 {
		return ErrNoBoletas
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := SheetName
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	styles, err := newExportStyles(f)
	if err != nil {
		return fmt.Errorf("create styles: %w", err)
	}

	landscape := "landscape"
	a4 := 9
	fit := 1
	if err := f.SetPageLayout(sheet, &excelize.PageLayoutOptions{Size: &a4, Orientation: &landscape, FitToWidth: &fit}); err != nil {
		return err
	}

	first := boletas[0]
	sw := sheetWriter{f: f, sheet: sheet}
	sw.merge(1, 5, 6, 5)
	sw.set(1, 5, schoolName, styles.title)
	sw.merge(1, subtitleRow, 6, subtitleRow)
	sw.set(1, subtitleRow, fmt.Sprintf("Calificaciones - Grupo: %s | Semestre: %d | Período: %s", first.GroupName, first.Semester, first.PeriodName), styles.subtitle)

	var courses []string
	seen := map[string]bool{}
	for _, b := range boletas {
		for _, c := range b.Courses {
			if !seen[c.Name] {
				seen[c.Name] = true
				courses = append(courses, c.Name)
			}
		}
	}

	sw.set(1, courseRow, "Alumno", styles.header)
	sw.set(2, courseRow, "Matrícula", styles.header)
	sw.style(1, courseRow+1, 2, courseRow+1, styles.header)
	sw.merge(1, courseRow, 1, courseRow+1)
	sw.merge(2, courseRow, 2, courseRow+1)

	col := firstCourseCol
	starts := map[string]int{}
	for _, name := range courses {
		starts[name] = col
		sw.set(col, courseRow, name, styles.course)
		sw.style(col+1, courseRow, col+courseWidth-1, courseRow, styles.course)
		sw.merge(col, courseRow, col+courseWidth-1, courseRow)
		for i, h := range subHeaders {
			sw.set(col+i, courseRow+1, h, styles.sub)
		}
		col += courseWidth
	}
	averageCol := col
	sw.set(averageCol, courseRow, averageHeader, styles.header)
	sw.style(averageCol, courseRow+1, averageCol, courseRow+1, styles.header)
	sw.merge(averageCol, courseRow, averageCol, courseRow+1)

	row := firstDataRow
	for _, b := range boletas {
		sw.set(1, row, b.FullName, styles.name)
		sw.set(2, row, b.RegistrationNumber, styles.value)

		finals := make([]float64, 0, len(courses))
		for _, name := range courses {
			start := starts[name]
			course := findCourse(b.Courses, name)
			if course == nil {
				sw.style(start, row, start+courseWidth-1, row, styles.value)
				continue
			}
			values := []float64{
				partialGrade(course.Grades, 1),
				partialGrade(course.Grades, 2),
				partialGrade(course.Grades, 3),
				course.FinalGrades.GradeOrdinary,
				course.FinalGrades.GradeExtraordinary,
			}
			for i, v := range values {
				sw.grade(start+i, row, v, styles)
			}
			finals = append(finals, CourseFinal(values[0], values[1], values[2], values[3], values[4]))
		}
		avg, _ := grading.MeanPositive(finals)
		sw.grade(averageCol, row, avg, styles)
		row++
	}

	sw.width("A", "A", 30)
	sw.width("B", "B", 15)
	last, _ := excelize.ColumnNumberToName(averageCol)
	sw.width("C", last, 8)

	if sw.err != nil {
		return sw.err
	}
	return f.Write(w)
}

func findCourse(courses []common.BoletaCourseDTO, name string) *common.BoletaCourseDTO {
	for i := range courses {
		if courses[i].Name == name {
			return &courses[i]
		}
	}
	return nil
}

func partialGrade(grades []common.BoletaGradeDTO, partial int) float64 {
	for _, g := range grades {
		if g.Partial == partial {
			return g.Grade
		}
	}
	return 0
}

// sheetWriter keeps the first error of a run of cell writes.
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (s *sheetWriter) set(col, row int, v any, style int) {
	if s.err != nil {
		return
	}
	name := cellName(col, row)
	if s.err = s.f.SetCellValue(s.sheet, name, v); s.err != nil {
		return
	}
	s.err = s.f.SetCellStyle(s.sheet, name, name, style)
}

func (s *sheetWriter) grade(col, row int, v float64, styles exportStyles) {
	style := styles.value
	if v > 0 && v < FailingGrade {
		style = styles.failing
	}
	if v <= 0 {
		s.style(col, row, col, row, style)
		return
	}
	s.set(col, row, grading.Round2(v), style)
}

func (s *sheetWriter) style(c1, r1, c2, r2, style int) {
	if s.err != nil {
		return
	}
	s.err = s.f.SetCellStyle(s.sheet, cellName(c1, r1), cellName(c2, r2), style)
}

func (s *sheetWriter) merge(c1, r1, c2, r2 int) {
	if s.err != nil {
		return
	}
	s.err = s.f.MergeCell(s.sheet, cellName(c1, r1), cellName(c2, r2))
}

func (s *sheetWriter) width(from, to string, w float64) {
	if s.err != nil {
		return
	}
	s.err = s.f.SetColWidth(s.sheet, from, to, w)
}
