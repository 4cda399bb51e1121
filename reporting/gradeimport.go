package reporting

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"uamvh.cloud/escolar/escolar/v1/common"
)

// Per-course grade sheet layout.
const (
	gradeGroupCell   = "C5"
	gradeCourseCell  = "C6"
	gradeTeacherCell = "C7"
	gradeFirstRow    = 10
)

// Columns of the per-course grade sheet, 1-based.
const (
	colRegistration = 2  // B
	colName         = 3  // C
	colPartial1     = 4  // D
	colOrdinary     = 10 // J
	colExtra        = 12 // L
)

type NamedFile struct {
	Name   string
	Reader io.Reader
}

// GradeImport is the per-student aggregation of a set of course sheets.
type GradeImport struct {
	Boletas  []common.BoletaDTO `json:"boletas"`
	Warnings []string           `json:"warnings"`
	Errors   []string           `json:"errors"`
}

type courseSheet struct {
	group   string
	course  string
	teacher string
	rows    [][]string
}

func readCourseSheet(r io.Reader) (*courseSheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheet, rows, err := sheetRows(f, "")
	if err != nil {
		return nil, err
	}
	value := func(axis string) (string, error) {
		v, err := f.GetCellValue(sheet, axis)
		if err != nil {
			return "", fmt.Errorf("estructura inválida (faltan encabezados): %w", err)
		}
		return strings.TrimSpace(v), nil
	}

	cs := &courseSheet{rows: rows}
	if cs.group, err = value(gradeGroupCell); err != nil {
		return nil, err
	}
	if cs.course, err = value(gradeCourseCell); err != nil {
		return nil, err
	}
	if cs.teacher, err = value(gradeTeacherCell); err != nil {
		return nil, err
	}
	return cs, nil
}

// ImportGradeFiles merges the course sheets into one boleta per student.
// A file that cannot be read is reported in Errors and skipped.
func ImportGradeFiles(files []NamedFile, period string, semester int) GradeImport {
	out := GradeImport{Boletas: []common.BoletaDTO{}, Warnings: []string{}, Errors: []string{}}
	index := map[string]int{}

	for _, file := range files {
		cs, err := readCourseSheet(file.Reader)
		if errors.Is(err, ErrNoSheets) {
			out.Warnings = append(out.Warnings, fmt.Sprintf("Archivo %q: no contiene hojas de cálculo válidas", file.Name))
			continue
		}
		if err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("Error procesando archivo %q: %v", file.Name, err))
			continue
		}
		if cs.course == "" {
			out.Warnings = append(out.Warnings, fmt.Sprintf("Archivo %q: no se encontró nombre de asignatura", file.Name))
		}

		seen := map[string]bool{}
		for row := gradeFirstRow; ; row++ {
			reg := cell(cs.rows, colRegistration, row)
			if reg == "" {
				break
			}
			if seen[reg] {
				out.Warnings = append(out.Warnings, fmt.Sprintf("Archivo %q: matrícula %s duplicada en la fila %d", file.Name, reg, row))
				continue
			}
			seen[reg] = true

			name := cell(cs.rows, colName, row)
			if name == "" {
				out.Warnings = append(out.Warnings, fmt.Sprintf("Archivo %q: matrícula %s sin nombre en fila %d", file.Name, reg, row))
				continue
			}

			course := courseFromRow(cs.rows, row, cs.course)
			i, ok := index[reg]
			if !ok {
				index[reg] = len(out.Boletas)
				out.Boletas = append(out.Boletas, common.BoletaDTO{
					FullName:           name,
					RegistrationNumber: reg,
					GroupName:          cs.group,
					Semester:           semester,
					PeriodName:         period,
					Courses:            []common.BoletaCourseDTO{course},
				})
				continue
			}

			existing := &out.Boletas[i]
			if existing.FullName != name {
				if len([]rune(name)) > len([]rune(existing.FullName)) {
					out.Warnings = append(out.Warnings, fmt.Sprintf("Matrícula %s: nombre diferente detectado. Original: %q, nuevo: %q. Se usará el más completo.", reg, existing.FullName, name))
					existing.FullName = name
				} else {
					out.Warnings = append(out.Warnings, fmt.Sprintf("Matrícula %s: nombre diferente detectado. Original: %q, nuevo: %q. Se mantiene el original.", reg, existing.FullName, name))
				}
			}
			if cs.group != "" && existing.GroupName != cs.group {
				out.Warnings = append(out.Warnings, fmt.Sprintf("Matrícula %s: diferente grupo detectado. Original: %q, nuevo: %q. Se mantiene el original.", reg, existing.GroupName, cs.group))
			}
			if prev := findCourse(existing.Courses, course.Name); prev != nil {
				out.Warnings = append(out.Warnings, fmt.Sprintf("Matrícula %s: materia %q duplicada. Se reemplazará con los datos más recientes.", reg, course.Name))
				*prev = course
			} else {
				existing.Courses = append(existing.Courses, course)
			}
		}
	}

	var empty []string
	for _, b := range out.Boletas {
		if len(b.Courses) == 0 {
			empty = append(empty, b.RegistrationNumber)
		}
	}
	if len(empty) > 0 {
		out.Warnings = append(out.Warnings, fmt.Sprintf("%d alumno(s) sin materias: %s", len(empty), strings.Join(empty, ", ")))
	}
	return out
}

func courseFromRow(rows [][]string, row int, name string) common.BoletaCourseDTO {
	c := common.BoletaCourseDTO{Name: name}
	for p := 0; p < 3; p++ {
		c.Grades = append(c.Grades, common.BoletaGradeDTO{
			Partial: p + 1,
			Grade:   number(cell(rows, colPartial1+p, row)),
		})
	}
	c.FinalGrades = common.BoletaFinalDTO{
		GradeOrdinary:      number(cell(rows, colOrdinary, row)),
		GradeExtraordinary: number(cell(rows, colExtra, row)),
	}
	return c
}
