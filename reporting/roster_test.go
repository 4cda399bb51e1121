package reporting

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRosterXLSX(t *testing.T) {
	buf := workbook(t, map[string]any{
		"A1": "Lista de alumnos 2025",
		"A3": "Matrícula",
		"B3": "Nombre Completo",
		"A4": "2024001",
		"B4": "Ana Ruiz",
		"A5": "2024002",
		"B5": "Luis Pérez",
		"A6": "2024001",
		"B6": "Ana Ruiz otra vez",
		"A7": "2024003",
	})

	roster, err := ParseRoster(buf, "alumnos.xlsx")
	require.NoError(t, err)

	assert.Equal(t, []RosterEntry{
		{Row: 4, RegistrationNumber: "2024001", FullName: "Ana Ruiz"},
		{Row: 5, RegistrationNumber: "2024002", FullName: "Luis Pérez"},
	}, roster.Entries)
	assert.Len(t, roster.Warnings, 2)
	assert.True(t, hasWarning(roster.Warnings, "Fila 6", "2024001", "duplicada"))
	assert.True(t, hasWarning(roster.Warnings, "Fila 7", "vacío"))
}

func TestParseRosterCSV(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"comma", "MATRICULA,NOMBRE\n2024001,Ana Ruiz\n\n2024002,Luis Pérez\n"},
		{"semicolon with bom", "\xef\xbb\xbfAlumno;Matricula Alumno\nAna Ruiz;2024001\nLuis Pérez;2024002\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roster, err := ParseRoster(strings.NewReader(tt.data), "alumnos.csv")
			require.NoError(t, err)
			require.Len(t, roster.Entries, 2)
			assert.Equal(t, "2024001", roster.Entries[0].RegistrationNumber)
			assert.Equal(t, "Ana Ruiz", roster.Entries[0].FullName)
			assert.Equal(t, "Luis Pérez", roster.Entries[1].FullName)
			assert.Empty(t, roster.Warnings)
		})
	}
}

func TestParseRosterMissingColumns(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{"no registration number", "NOMBRE,GRUPO\nAna Ruiz,2A\n", []string{"MATRICULA"}},
		{"no name", "MATRICULA,GRUPO\n2024001,2A\n", []string{"NOMBRE"}},
		{"no header at all", "a,b\n1,2\n", []string{"MATRICULA", "NOMBRE"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roster, err := ParseRoster(strings.NewReader(tt.data), "alumnos.csv")
			assert.Nil(t, roster)

			var missing *MissingColumnsError
			require.True(t, errors.As(err, &missing))
			assert.Equal(t, tt.want, missing.Columns)
		})
	}
}

func TestParseRosterMissingColumnsXLSX(t *testing.T) {
	buf := workbook(t, map[string]any{
		"A1": "Lista de alumnos 2025",
		"A3": "Nombre Completo",
		"B3": "Grupo",
		"A4": "Ana Ruiz",
		"B4": "2A",
	})

	roster, err := ParseRoster(buf, "alumnos.xlsx")
	assert.Nil(t, roster)

	var missing *MissingColumnsError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []string{"MATRICULA"}, missing.Columns)
	assert.Equal(t, "alumnos.xlsx", missing.File)
	assert.Contains(t, err.Error(), "faltan columnas requeridas: MATRICULA")
}

func TestParseRosterUnsupportedFormat(t *testing.T) {
	_, err := ParseRoster(strings.NewReader("x"), "alumnos.pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "formato no soportado")
}

func TestRosterEntryStudent(t *testing.T) {
	e := RosterEntry{Row: 2, RegistrationNumber: "2024099", FullName: "Ana Ruiz"}
	s := e.Student()
	assert.Equal(t, "Ana Ruiz", s.FullName)
	assert.Equal(t, "2024099", s.RegistrationNumber)
	assert.Zero(t, s.ID)
}
