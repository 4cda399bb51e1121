package helper

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"uamvh.cloud/escolar/escolar/v1/common"
	"uamvh.cloud/escolar/infrastructure/filesystem"
	"uamvh.cloud/escolar/reporting"
)

func writeConcentrado(t *testing.T, file, group string, semester int, grade float64) {
	t.Helper()
	boletas := []common.BoletaDTO{{
		FullName:           "Ana Ruiz",
		RegistrationNumber: "2024001",
		GroupName:          group,
		Semester:           semester,
		PeriodName:         "Ene-Jun 2025",
		Courses: []common.BoletaCourseDTO{{
			Name:   "Matemáticas",
			Grades: []common.BoletaGradeDTO{{Partial: 1, Grade: grade}, {Partial: 2, Grade: grade}, {Partial: 3, Grade: grade}},
		}},
	}}
	var buf bytes.Buffer
	require.NoError(t, reporting.ExportConcentrado(&buf, boletas))
	require.NoError(t, os.WriteFile(file, buf.Bytes(), 0o644))
}

func TestFolder(t *testing.T) {
	tests := []struct {
		name   string
		in     string
		folder string
		output string
	}{
		{"s3 nested", "s3://boletas/2025/2A.xlsx", "s3://boletas/2025/", "s3://boletas/2025/statistics.json"},
		{"s3 root", "s3://boletas/2A.xlsx", "s3://boletas/", "s3://boletas/statistics.json"},
		{"local", "data/2025/2A.xlsx", "data/2025", "data/2025/statistics.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := filesystem.ParseLocation(tt.in)
			require.NoError(t, err)
			folder := Folder(loc)
			assert.Equal(t, tt.folder, folder.String())
			assert.Equal(t, tt.output, Output(folder).String())
		})
	}
}

func TestPublish(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeConcentrado(t, filepath.Join(dir, "2A.xlsx"), "2A", 2, 8)
	writeConcentrado(t, filepath.Join(dir, "4A.xlsx"), "4A", 4, 9)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "otro.xlsx"), []byte("no es excel"), 0o644))

	files := filesystem.NewFiles(filesystem.S3Option{})
	folder := filesystem.Location{Path: dir}
	summary, err := Publish(ctx, files, folder)
	require.NoError(t, err)

	assert.Equal(t, []string{"2A.xlsx", "4A.xlsx"}, summary.Files)
	assert.Len(t, summary.Errors, 1)
	require.Len(t, summary.Statistics.Semesters, 2)
	assert.Equal(t, 2, summary.Statistics.Semesters[0].Semester)
	assert.Equal(t, 4, summary.Statistics.Semesters[1].Semester)

	raw, err := os.ReadFile(filepath.Join(dir, OutputName))
	require.NoError(t, err)
	var written Summary
	require.NoError(t, json.Unmarshal(raw, &written))
	assert.Equal(t, summary.Files, written.Files)
}

func TestSummarizeWithoutConcentrados(t *testing.T) {
	files := filesystem.NewFiles(filesystem.S3Option{})
	_, err := Summarize(context.Background(), files, filesystem.Location{Path: t.TempDir()})
	assert.Error(t, err)
}
