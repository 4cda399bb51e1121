package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocation(t *testing.T) {
	tests := []struct {
		in      string
		want    Location
		name    string
		wantErr bool
	}{
		{in: "s3://escolar-uploads/2025/2A.xlsx", want: Location{Bucket: "escolar-uploads", Key: "2025/2A.xlsx"}, name: "2A.xlsx"},
		{in: "s3://escolar-uploads/", want: Location{Bucket: "escolar-uploads", Key: ""}, name: "."},
		{in: "concentrados/2A.xlsx", want: Location{Path: "concentrados/2A.xlsx"}, name: "2A.xlsx"},
		{in: "s3:///key", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLocation(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.name, got.Name())
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestLocalFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	files := NewFiles(S3Option{})

	out := Location{Path: filepath.Join(dir, "out", "2A.xlsx")}
	require.NoError(t, files.Write(ctx, out, []byte("data"), ""))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out", "1A.xlsx"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out", "~$2A.xlsx"), []byte("lock"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "out", "notas.txt"), []byte("x"), 0o644))

	data, err := files.Read(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))

	got, err := files.Expand(ctx, Location{Path: filepath.Join(dir, "out")}, ".xlsx")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1A.xlsx", got[0].Name())
	assert.Equal(t, "2A.xlsx", got[1].Name())

	single, err := files.Expand(ctx, out, ".xlsx")
	require.NoError(t, err)
	assert.Equal(t, []Location{out}, single)

	all, err := files.ExpandAll(ctx, []string{out.Path, filepath.Join(dir, "out")}, ".xlsx")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = files.Read(ctx, Location{Path: filepath.Join(dir, "missing.xlsx")})
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = files.ExpandAll(ctx, []string{filepath.Join(dir, "missing")}, ".xlsx")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
