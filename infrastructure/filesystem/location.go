// Package filesystem opens spreadsheets from local paths or S3 objects
// written as s3://bucket/key.
package filesystem

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

const scheme = "s3://"

type Location struct {
	Bucket string
	Key    string
	Path   string
}

func ParseLocation(s string) (Location, error) {
	if !strings.HasPrefix(s, scheme) {
		if s == "" {
			return Location{}, fmt.Errorf("empty location")
		}
		return Location{Path: s}, nil
	}
	rest := strings.TrimPrefix(s, scheme)
	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("invalid s3 location %q", s)
	}
	return Location{Bucket: bucket, Key: key}, nil
}

func (l Location) IsS3() bool {
	return l.Bucket != ""
}

// Name is the base file name, used to pick a parser by extension.
func (l Location) Name() string {
	if l.IsS3() {
		return path.Base(l.Key)
	}
	return filepath.Base(l.Path)
}

func (l Location) String() string {
	if l.IsS3() {
		return scheme + l.Bucket + "/" + l.Key
	}
	return l.Path
}

// Files resolves locations to readable files, connecting to S3 only
// when an s3:// location is used.
type Files struct {
	options S3Option
	mu      sync.Mutex
	s3      *S3
}

func NewFiles(options S3Option) *Files {
	return &Files{options: options}
}

func (f *Files) bucket(ctx context.Context) (*S3, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.s3 == nil {
		s, err := NewS3(ctx, f.options)
		if err != nil {
			return nil, err
		}
		f.s3 = s
	}
	return f.s3, nil
}

// Read loads the whole file at loc.
func (f *Files) Read(ctx context.Context, loc Location) ([]byte, error) {
	if !loc.IsS3() {
		return os.ReadFile(loc.Path)
	}
	s, err := f.bucket(ctx)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := s.ReadFile(ctx, loc.Bucket, loc.Key, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (f *Files) Write(ctx context.Context, loc Location, data []byte, contentType string) error {
	if !loc.IsS3() {
		if dir := filepath.Dir(loc.Path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
		}
		return os.WriteFile(loc.Path, data, 0o644)
	}
	s, err := f.bucket(ctx)
	if err != nil {
		return err
	}
	return s.WriteFile(ctx, loc.Bucket, loc.Key, data, contentType)
}

// Expand turns a directory or an S3 prefix into the files it holds with
// one of exts. A plain file is returned as is.
func (f *Files) Expand(ctx context.Context, loc Location, exts ...string) ([]Location, error) {
	if loc.IsS3() {
		if loc.Key != "" && !strings.HasSuffix(loc.Key, "/") {
			return []Location{loc}, nil
		}
		s, err := f.bucket(ctx)
		if err != nil {
			return nil, err
		}
		keys, err := s.ListFiles(ctx, loc.Bucket, loc.Key, exts...)
		if err != nil {
			return nil, err
		}
		out := make([]Location, 0, len(keys))
		for _, k := range keys {
			out = append(out, Location{Bucket: loc.Bucket, Key: k})
		}
		return out, nil
	}

	info, err := os.Stat(loc.Path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []Location{loc}, nil
	}
	entries, err := os.ReadDir(loc.Path)
	if err != nil {
		return nil, err
	}
	var out []Location
	for _, e := range entries {
		// Excel lock files start with ~$
		if e.IsDir() || strings.HasPrefix(e.Name(), "~$") || !hasExt(e.Name(), exts) {
			continue
		}
		out = append(out, Location{Path: filepath.Join(loc.Path, e.Name())})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Open is Read behind an io.Reader.
func (f *Files) Open(ctx context.Context, loc Location) (io.Reader, error) {
	data, err := f.Read(ctx, loc)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// ExpandAll parses and expands every raw location, keeping their order.
func (f *Files) ExpandAll(ctx context.Context, raw []string, exts ...string) ([]Location, error) {
	var out []Location
	for _, r := range raw {
		loc, err := ParseLocation(r)
		if err != nil {
			return nil, err
		}
		found, err := f.Expand(ctx, loc, exts...)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", r, err)
		}
		out = append(out, found...)
	}
	return out, nil
}
