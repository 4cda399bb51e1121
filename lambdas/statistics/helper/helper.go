package helper

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"uamvh.cloud/escolar/infrastructure/filesystem"
	"uamvh.cloud/escolar/reporting"
)

// OutputName is the file written next to the concentrados it summarizes.
const OutputName = "statistics.json"

type Summary struct {
	Statistics reporting.Statistics `json:"statistics"`
	Files      []string             `json:"files"`
	Errors     []string             `json:"errors,omitempty"`
}

// Folder returns the location holding key, ending in "/" for S3 prefixes.
func Folder(loc filesystem.Location) filesystem.Location {
	if !loc.IsS3() {
		return filesystem.Location{Path: path.Dir(loc.Path)}
	}
	dir := path.Dir(loc.Key)
	if dir == "." {
		return filesystem.Location{Bucket: loc.Bucket}
	}
	return filesystem.Location{Bucket: loc.Bucket, Key: dir + "/"}
}

// Output is where the summary of folder is written.
func Output(folder filesystem.Location) filesystem.Location {
	if folder.IsS3() {
		return filesystem.Location{Bucket: folder.Bucket, Key: folder.Key + OutputName}
	}
	return filesystem.Location{Path: path.Join(folder.Path, OutputName)}
}

// Summarize computes the statistics of every concentrado in folder.
// Workbooks that are not concentrados are listed in Errors.
func Summarize(ctx context.Context, files *filesystem.Files, folder filesystem.Location) (*Summary, error) {
	locations, err := files.Expand(ctx, folder, ".xlsx")
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", folder, err)
	}

	summary := &Summary{Files: []string{}}
	var concentrados []reporting.Concentrado
	for _, loc := range locations {
		r, err := files.Open(ctx, loc)
		if err != nil {
			return nil, err
		}
		c, err := reporting.ParseConcentrado(r, loc.Name())
		if err != nil {
			summary.Errors = append(summary.Errors, err.Error())
			continue
		}
		concentrados = append(concentrados, *c)
		summary.Files = append(summary.Files, loc.Name())
	}
	if len(concentrados) == 0 {
		return nil, fmt.Errorf("no concentrados in %s: %s", folder, strings.Join(summary.Errors, "; "))
	}
	summary.Statistics = reporting.ComputeStatistics(concentrados)
	return summary, nil
}

// Publish summarizes folder and writes the result next to it.
func Publish(ctx context.Context, files *filesystem.Files, folder filesystem.Location) (*Summary, error) {
	summary, err := Summarize(ctx, files, folder)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := files.Write(ctx, Output(folder), data, "application/json"); err != nil {
		return nil, err
	}
	return summary, nil
}
