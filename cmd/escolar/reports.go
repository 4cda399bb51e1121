package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"uamvh.cloud/escolar/core"
	"uamvh.cloud/escolar/infrastructure/filesystem"
	"uamvh.cloud/escolar/offline"
	"uamvh.cloud/escolar/reporting"
	"uamvh.cloud/escolar/utils"
)

const xlsxMime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// output writes data to the location named by raw, or stdout when empty.
func output(ctx context.Context, app *core.App, raw string, data []byte, contentType string) error {
	if raw == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	loc, err := filesystem.ParseLocation(raw)
	if err != nil {
		return err
	}
	if err := app.Files.Write(ctx, loc, data, contentType); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "guardado en %s\n", loc)
	return nil
}

func printWarnings(label string, lines []string) {
	for _, l := range lines {
		fmt.Fprintf(os.Stderr, "%s: %s\n", label, l)
	}
}

func stats(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	out := fs.String("out", "", "where to write the statistics JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return errors.New("no concentrados given")
	}

	locations, err := app.Files.ExpandAll(ctx, fs.Args(), ".xlsx")
	if err != nil {
		return err
	}
	var concentrados []reporting.Concentrado
	for _, loc := range locations {
		r, err := app.Files.Open(ctx, loc)
		if err != nil {
			return err
		}
		c, err := reporting.ParseConcentrado(r, loc.Name())
		if err != nil {
			printWarnings("omitido", []string{err.Error()})
			continue
		}
		concentrados = append(concentrados, *c)
	}
	if len(concentrados) == 0 {
		return errors.New("ningún archivo pudo ser procesado")
	}

	data, err := json.MarshalIndent(reporting.ComputeStatistics(concentrados), "", "  ")
	if err != nil {
		return err
	}
	return output(ctx, app, *out, append(data, '\n'), "application/json")
}

func importRoster(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("import-roster", flag.ContinueOnError)
	commit := fs.Bool("commit", false, "create the students")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: escolar import-roster [-commit] LOCATION")
	}

	loc, err := filesystem.ParseLocation(fs.Arg(0))
	if err != nil {
		return err
	}
	r, err := app.Files.Open(ctx, loc)
	if err != nil {
		return err
	}
	roster, err := reporting.ParseRoster(r, loc.Name())
	if err != nil {
		return err
	}
	printWarnings("aviso", roster.Warnings)

	if !*commit {
		return printJSON(utils.Map(roster.Entries, reporting.RosterEntry.Student))
	}
	counts := map[offline.Outcome]int{}
	for _, entry := range roster.Entries {
		_, outcome, err := app.Service.Students.Create(ctx, entry.Student())
		if err != nil {
			printWarnings("error", []string{fmt.Sprintf("Fila %d (%s): %v", entry.Row, entry.RegistrationNumber, err)})
			continue
		}
		counts[outcome]++
	}
	fmt.Printf("%d creado(s), %d en cola\n", counts[offline.OutcomeOnline], counts[offline.OutcomeQueued])
	return nil
}

func importGrades(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("import-grades", flag.ContinueOnError)
	period := fs.String("period", "", "school period, e.g. 2024-2025")
	semester := fs.Int("semester", 0, "semester of the group")
	out := fs.String("out", "", "where to write the concentrado workbook")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *period == "" || *semester < 1 {
		return errors.New("period and semester are required")
	}

	locations, err := app.Files.ExpandAll(ctx, fs.Args(), ".xlsx")
	if err != nil {
		return err
	}
	named := make([]reporting.NamedFile, 0, len(locations))
	for _, loc := range locations {
		r, err := app.Files.Open(ctx, loc)
		if err != nil {
			return err
		}
		named = append(named, reporting.NamedFile{Name: loc.Name(), Reader: r})
	}

	result := reporting.ImportGradeFiles(named, *period, *semester)
	printWarnings("aviso", result.Warnings)
	printWarnings("error", result.Errors)
	if *out == "" {
		return printJSON(result.Boletas)
	}

	var buf bytes.Buffer
	if err := reporting.ExportConcentrado(&buf, result.Boletas); err != nil {
		return err
	}
	return output(ctx, app, *out, buf.Bytes(), xlsxMime)
}

func export(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	group := fs.String("group", "", "group id or client id")
	out := fs.String("out", "", "where to write the concentrado workbook")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *group == "" || *out == "" {
		return errors.New("group and out are required")
	}

	ref := offline.ParseRef(*group)
	if rec, err := app.Service.Groups.Get(ctx, *group); err == nil {
		ref = rec.Ref
	}
	if ref.Pending() {
		return errors.New("el grupo aún no se ha sincronizado")
	}
	boletas, err := app.Client.Groups.FindBoletas(ctx, ref.ServerID)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := reporting.ExportConcentrado(&buf, boletas); err != nil {
		return err
	}
	return output(ctx, app, *out, buf.Bytes(), xlsxMime)
}
