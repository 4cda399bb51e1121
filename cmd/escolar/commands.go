package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"uamvh.cloud/escolar/core"
	"uamvh.cloud/escolar/escolar/v1/common"
	"uamvh.cloud/escolar/grading"
	"uamvh.cloud/escolar/offline"
)

func login(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("ESCOLAR_PASSWORD"), "account password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" || *password == "" {
		return errors.New("email and password are required")
	}

	user, err := app.Session.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Printf("Sesión iniciada como %s (%s)\n", user.FullName, user.Role)
	return nil
}

func logout(ctx context.Context, app *core.App, _ []string) error {
	return app.Session.Logout(ctx)
}

func status(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	actions := fs.Bool("actions", false, "list queued actions")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st, err := app.Service.Status(ctx, *actions)
	if err != nil {
		return err
	}
	return printJSON(st)
}

func syncNow(ctx context.Context, app *core.App, _ []string) error {
	app.Service.Tracker.SetOnline(ctx, app.Service.Tracker.CheckServer(ctx))
	report, err := app.Service.Sync(ctx)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func deadLetters(ctx context.Context, app *core.App, args []string) error {
	fs := flag.NewFlagSet("dead-letters", flag.ContinueOnError)
	requeue := fs.Bool("requeue", false, "move dead letters back to the queue")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *requeue {
		n, err := app.Service.Log.Requeue(ctx, fs.Args()...)
		if err != nil {
			return err
		}
		fmt.Printf("%d acción(es) reencolada(s)\n", n)
		return nil
	}
	dead, err := app.Service.Log.DeadLetters(ctx)
	if err != nil {
		return err
	}
	return printJSON(dead)
}

func list[T any](ctx context.Context, repo *offline.Repository[T], name string, args []string) error {
	fs := flag.NewFlagSet(name+" list", flag.ContinueOnError)
	cached := fs.Bool("cached", false, "read the local cache only")
	limit := fs.Int("limit", 0, "page size")
	offset := fs.Int("offset", 0, "page offset")
	if err := fs.Parse(args); err != nil {
		return err
	}

	page := offline.Page{Limit: *limit, Offset: *offset}
	if *cached {
		records, err := repo.Cached(ctx)
		if err != nil {
			return err
		}
		return printJSON(offline.Paginate(records, page))
	}
	records, _, err := repo.List(ctx, page)
	if err != nil {
		return err
	}
	return printJSON(records)
}

func listOnly[T any](repo func(*core.App) *offline.Repository[T], name string) func(context.Context, *core.App, []string) error {
	return func(ctx context.Context, app *core.App, args []string) error {
		if len(args) == 0 || args[0] != "list" {
			return fmt.Errorf("usage: escolar %s list [-cached]", name)
		}
		return list(ctx, repo(app), name, args[1:])
	}
}

var (
	groups  = listOnly(func(a *core.App) *offline.Repository[common.GroupDTO] { return a.Service.Groups }, "groups")
	periods = listOnly(func(a *core.App) *offline.Repository[common.PeriodDTO] { return a.Service.Periods }, "periods")
	courses = listOnly(func(a *core.App) *offline.Repository[common.CourseDTO] { return a.Service.Courses }, "courses")
)

func students(ctx context.Context, app *core.App, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: escolar students list|add|update|delete")
	}
	repo := app.Service.Students
	sub, args := args[0], args[1:]

	switch sub {
	case "list":
		return list(ctx, repo, "students", args)
	case "add":
		fs := flag.NewFlagSet("students add", flag.ContinueOnError)
		name := fs.String("name", "", "full name")
		registration := fs.String("registration", "", "registration number")
		if err := fs.Parse(args); err != nil {
			return err
		}
		rec, outcome, err := repo.Create(ctx, common.StudentDTO{FullName: *name, RegistrationNumber: *registration})
		if err != nil {
			return err
		}
		fmt.Printf("%s %s\n", outcome, rec.Key())
		return nil
	case "update":
		fs := flag.NewFlagSet("students update", flag.ContinueOnError)
		name := fs.String("name", "", "full name")
		registration := fs.String("registration", "", "registration number")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if fs.NArg() != 1 {
			return errors.New("usage: escolar students update [-name N] [-registration R] KEY")
		}
		patch := map[string]any{}
		if *name != "" {
			patch["fullName"] = *name
		}
		if *registration != "" {
			patch["registrationNumber"] = *registration
		}
		if len(patch) == 0 {
			return errors.New("nothing to update")
		}
		outcome, err := repo.Update(ctx, fs.Arg(0), patch)
		if err != nil {
			return err
		}
		fmt.Println(outcome)
		return nil
	case "delete":
		if len(args) != 1 {
			return errors.New("usage: escolar students delete KEY")
		}
		outcome, err := repo.Delete(ctx, args[0])
		if err != nil {
			return err
		}
		fmt.Println(outcome)
		return nil
	}
	return fmt.Errorf("unknown students command %q", sub)
}

type averagesRequest struct {
	Weights     []grading.Weight     `json:"weights"`
	Evaluations []grading.Evaluation `json:"evaluations"`
	Exemption   float64              `json:"exemption"`
}

func averages(_ context.Context, _ *core.App, args []string) error {
	fs := flag.NewFlagSet("averages", flag.ContinueOnError)
	file := fs.String("file", "", "JSON file with weights and evaluations")
	if err := fs.Parse(args); err != nil {
		return err
	}
	raw, err := os.ReadFile(*file)
	if err != nil {
		return err
	}
	var req averagesRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parse %s: %w", *file, err)
	}
	if err := grading.ValidateWeights(req.Weights); err != nil {
		return err
	}
	if req.Exemption <= 0 {
		req.Exemption = grading.DefaultExemption
	}

	avg := grading.CalcAverages(req.Evaluations, req.Weights)
	situation := grading.DetermineSituation(avg.Final, req.Exemption)
	return printJSON(map[string]any{
		"averages":  avg,
		"situation": situation,
		"label":     situation.Label(),
	})
}

func watch(ctx context.Context, app *core.App, _ []string) error {
	cfg := app.Config.Sync
	fmt.Fprintf(os.Stderr, "vigilando la conexión cada %s (Ctrl+C para salir)\n", cfg.WatchInterval)
	go app.Service.Attendances.RunSweeper(ctx, cfg.SweepInterval)
	app.Service.Tracker.Watch(ctx, cfg.WatchInterval)
	return nil
}
