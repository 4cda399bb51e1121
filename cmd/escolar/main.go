// Command escolar drives the offline client from a terminal: login,
// queued writes, sync and the spreadsheet reports.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"uamvh.cloud/escolar/config"
	"uamvh.cloud/escolar/core"
	"uamvh.cloud/escolar/notify"
)

type command struct {
	usage string
	run   func(ctx context.Context, app *core.App, args []string) error
}

var commands = map[string]command{
	"login":         {"login -email EMAIL -password PASSWORD", login},
	"logout":        {"logout", logout},
	"status":        {"status [-actions]", status},
	"sync":          {"sync", syncNow},
	"dead-letters":  {"dead-letters [-requeue] [ID...]", deadLetters},
	"students":      {"students list|add|update|delete ...", students},
	"groups":        {"groups list [-cached]", groups},
	"periods":       {"periods list [-cached]", periods},
	"courses":       {"courses list [-cached]", courses},
	"averages":      {"averages -file REQUEST.json", averages},
	"stats":         {"stats [-out LOCATION] LOCATION...", stats},
	"import-roster": {"import-roster [-commit] LOCATION", importRoster},
	"import-grades": {"import-grades -period P -semester N [-out LOCATION] LOCATION...", importGrades},
	"export":        {"export -group KEY -out LOCATION", export},
	"watch":         {"watch", watch},
}

// console prints notifications for the person at the terminal.
type console struct{}

func (console) Notify(_ context.Context, n notify.Notification) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", n.Level, n.Message)
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: escolar [-config escolar.yaml] COMMAND [ARGS]")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(os.Stderr, "  %s\n", commands[name].usage)
	}
}

func main() {
	path := flag.String("config", os.Getenv("ESCOLAR_CONFIG"), "path to escolar.yaml")
	flag.Usage = usage
	flag.Parse()

	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *path, cmd, flag.Args()[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, cmd command, args []string) error {
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return err
	}
	app, err := core.New(ctx, cfg, core.Options{Notifier: console{}})
	if err != nil {
		return err
	}
	defer app.Close()

	err = cmd.run(ctx, app, args)
	if errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, "usage: escolar", cmd.usage)
		return nil
	}
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
