// Command settingsctl inspects and edits a settings file.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/andreyvit/ordmap"
	"github.com/andreyvit/ordmap/settings"
)

func main() {
	if err := run(os.Args, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	app := cli.App{
		Name:      "settingsctl",
		Usage:     "inspect and edit a settings file",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "file",
				Aliases: []string{"f"},
				Usage:   "path to the settings file",
				Value:   "settings.db",
				EnvVars: []string{"SETTINGS_FILE"},
			},
			&cli.StringFlag{
				Name:    "history",
				Usage:   "directory of the change history log; empty disables history",
				EnvVars: []string{"SETTINGS_HISTORY"},
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log index maintenance",
			},
		},
	}
	app.Commands = []*cli.Command{
		{
			Name:      "get",
			Usage:     "print a setting as JSON",
			ArgsUsage: "<name>",
			Action:    runGet,
		},
		{
			Name:      "set",
			Usage:     "store a setting; the value is parsed as JSON, or taken as a plain string",
			ArgsUsage: "<name> <value>",
			Action:    runSet,
		},
		{
			Name:      "delete",
			Usage:     "remove settings",
			ArgsUsage: "<name>...",
			Action:    runDelete,
		},
		{
			Name:      "list",
			Usage:     "list setting names in order",
			ArgsUsage: "[prefix]",
			Action:    runList,
		},
		{
			Name:  "dump",
			Usage: "print the internal index layout",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "values", Usage: "include values"},
			},
			Action: runDump,
		},
		{
			Name:   "history",
			Usage:  "print recorded changes, oldest first",
			Action: runHistory,
		},
		{
			Name:   "checksum",
			Usage:  "print the content checksum",
			Action: runChecksum,
		},
	}
	return app.Run(args)
}

func openStore(cctx *cli.Context) (*settings.Store, error) {
	level := slog.LevelInfo
	if cctx.Bool("verbose") {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	return settings.Open(cctx.String("file"), settings.Options{
		Logger:     logger,
		Verbose:    cctx.Bool("verbose"),
		HistoryDir: cctx.String("history"),
	})
}

func runGet(cctx *cli.Context) error {
	name := cctx.Args().First()
	if name == "" {
		return fmt.Errorf("need to provide setting name as an argument")
	}
	s, err := openStore(cctx)
	if err != nil {
		return err
	}
	defer s.Close()

	v, err := s.Get(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	fmt.Fprintln(cctx.App.Writer, string(raw))
	return nil
}

func runSet(cctx *cli.Context) error {
	if cctx.Args().Len() != 2 {
		return fmt.Errorf("need to provide setting name and value")
	}
	name, text := cctx.Args().Get(0), cctx.Args().Get(1)
	s, err := openStore(cctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Set(name, parseValue(text))
}

// parseValue decodes text as JSON, keeping integers integral. Anything that
// is not valid JSON is stored as a string.
func parseValue(text string) any {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return text
	}
	return normalizeNumbers(v)
}

func normalizeNumbers(v any) any {
	switch v := v.(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i, e := range v {
			v[i] = normalizeNumbers(e)
		}
		return v
	case map[string]any:
		for k, e := range v {
			v[k] = normalizeNumbers(e)
		}
		return v
	default:
		return v
	}
}

func runDelete(cctx *cli.Context) error {
	names := cctx.Args().Slice()
	if len(names) == 0 {
		return fmt.Errorf("need to provide at least one setting name")
	}
	s, err := openStore(cctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.Update(func(tx *settings.Tx) error {
		for _, name := range names {
			if err := tx.Delete(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func runList(cctx *cli.Context) error {
	s, err := openStore(cctx)
	if err != nil {
		return err
	}
	defer s.Close()
	for _, name := range s.NamesWithPrefix(cctx.Args().First()) {
		fmt.Fprintln(cctx.App.Writer, name)
	}
	return nil
}

func runDump(cctx *cli.Context) error {
	s, err := openStore(cctx)
	if err != nil {
		return err
	}
	defer s.Close()
	f := ordmap.DumpAll
	if !cctx.Bool("values") {
		f &^= ordmap.DumpValues
	}
	fmt.Fprint(cctx.App.Writer, s.Dump(f))
	return nil
}

func runHistory(cctx *cli.Context) error {
	s, err := openStore(cctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return s.History(func(e settings.HistoryEntry) error {
		v, err := e.Value()
		if err != nil {
			return err
		}
		line := fmt.Sprintf("%s %s %s", e.Time.Format(time.RFC3339), e.Op(), e.Name())
		if e.HasValue() {
			raw, err := json.Marshal(v)
			if err != nil {
				return err
			}
			line += " " + string(raw)
		}
		fmt.Fprintln(cctx.App.Writer, line)
		return nil
	})
}

func runChecksum(cctx *cli.Context) error {
	s, err := openStore(cctx)
	if err != nil {
		return err
	}
	defer s.Close()
	fmt.Fprintf(cctx.App.Writer, "%016x\n", s.Checksum())
	return nil
}
