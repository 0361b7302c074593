package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/edital/internal"
	"github.com/starford/edital/internal/models"
	"github.com/starford/edital/internal/outline"
	"github.com/starford/edital/internal/render"
	"github.com/starford/edital/internal/tracker"
)

func subjectsCommand() *cli.Command {
	return &cli.Command{
		Name:  "subjects",
		Usage: "Manage one owner's subjects",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "owner",
				Aliases: []string{"o"},
				Usage:   "Owner id (defaults to app.owner)",
				Sources: cli.EnvVars("EDITAL_OWNER"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "Show subjects, topics and completion",
				Action: withBoard(listSubjects),
			},
			{
				Name:      "add",
				Usage:     "Create a subject from an outline file ('-' for stdin)",
				ArgsUsage: "NAME FILE",
				Action:    withBoard(addSubject),
			},
			{
				Name:      "toggle",
				Usage:     "Flip a topic's done mark; further indexes address nested topics",
				ArgsUsage: "SUBJECT TOPIC [CHILD...]",
				Action:    withBoard(toggleTopic),
			},
			{
				Name:      "outline",
				Usage:     "Print a subject in edit format",
				ArgsUsage: "SUBJECT",
				Action:    withBoard(printOutline),
			},
			{
				Name:      "edit",
				Usage:     "Replace a subject from an edited outline file ('-' for stdin)",
				ArgsUsage: "SUBJECT NAME FILE",
				Action:    withBoard(editSubject),
			},
			{
				Name:      "delete",
				Usage:     "Delete a subject",
				ArgsUsage: "SUBJECT",
				Action:    withBoard(deleteSubject),
			},
		},
	}
}

type boardAction func(ctx context.Context, cmd *cli.Command, b *tracker.Board) error

func withBoard(fn boardAction) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		board, closeFn, err := internal.OpenBoard(ctx, cmd.String("owner"), internal.WithConfig(cfg))
		if err != nil {
			return err
		}
		defer closeFn()
		return fn(ctx, cmd, board)
	}
}

// intArgs parses positional arguments from index from onwards.
func intArgs(cmd *cli.Command, from int) ([]int, error) {
	args := cmd.Args().Slice()
	if len(args) <= from {
		return nil, fmt.Errorf("missing index argument")
	}
	out := make([]int, 0, len(args)-from)
	for _, a := range args[from:] {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid index %q", a)
		}
		out = append(out, n)
	}
	return out, nil
}

func readInput(name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(name)
	return string(data), err
}

func listSubjects(_ context.Context, cmd *cli.Command, b *tracker.Board) error {
	w := cmd.Root().Writer
	for i, s := range b.Subjects() {
		fmt.Fprintf(w, "[%d] %s  %s%%\n", i, s.Name, render.Percent(s.Topics))
		printTopics(w, s.Topics, "    ")
	}
	return nil
}

func printTopics(w io.Writer, topics []*models.Topic, indent string) {
	for i, t := range topics {
		if strings.TrimSpace(t.Name) == "" {
			fmt.Fprintf(w, "%s---\n", indent)
			continue
		}
		mark := " "
		if t.Done {
			mark = "x"
		}
		fmt.Fprintf(w, "%s%d. [%s] %s\n", indent, i, mark, t.Name)
		printTopics(w, t.Children, indent+"    ")
	}
}

func addSubject(ctx context.Context, cmd *cli.Command, b *tracker.Board) error {
	if cmd.Args().Len() != 2 {
		return fmt.Errorf("usage: subjects add NAME FILE")
	}
	text, err := readInput(cmd.Args().Get(1))
	if err != nil {
		return err
	}
	return b.Add(ctx, cmd.Args().Get(0), text)
}

func toggleTopic(ctx context.Context, cmd *cli.Command, b *tracker.Board) error {
	idx, err := intArgs(cmd, 0)
	if err != nil {
		return err
	}
	if len(idx) < 2 {
		return fmt.Errorf("usage: subjects toggle SUBJECT TOPIC [CHILD...]")
	}
	if err := b.ToggleNested(ctx, idx[0], idx[1:]); err != nil {
		return err
	}
	p, _ := b.Percentage(idx[0])
	fmt.Fprintf(cmd.Root().Writer, "%.0f%%\n", p)
	return nil
}

func printOutline(_ context.Context, cmd *cli.Command, b *tracker.Board) error {
	idx, err := intArgs(cmd, 0)
	if err != nil {
		return err
	}
	text, err := b.EditText(idx[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.Root().Writer, text)
	return nil
}

func editSubject(ctx context.Context, cmd *cli.Command, b *tracker.Board) error {
	if cmd.Args().Len() != 3 {
		return fmt.Errorf("usage: subjects edit SUBJECT NAME FILE")
	}
	i, err := strconv.Atoi(cmd.Args().Get(0))
	if err != nil {
		return fmt.Errorf("invalid index %q", cmd.Args().Get(0))
	}
	text, err := readInput(cmd.Args().Get(2))
	if err != nil {
		return err
	}
	if err := b.SaveEdit(ctx, i, cmd.Args().Get(1), text); err != nil {
		return err
	}
	s, _ := b.Subject(i)
	fmt.Fprintf(cmd.Root().Writer, "%d topics\n", outline.Count(s.Topics))
	return nil
}

func deleteSubject(ctx context.Context, cmd *cli.Command, b *tracker.Board) error {
	idx, err := intArgs(cmd, 0)
	if err != nil {
		return err
	}
	return b.Delete(ctx, idx[0])
}
