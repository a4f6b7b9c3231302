package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/urfave/cli/v2"

	"glyphline/internal/card"
	"glyphline/internal/config"
	"glyphline/internal/errors"
	"glyphline/internal/ops"
	"glyphline/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	app := &cli.App{
		Name:    "glyphline",
		Usage:   "Card workflow with human review gates",
		Version: Version,
		Commands: []*cli.Command{
			createCmd(db, cfg),
			claimCmd(db, cfg),
			listCmd(db, cfg),
			statusCmd(db),
			submitCmd(db, cfg),
			reviewCmd(db, cfg),
			depsCmd(db),
			queueCmd(db, cfg),
			archiveCmd(db),
			archivedCmd(db),
			projectCmd(db),
			exportCmd(db),
			importCmd(db, cfg),
			reconcileCmd(db),
			serveCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// createCmd creates the create command.
func createCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "create",
		Usage:     "Create a new card",
		ArgsUsage: "<title>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Project name (defaults to the active project)"},
			&cli.StringFlag{Name: "agent", Aliases: []string{"a"}, Usage: "Agent the card is for"},
			&cli.StringFlag{Name: "size", Usage: "Effort estimate"},
			&cli.StringFlag{Name: "deliverables", Usage: "Comma-separated deliverables"},
			&cli.StringFlag{Name: "validation", Usage: "Comma-separated validation steps"},
			&cli.StringFlag{Name: "context", Usage: "Comma-separated context the agent needs"},
			&cli.StringFlag{Name: "questions", Usage: "Comma-separated open questions"},
			&cli.Int64Flag{Name: "linked-to", Aliases: []string{"l"}, Usage: "Card this one depends on"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return outputError(errors.NewInvalidRequest("a card title is required"))
			}

			input := ops.CreateInput{
				Title:         strings.Join(c.Args().Slice(), " "),
				Project:       c.String("project"),
				AssignedTo:    c.String("agent"),
				Size:          c.String("size"),
				Deliverables:  splitList(c.String("deliverables")),
				Validation:    splitList(c.String("validation")),
				ContextNeeds:  splitList(c.String("context")),
				OpenQuestions: splitList(c.String("questions")),
			}
			if id := c.Int64("linked-to"); id > 0 {
				input.LinkedTo = &id
			}

			output, err := ops.Create(db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// claimCmd creates the claim command.
func claimCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "claim",
		Usage:     "Start work on a card (omit the id to take the next available one)",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "agent", Aliases: []string{"a"}, Usage: "Agent identity"},
		},
		Action: func(c *cli.Context) error {
			input := ops.ClaimInput{Agent: c.String("agent")}
			if c.NArg() > 0 {
				id, err := card.ParseID(c.Args().First())
				if err != nil {
					return outputError(err)
				}
				input.CardID = id
			}

			output, err := ops.Claim(db, cfg, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// listCmd creates the list command.
func listCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List cards grouped by state",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "agent", Aliases: []string{"a"}, Usage: "Agent identity"},
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Narrow to one project"},
			&cli.BoolFlag{Name: "all", Usage: "Include every agent's cards"},
			&cli.BoolFlag{Name: "json", Usage: "Output JSON instead of a table"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.List(db, cfg, ops.ListInput{
				Agent:     c.String("agent"),
				Project:   c.String("project"),
				AllAgents: c.Bool("all"),
			})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Card", "Title", "State", "Project", "Agent", "Needs"})
			appendGroup := func(state string, cards []ops.CardSummary) {
				for _, s := range cards {
					needs := ""
					if s.LinkedTo != nil {
						needs = card.FormatID(*s.LinkedTo)
					}
					tw.AppendRow(table.Row{s.DisplayID, s.Title, state, s.Project, s.AssignedTo, needs})
				}
			}
			appendGroup("ready", output.Workable)
			appendGroup("in flight", output.InFlight)
			appendGroup("blocked", output.Blocked)
			appendGroup("accepted", output.Done)
			tw.Render()
			fmt.Println(output.Message)
			return nil
		},
	}
}

// statusCmd creates the status command.
func statusCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "status",
		Usage:     "Show one card in full",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "include-archived", Usage: "Also resolve archived cards"},
		},
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Status(db, ops.StatusInput{
				CardID:          id,
				IncludeArchived: c.Bool("include-archived"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// submitCmd creates the submit command.
func submitCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "Submit a card for human review",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "agent", Aliases: []string{"a"}, Usage: "Agent identity"},
			&cli.StringFlag{Name: "doc", Usage: "Override the submission document path"},
		},
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Submit(db, cfg, ops.SubmitInput{
				Agent:   c.String("agent"),
				CardID:  id,
				DocPath: c.String("doc"),
			})
			if err != nil {
				return outputError(err)
			}
			for _, w := range output.Warnings {
				fmt.Fprintf(os.Stderr, "warning: %s\n", w)
			}
			return outputJSON(output)
		},
	}
}

// reviewCmd creates the review command with accept/revise subcommands.
func reviewCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	decisionFlags := []cli.Flag{
		&cli.StringFlag{Name: "notes", Aliases: []string{"n"}, Usage: "Review notes"},
		&cli.StringFlag{Name: "reviewer", Aliases: []string{"r"}, Usage: "Reviewer identity"},
	}
	decide := func(c *cli.Context, decision card.Decision) error {
		id, err := requireID(c)
		if err != nil {
			return outputError(err)
		}
		output, err := ops.Decide(db, cfg, ops.DecideInput{
			CardID:   id,
			Decision: decision,
			Notes:    c.String("notes"),
			Reviewer: c.String("reviewer"),
		})
		if err != nil {
			return outputError(err)
		}
		return outputJSON(output)
	}

	return &cli.Command{
		Name:  "review",
		Usage: "Record a human review decision",
		Subcommands: []*cli.Command{
			{
				Name:      "accept",
				Usage:     "Accept a submitted card",
				ArgsUsage: "<id>",
				Flags:     decisionFlags,
				Action:    func(c *cli.Context) error { return decide(c, card.DecisionAccepted) },
			},
			{
				Name:      "revise",
				Usage:     "Send a submitted card back for revision (notes required)",
				ArgsUsage: "<id>",
				Flags:     decisionFlags,
				Action:    func(c *cli.Context) error { return decide(c, card.DecisionNeedsRevision) },
			},
		},
	}
}

// depsCmd creates the deps command.
func depsCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "deps",
		Usage:     "Explain a card's dependency chain",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Dependencies(db, ops.DependenciesInput{CardID: id})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// queueCmd creates the queue command.
func queueCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "queue",
		Usage: "Show cards awaiting human acceptance",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Narrow to one project"},
			&cli.BoolFlag{Name: "json", Usage: "Output JSON instead of a table"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Queue(db, cfg, ops.QueueInput{Project: c.String("project")})
			if err != nil {
				return outputError(err)
			}
			if c.Bool("json") {
				return outputJSON(output)
			}

			tw := table.NewWriter()
			tw.SetOutputMirror(os.Stdout)
			tw.AppendHeader(table.Row{"Card", "Title", "Project", "Agent", "Doc", "Resubmission"})
			for _, e := range output.Entries {
				doc := e.DocRef
				if !e.DocExists {
					doc = "MISSING " + doc
				}
				resubmission := ""
				if e.Resubmission {
					resubmission = "yes"
				}
				tw.AppendRow(table.Row{e.DisplayID, e.Title, e.Project, e.AssignedTo, doc, resubmission})
			}
			tw.Render()
			fmt.Println(output.Message)
			return nil
		},
	}
}

// archiveCmd creates the archive command.
func archiveCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "archive",
		Usage:     "Retire an accepted card",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Archive even with open dependents"},
		},
		Action: func(c *cli.Context) error {
			id, err := requireID(c)
			if err != nil {
				return outputError(err)
			}
			output, err := ops.Archive(db, ops.ArchiveInput{
				CardID: id,
				Force:  c.Bool("force"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// archivedCmd creates the archived command.
func archivedCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "archived",
		Usage: "List retired cards",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Narrow to one project"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListArchived(db, ops.ListArchivedInput{Project: c.String("project")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// projectCmd creates the project command group.
func projectCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "project",
		Usage: "Manage project namespaces",
		Subcommands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Register a project without activating it",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "What the project is about"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.CreateProject(db, ops.ProjectInput{
						Name:        c.Args().First(),
						Description: c.String("description"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "activate",
				Usage:     "Activate a project namespace",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Description on first registration"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ActivateProject(db, ops.ProjectInput{
						Name:        c.Args().First(),
						Description: c.String("description"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "deactivate",
				Usage: "Return to conversation mode",
				Action: func(c *cli.Context) error {
					output, err := ops.DeactivateProject(db)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:  "list",
				Usage: "List every known project",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "json", Usage: "Output JSON instead of a table"},
				},
				Action: func(c *cli.Context) error {
					output, err := ops.ListProjects(db)
					if err != nil {
						return outputError(err)
					}
					if c.Bool("json") {
						return outputJSON(output)
					}

					tw := table.NewWriter()
					tw.SetOutputMirror(os.Stdout)
					tw.AppendHeader(table.Row{"Project", "Cards", "Activations", "Active"})
					for _, p := range output.Projects {
						active := ""
						if p.Active {
							active = "*"
						}
						tw.AppendRow(table.Row{p.Name, p.CardCount, p.ActivationCount, active})
					}
					tw.Render()
					fmt.Println(output.Message)
					return nil
				},
			},
			{
				Name:  "context",
				Usage: "Show the active project and its workload",
				Action: func(c *cli.Context) error {
					output, err := ops.ProjectContext(db)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
		},
	}
}

// exportCmd creates the export command.
func exportCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export cards as YAML to stdout",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "project", Aliases: []string{"p"}, Usage: "Narrow to one project"},
			&cli.Int64Flag{Name: "card", Usage: "Export one card"},
			&cli.BoolFlag{Name: "include-archived", Usage: "Also export retired cards"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(db, ops.ExportInput{
				CardID:          c.Int64("card"),
				Project:         c.String("project"),
				IncludeArchived: c.Bool("include-archived"),
			})
			if err != nil {
				return outputError(err)
			}
			fmt.Print(output.YAML)
			return nil
		},
	}
}

// importCmd creates the import command.
func importCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import exported YAML cards from stdin",
		Action: func(c *cli.Context) error {
			if !stdinHasData() {
				return outputError(errors.NewInvalidRequest("card YAML must be piped via stdin"))
			}
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return outputError(errors.NewInternal(err))
			}
			output, err := ops.Import(db, cfg, ops.ImportInput{YAML: string(data)})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// reconcileCmd creates the reconcile command.
func reconcileCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "reconcile",
		Usage: "Re-derive blocked state for every active card",
		Action: func(c *cli.Context) error {
			output, err := ops.Reconcile(db)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command for the review dashboard.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the review dashboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 7317, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			srv := web.NewServer(db, cfg, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// requireID parses the first positional argument as a card id.
func requireID(c *cli.Context) (int64, error) {
	if c.NArg() < 1 {
		return 0, errors.NewInvalidRequest("a card id is required")
	}
	return card.ParseID(c.Args().First())
}

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if gErr, ok := err.(*errors.GlyphError); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", gErr.Code, gErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// splitList splits a comma-separated flag value into a cleaned slice.
func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			items = append(items, t)
		}
	}
	return items
}
