package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/dossier/internal/engine"
	"github.com/JaimeStill/dossier/internal/orchestrator"
	"github.com/JaimeStill/dossier/pkg/formatting"
	"github.com/JaimeStill/dossier/workflow"
)

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "execute a workflow run over a directory of documents",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "input directory (defaults to configured input_dir)"},
			&cli.StringFlag{Name: "thread-id", Usage: "thread identity; resumes when a checkpoint exists"},
			&cli.StringFlag{Name: "owner", Usage: "owner attributed to the run and its report"},
			&cli.IntFlag{Name: "limit", Usage: "maximum number of documents to process"},
			&cli.BoolFlag{Name: "no-cache", Usage: "bypass the document cache"},
			&cli.BoolFlag{Name: "interactive", Usage: "collect review decisions on stdin when the run suspends"},
		},
		Action: func(c *cli.Context) error {
			rt, err := compose(c.Context)
			if err != nil {
				return err
			}
			defer rt.close()

			input := c.String("input")
			if input == "" {
				input = rt.cfg.InputDir
			}

			opts := orchestrator.RunOptions{
				ThreadID:      c.String("thread-id"),
				InputDir:      input,
				OwnerID:       c.String("owner"),
				UseCache:      !c.Bool("no-cache"),
				DocumentLimit: c.Int("limit"),
			}
			if c.Bool("interactive") {
				opts.ReviewHandler = promptForDecisions
			}

			result, err := rt.orchestrator.Run(c.Context, opts)
			if err != nil {
				return err
			}

			printResult(result)
			return nil
		},
	}
}

func resumeCommand() *cli.Command {
	return &cli.Command{
		Name:      "resume",
		Usage:     "resume a suspended run with review decisions",
		ArgsUsage: "file=decision [file=decision ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "thread-id", Required: true, Usage: "suspended thread to resume"},
		},
		Action: func(c *cli.Context) error {
			decisions := map[string]string{}
			for _, arg := range c.Args().Slice() {
				file, decision, ok := strings.Cut(arg, "=")
				if !ok {
					return fmt.Errorf("invalid decision %q, expected file=decision", arg)
				}
				decisions[file] = decision
			}

			rt, err := compose(c.Context)
			if err != nil {
				return err
			}
			defer rt.close()

			result, err := rt.orchestrator.Resume(c.Context, c.String("thread-id"), decisions)
			if err != nil {
				return err
			}

			printResult(result)
			return nil
		},
	}
}

func pendingCommand() *cli.Command {
	return &cli.Command{
		Name:  "pending",
		Usage: "list runs suspended for human review",
		Action: func(c *cli.Context) error {
			rt, err := compose(c.Context)
			if err != nil {
				return err
			}
			defer rt.close()

			pending, err := rt.orchestrator.ListPendingReviews(c.Context)
			if err != nil {
				return err
			}

			if len(pending) == 0 {
				fmt.Println("No runs awaiting review.")
				return nil
			}

			for _, p := range pending {
				fmt.Printf("%s: %s\n", p.ThreadID, p.Prompt.Message)
				for _, doc := range p.Prompt.Documents {
					fmt.Printf("  - %s (%d pages)\n", doc.FileName, doc.PageCount)
				}
			}
			return nil
		},
	}
}

func stateCommand() *cli.Command {
	return &cli.Command{
		Name:  "state",
		Usage: "show the checkpointed state of a thread",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "thread-id", Required: true},
		},
		Action: func(c *cli.Context) error {
			rt, err := compose(c.Context)
			if err != nil {
				return err
			}
			defer rt.close()

			state, err := rt.orchestrator.State(c.Context, c.String("thread-id"))
			if err != nil {
				return err
			}

			printState(state)
			return nil
		},
	}
}

func batchCommand() *cli.Command {
	return &cli.Command{
		Name:      "batch",
		Usage:     "run the workflow over multiple input directories concurrently",
		ArgsUsage: "dir [dir ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "owner", Usage: "owner attributed to every run"},
			&cli.IntFlag{Name: "concurrency", Value: 2, Usage: "maximum concurrent runs"},
			&cli.BoolFlag{Name: "no-cache", Usage: "bypass the document cache"},
		},
		Action: func(c *cli.Context) error {
			dirs := c.Args().Slice()
			if len(dirs) == 0 {
				return fmt.Errorf("at least one input directory required")
			}

			rt, err := compose(c.Context)
			if err != nil {
				return err
			}
			defer rt.close()

			g, ctx := errgroup.WithContext(c.Context)
			g.SetLimit(c.Int("concurrency"))

			for _, dir := range dirs {
				g.Go(func() error {
					result, err := rt.orchestrator.Run(ctx, orchestrator.RunOptions{
						InputDir: dir,
						OwnerID:  c.String("owner"),
						UseCache: !c.Bool("no-cache"),
					})
					if err != nil {
						return fmt.Errorf("%s: %w", dir, err)
					}

					if result.Suspended() {
						fmt.Printf("%s: suspended for review (thread %s)\n", dir, result.ThreadID)
					} else {
						fmt.Printf("%s: %d documents classified (thread %s)\n",
							dir, len(result.State.ClassifiedDocuments), result.ThreadID)
					}
					return nil
				})
			}

			return g.Wait()
		},
	}
}

func cacheCommand() *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "inspect or clear the document cache",
		Subcommands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "show cache entry counts and size",
				Action: func(c *cli.Context) error {
					rt, err := compose(c.Context)
					if err != nil {
						return err
					}
					defer rt.close()

					stats, err := rt.cache.Stats(c.Context)
					if err != nil {
						return err
					}

					fmt.Printf("Entries:         %d\n", stats.Entries)
					fmt.Printf("Extractions:     %d\n", stats.Extractions)
					fmt.Printf("Classifications: %d\n", stats.Classifications)
					fmt.Printf("Size:            %s\n", formatting.FormatBytes(stats.SizeBytes, 1))
					return nil
				},
			},
			{
				Name:  "clear",
				Usage: "remove all cache entries",
				Action: func(c *cli.Context) error {
					rt, err := compose(c.Context)
					if err != nil {
						return err
					}
					defer rt.close()

					if err := rt.cache.Clear(c.Context); err != nil {
						return err
					}
					fmt.Println("Cache cleared.")
					return nil
				},
			},
		},
	}
}

func reportsCommand() *cli.Command {
	return &cli.Command{
		Name:  "reports",
		Usage: "list generated reports",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "owner", Usage: "limit to an owner's reports"},
		},
		Action: func(c *cli.Context) error {
			rt, err := compose(c.Context)
			if err != nil {
				return err
			}
			defer rt.close()

			records, err := rt.registry.List(c.Context, c.String("owner"))
			if err != nil {
				return err
			}

			if len(records) == 0 {
				fmt.Println("No reports registered.")
				return nil
			}

			for _, rec := range records {
				owner := rec.OwnerID
				if owner == "" {
					owner = "-"
				}
				fmt.Printf("%4d  %-32s  %3d docs  owner=%-12s  %s\n",
					rec.ID, rec.FileName, rec.DocumentCount, owner,
					rec.CreatedAt.Local().Format("2006-01-02 15:04"),
				)
			}
			return nil
		},
	}
}

// promptForDecisions collects review decisions interactively on stdin.
func promptForDecisions(prompt *workflow.ReviewPrompt) (map[string]string, error) {
	fmt.Printf("\n%s\n", prompt.Message)
	fmt.Printf("Valid categories: %s\n", strings.Join(prompt.Categories, ", "))
	fmt.Printf("Enter a category, %q to confirm, or %q to leave unchanged.\n\n",
		workflow.DecisionConfirmUnknown, workflow.DecisionSkip)

	reader := bufio.NewReader(os.Stdin)
	decisions := map[string]string{}

	for _, doc := range prompt.Documents {
		fmt.Printf("%s (%d pages)\n", doc.FileName, doc.PageCount)
		if doc.Summary != "" {
			fmt.Printf("  %s\n", doc.Summary)
		}
		fmt.Print("> ")

		line, err := reader.ReadString('\n')
		if err != nil {
			return nil, fmt.Errorf("read decision: %w", err)
		}
		if decision := strings.TrimSpace(line); decision != "" {
			decisions[doc.FileName] = decision
		}
	}

	return decisions, nil
}

func printResult(result *engine.Result) {
	if result.Suspended() {
		fmt.Printf("Run suspended: %s\n", result.Prompt.Message)
		fmt.Printf("Resume with: dossier resume --thread-id %s file=decision ...\n", result.ThreadID)
		return
	}

	fmt.Printf("Thread: %s\n", result.ThreadID)
	printState(result.State)
}

func printState(state *workflow.State) {
	fmt.Printf("Documents extracted:  %d\n", len(state.ExtractedDocuments))
	fmt.Printf("Documents classified: %d\n", len(state.ClassifiedDocuments))

	if len(state.ClassificationSummary) > 0 {
		fmt.Println("\nClassification breakdown:")
		categories := make([]string, 0, len(state.ClassificationSummary))
		for category := range state.ClassificationSummary {
			categories = append(categories, category)
		}
		sort.Strings(categories)
		for _, category := range categories {
			info := state.ClassificationSummary[category]
			fmt.Printf("  %-32s %3d docs (avg conf: %.0f%%)\n", category, info.Count, info.AvgConfidence*100)
		}
	}

	if state.ReportGenerated {
		fmt.Printf("\nReport: %s\n", state.ReportPath)
	} else {
		fmt.Println("\nNo report was generated.")
	}

	if errs := state.AllErrors(); len(errs) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(errs))
		for _, e := range errs {
			doc := ""
			if e.Document != "" {
				doc = fmt.Sprintf(" (%s)", e.Document)
			}
			fmt.Printf("  [%s] %s%s: %s\n", strings.ToUpper(string(e.Severity)), e.Code, doc, e.Message)
		}
	}
}
