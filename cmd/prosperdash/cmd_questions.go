package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"prosperdash/internal/catalog"
	"prosperdash/internal/config"
	"prosperdash/internal/tui"
)

var (
	questionsShow        string
	questionsInteractive bool
	questionsLimit       int
)

// questionsCmd searches the local question catalog.
var questionsCmd = &cobra.Command{
	Use:   "questions [terms...]",
	Short: "Search the question catalog",
	Long: `Searches the question catalog by ID or text. All terms must match
(case-insensitive). Without terms, lists the whole catalog.

  prosperdash questions vehicle purchase
  prosperdash questions --show 310
  prosperdash questions -i`,
	RunE: runQuestions,
}

func init() {
	questionsCmd.Flags().StringVar(&questionsShow, "show", "", "Show one question with its API metadata")
	questionsCmd.Flags().BoolVarP(&questionsInteractive, "interactive", "i", false, "Pick a question interactively")
	questionsCmd.Flags().IntVar(&questionsLimit, "limit", 0, "Maximum results to print (0 = all)")
}

func runQuestions(cmd *cobra.Command, args []string) error {
	cfg, wd, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := runtimeEnv(cfg, wd)
	if err != nil {
		return err
	}
	cat, err := openCatalog(cfg, env, wd)
	if err != nil {
		return err
	}

	if questionsShow != "" {
		return showQuestion(cfg, env, wd, cat, questionsShow)
	}

	if questionsInteractive {
		q, ok, err := tui.PickQuestion(cat)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		fmt.Printf("%s\t%s\n", q.ID, q.Text)
		return nil
	}

	matches := cat.Filter(args...)
	for i, q := range matches {
		if questionsLimit > 0 && i >= questionsLimit {
			fmt.Printf("... and %d more\n", len(matches)-questionsLimit)
			break
		}
		fmt.Printf("%8s  %s\n", q.ID, q.Text)
	}
	fmt.Printf("Total: %d of %d questions\n", len(matches), cat.Len())
	return nil
}

func showQuestion(cfg *config.Config, env *config.RuntimeEnv, wd string, cat *catalog.Catalog, id string) error {
	client, closeCache, err := newAPIClient(cfg, env, wd, false)
	if err != nil {
		return err
	}
	defer closeCache()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	meta, err := client.Metadata(ctx, id)
	if err != nil {
		return err
	}

	text := meta.Text
	if text == "" {
		if q, ok := cat.Lookup(id); ok {
			text = q.Text
		}
	}

	fmt.Printf("Question %s\n", id)
	fmt.Printf("  %s\n", text)
	if meta.Type != "" {
		fmt.Printf("  Type: %s\n", meta.Type)
	}
	if meta.FirstAsked != "" || meta.LastAsked != "" {
		fmt.Printf("  Asked: %s to %s\n", shortStamp(meta.FirstAsked), shortStamp(meta.LastAsked))
	}
	if len(meta.Answers) > 0 {
		fmt.Println("  Answers:")
		for _, a := range meta.Answers {
			fmt.Printf("    %4s  %s\n", a.ID, a.Text)
		}
	}
	return nil
}
