package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prosperdash/internal/config"
	"prosperdash/internal/insights"
	"prosperdash/internal/render"
	"prosperdash/internal/state"
)

const refreshConcurrency = 4

var (
	reportType      string
	reportExecutive bool
	reportRefresh   bool
	reportOut       string
	reportNoCache   bool
)

// reportCmd turns a saved state into written analysis.
var reportCmd = &cobra.Command{
	Use:   "report <state>",
	Short: "Generate model-written insights for a saved state",
	Long: `Sends the questions saved in a state to the configured LLM provider
and prints the analysis as styled markdown.

Analysis types: ` + strings.Join(analysisTypeNames(), ", ") + `.
--executive produces a formal report for stakeholders instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportType, "type", string(insights.AnalysisComprehensive), "Analysis type")
	reportCmd.Flags().BoolVar(&reportExecutive, "executive", false, "Write an executive report instead of an analysis")
	reportCmd.Flags().BoolVar(&reportRefresh, "refresh", false, "Refetch each question's data before analyzing")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "Write raw markdown to this file instead of the terminal")
	reportCmd.Flags().BoolVar(&reportNoCache, "no-cache", false, "Bypass the response cache when refreshing")
}

func runReport(cmd *cobra.Command, args []string) error {
	typ, err := insights.ParseAnalysisType(reportType)
	if err != nil {
		return err
	}

	cfg, wd, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := runtimeEnv(cfg, wd)
	if err != nil {
		return err
	}

	store := stateStore(cfg, wd)
	st, err := store.Load(args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if reportRefresh {
		if err := refreshState(ctx, cfg, env, wd, store, st); err != nil {
			return err
		}
	}

	client, err := insights.NewClient(ctx, cfg, env, logger)
	if err != nil {
		return err
	}
	gen := insights.NewGenerator(client, logger)

	genCtx, cancel := context.WithTimeout(ctx, cfg.GetLLMTimeout())
	defer cancel()

	var title, text string
	if reportExecutive {
		title = fmt.Sprintf("Executive report: %s", st.Name)
		text, err = gen.Report(genCtx, st.SavedQuestions)
	} else {
		title = fmt.Sprintf("%s analysis: %s", titleCase(string(typ)), st.Name)
		text, err = gen.Insights(genCtx, st.SavedQuestions, typ)
	}
	if err != nil {
		return err
	}

	if reportOut != "" {
		if err := os.WriteFile(reportOut, []byte(text+"\n"), 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		fmt.Printf("Report written to %s\n", reportOut)
		return nil
	}

	fmt.Println(render.Heading(title))
	fmt.Println(render.Rule(80))
	fmt.Print(render.NewMarkdown(80).Render(text))
	return nil
}

// refreshState refetches every saved question's data in place, bounded
// to a few API calls at a time, and persists the result.
func refreshState(ctx context.Context, cfg *config.Config, env *config.RuntimeEnv, wd string, store *state.Store, st *state.State) error {
	client, closeCache, err := newAPIClient(cfg, env, wd, reportNoCache)
	if err != nil {
		return err
	}
	defer closeCache()

	fmt.Printf("Refreshing %d questions...\n", len(st.SavedQuestions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(refreshConcurrency)
	for i := range st.SavedQuestions {
		g.Go(func() error {
			q := &st.SavedQuestions[i]
			fresh, err := fetchSavedQuestion(gctx, client, q.QuestionID, q.Segment, q.Months, q.EndDate)
			if err != nil {
				return fmt.Errorf("question %s: %w", q.QuestionID, err)
			}
			q.Metadata = fresh.Metadata
			q.Data = fresh.Data
			q.QuestionText = fresh.QuestionText
			q.SavedAt = time.Now().UTC().Format(time.RFC3339)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := store.Save(st); err != nil {
		return err
	}
	logger.Debug("state refreshed", zap.String("state", st.Name), zap.Int("questions", len(st.SavedQuestions)))
	return nil
}

func analysisTypeNames() []string {
	names := make([]string, len(insights.AnalysisTypes))
	for i, t := range insights.AnalysisTypes {
		names[i] = string(t)
	}
	return names
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
