package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"prosperdash/internal/prosper"
	"prosperdash/internal/render"
)

var (
	dataSegment   string
	dataMonths    int
	dataEnd       string
	dataIncrement int
	dataTrend     bool
	dataChart     string
	dataJSON      bool
	dataNoCache   bool
)

// dataCmd pulls live results for one question.
var dataCmd = &cobra.Command{
	Use:   "data <question-id>",
	Short: "Fetch survey results for a question",
	Long: `Fetches the latest wave for a question, or a monthly trend with
--months/--trend. Segments use the API grammar: 'qid~aid' filters by an
answer, '^' ORs answers within a question, '|' ANDs questions.

  prosperdash data 2764
  prosperdash data 2764 --trend --chart trend.png
  prosperdash data 2764 --months 24 --segment '31~2|310~1^2'`,
	Args: cobra.ExactArgs(1),
	RunE: runData,
}

func init() {
	dataCmd.Flags().StringVar(&dataSegment, "segment", prosper.SegmentNational, "Respondent segment filter")
	dataCmd.Flags().IntVar(&dataMonths, "months", 0, "Trend over the last N months (0 = latest wave only)")
	dataCmd.Flags().StringVar(&dataEnd, "end", "", "Trend end date (YYYY-MM-DD, default most recent)")
	dataCmd.Flags().IntVar(&dataIncrement, "increment", 1, "Months between trend points")
	dataCmd.Flags().BoolVar(&dataTrend, "trend", false, "Shorthand for --months 12")
	dataCmd.Flags().StringVar(&dataChart, "chart", "", "Write a PNG chart to this file")
	dataCmd.Flags().BoolVar(&dataJSON, "json", false, "Print the raw API payload")
	dataCmd.Flags().BoolVar(&dataNoCache, "no-cache", false, "Bypass the response cache")
}

func runData(cmd *cobra.Command, args []string) error {
	id := args[0]
	if _, err := prosper.ParseSegment(dataSegment); err != nil {
		return err
	}
	months := dataMonths
	if months == 0 && dataTrend {
		months = 12
	}

	cfg, wd, err := loadConfig()
	if err != nil {
		return err
	}
	env, err := runtimeEnv(cfg, wd)
	if err != nil {
		return err
	}
	client, closeCache, err := newAPIClient(cfg, env, wd, dataNoCache)
	if err != nil {
		return err
	}
	defer closeCache()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	meta, err := client.Metadata(ctx, id)
	if err != nil {
		return err
	}

	if months > 0 {
		points, err := client.Trend(ctx, id, dataSegment, months, dataEnd, dataIncrement)
		if err != nil {
			return err
		}
		if dataJSON {
			return printJSON(points)
		}
		printHeader(meta, id)
		printTrend(meta, points)
		if dataChart != "" {
			subtitle := fmt.Sprintf("%s, last %d months", prosper.DescribeSegment(dataSegment), months)
			img, err := render.TrendChart(meta, points, subtitle)
			if err != nil {
				return err
			}
			return writeChart(dataChart, img)
		}
		return nil
	}

	point, err := client.Data(ctx, id, dataSegment)
	if err != nil {
		return err
	}
	if dataJSON {
		return printJSON(point)
	}
	printHeader(meta, id)
	printWave(meta, *point)
	if dataChart != "" {
		img, err := render.DistributionChart(meta, *point, prosper.DescribeSegment(dataSegment))
		if err != nil {
			return err
		}
		return writeChart(dataChart, img)
	}
	return nil
}

func printHeader(meta *prosper.QuestionMetadata, id string) {
	text := meta.Text
	if text == "" {
		text = "Question " + id
	}
	fmt.Println(text)
	fmt.Printf("Question %s, %s\n\n", id, prosper.DescribeSegment(dataSegment))
}

func printWave(meta *prosper.QuestionMetadata, point prosper.DataPoint) {
	if !point.Valid() {
		fmt.Println("No published results for this wave.")
		return
	}
	fmt.Printf("Wave %s (n=%d)\n", shortStamp(point.StudyDate), point.N)
	for _, res := range point.AnswerResults {
		if v, ok := res.Percent(); ok {
			fmt.Printf("  %-44s %5.1f%%\n", truncateStr(meta.AnswerText(res.ID), 44), v)
		} else {
			fmt.Printf("  %-44s %6s\n", truncateStr(meta.AnswerText(res.ID), 44), "-")
		}
	}
}

func printTrend(meta *prosper.QuestionMetadata, points []prosper.DataPoint) {
	usable := prosper.ValidPoints(points)
	if len(usable) == 0 {
		fmt.Println("No usable waves in the requested window.")
		return
	}
	for i, point := range usable {
		if i > 0 {
			fmt.Println()
		}
		printWave(meta, point)
	}
	fmt.Printf("\n%d of %d waves had published results\n", len(usable), len(points))
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func writeChart(path string, img []byte) error {
	if err := os.WriteFile(path, img, 0o644); err != nil {
		return fmt.Errorf("write chart: %w", err)
	}
	fmt.Printf("Chart written to %s\n", path)
	return nil
}

func truncateStr(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
