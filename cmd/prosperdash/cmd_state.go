package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"prosperdash/internal/prosper"
	"prosperdash/internal/state"
)

var (
	stateAddSegment string
	stateAddMonths  int
	stateAddEnd     string
	stateAddNoCache bool
)

// stateCmd manages saved analysis states.
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Manage saved analysis states",
	Long: `A saved state is a named collection of questions with the data that
was current when each was added. States feed the report command and are
browsable in the web dashboard.`,
}

var stateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved states, newest first",
	Args:  cobra.NoArgs,
	RunE:  runStateList,
}

var stateShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show the questions saved in a state",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateShow,
}

var stateAddCmd = &cobra.Command{
	Use:   "add <name> <question-id>",
	Short: "Fetch a question and add it to a state",
	Long: `Fetches current data for the question and stores it in the named
state, creating the state if needed. The same question with the same
segment and time window is refused as a duplicate.`,
	Args: cobra.ExactArgs(2),
	RunE: runStateAdd,
}

var stateDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a saved state",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateDelete,
}

func init() {
	stateAddCmd.Flags().StringVar(&stateAddSegment, "segment", prosper.SegmentNational, "Respondent segment filter")
	stateAddCmd.Flags().IntVar(&stateAddMonths, "months", 12, "Trend window in months (0 = latest wave only)")
	stateAddCmd.Flags().StringVar(&stateAddEnd, "end", "", "Trend end date (YYYY-MM-DD)")
	stateAddCmd.Flags().BoolVar(&stateAddNoCache, "no-cache", false, "Bypass the response cache")

	stateCmd.AddCommand(stateListCmd)
	stateCmd.AddCommand(stateShowCmd)
	stateCmd.AddCommand(stateAddCmd)
	stateCmd.AddCommand(stateDeleteCmd)
}

func runStateList(cmd *cobra.Command, args []string) error {
	cfg, wd, err := loadConfig()
	if err != nil {
		return err
	}
	infos, err := stateStore(cfg, wd).List()
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Println("No saved states. Create one with 'prosperdash state add <name> <question-id>'.")
		return nil
	}
	for _, info := range infos {
		fmt.Printf("%-28s %-12s %d questions\n", info.Name, shortStamp(info.Timestamp), info.Questions)
	}
	fmt.Printf("Total: %d states\n", len(infos))
	return nil
}

func runStateShow(cmd *cobra.Command, args []string) error {
	cfg, wd, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := stateStore(cfg, wd).Load(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("%s (saved %s)\n\n", st.Name, shortStamp(st.Timestamp))
	if len(st.SavedQuestions) == 0 {
		fmt.Println("No questions in this state.")
		return nil
	}
	for _, q := range st.SavedQuestions {
		label := q.SegmentLabel
		if label == "" {
			label = prosper.DescribeSegment(q.Segment)
		}
		window := "latest wave"
		if q.Months > 0 {
			window = fmt.Sprintf("%d months", q.Months)
		}
		text := q.QuestionText
		if text == "" {
			text = "(no text)"
		}
		fmt.Printf("  %8s  %s\n", q.QuestionID, truncateStr(text, 60))
		fmt.Printf("            %s, %s, saved %s\n", label, window, shortStamp(q.SavedAt))
	}
	fmt.Printf("\nTotal: %d questions\n", len(st.SavedQuestions))
	return nil
}

func runStateAdd(cmd *cobra.Command, args []string) error {
	name, id := args[0], args[1]
	if _, err := prosper.ParseSegment(stateAddSegment); err != nil {
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
	client, closeCache, err := newAPIClient(cfg, env, wd, stateAddNoCache)
	if err != nil {
		return err
	}
	defer closeCache()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	saved, err := fetchSavedQuestion(ctx, client, id, stateAddSegment, stateAddMonths, stateAddEnd)
	if err != nil {
		return err
	}

	store := stateStore(cfg, wd)
	st, err := store.Load(name)
	if errors.Is(err, state.ErrStateNotFound) {
		st = &state.State{Name: name}
	} else if err != nil {
		return err
	}

	if err := st.Add(*saved); err != nil {
		return err
	}
	if err := store.Save(st); err != nil {
		return err
	}
	fmt.Printf("Added question %s to state %s (%d questions)\n", id, name, len(st.SavedQuestions))
	return nil
}

func runStateDelete(cmd *cobra.Command, args []string) error {
	cfg, wd, err := loadConfig()
	if err != nil {
		return err
	}
	if err := stateStore(cfg, wd).Delete(args[0]); err != nil {
		return err
	}
	fmt.Printf("Deleted state %s\n", args[0])
	return nil
}

// fetchSavedQuestion pulls current metadata and data for a question the
// way the dashboard stores it: months > 0 captures a trend, otherwise
// the latest wave.
func fetchSavedQuestion(ctx context.Context, client *prosper.Client, id, segment string, months int, end string) (*state.SavedQuestion, error) {
	meta, err := client.Metadata(ctx, id)
	if err != nil {
		return nil, err
	}

	var payload any
	if months > 0 {
		points, err := client.Trend(ctx, id, segment, months, end, 1)
		if err != nil {
			return nil, err
		}
		payload = points
	} else {
		point, err := client.Data(ctx, id, segment)
		if err != nil {
			return nil, err
		}
		payload = point
	}

	metaRaw, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	dataRaw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &state.SavedQuestion{
		QuestionID:   id,
		QuestionText: meta.Text,
		Metadata:     metaRaw,
		Data:         dataRaw,
		Segment:      segment,
		SegmentLabel: prosper.DescribeSegment(segment),
		Months:       months,
		EndDate:      end,
	}, nil
}
