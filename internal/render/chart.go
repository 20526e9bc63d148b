// Package render turns question data into PNG charts and styled
// terminal output for the CLI and the web dashboard.
package render

import (
	"errors"
	"fmt"
	"strings"

	charts "github.com/vicanso/go-charts/v2"

	"prosperdash/internal/prosper"
)

const (
	maxTitleLen  = 96
	maxLegendLen = 40
	maxBarLabel  = 24
)

// TrendChart renders one line per answer option across the usable waves
// of a trend series. Values are response shares on a fixed 0-100 axis.
func TrendChart(meta *prosper.QuestionMetadata, points []prosper.DataPoint, subtitle string) ([]byte, error) {
	waves := prosper.ValidPoints(points)
	if len(waves) < 2 {
		return nil, errors.New("trend chart needs at least two usable waves")
	}

	labels := make([]string, len(waves))
	for i, w := range waves {
		labels[i] = shortDate(w.StudyDate)
	}

	ids := answerOrder(meta, waves)
	if len(ids) == 0 {
		return nil, errors.New("no answer series with results")
	}

	values := make([][]float64, 0, len(ids))
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		series := make([]float64, len(waves))
		last, seen := 0.0, false
		for i, w := range waves {
			if v, ok := waveValue(w, id); ok {
				series[i] = v
				last, seen = v, true
				continue
			}
			// Suppressed waves repeat the neighboring value so the
			// line stays continuous.
			series[i] = last
		}
		if !seen {
			continue
		}
		backfillLeading(series, waves, id)
		values = append(values, series)
		names = append(names, truncate(answerLabel(meta, id), maxLegendLen))
	}
	if len(values) == 0 {
		return nil, errors.New("no answer series with results")
	}

	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
	}

	yMin, yMax := 0.0, 100.0
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(chartTitle(meta), subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels, BoundaryGap: charts.FalseFlag(), SplitNumber: splitFor(len(labels))}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("render trend chart: %w", err)
	}
	return painter.Bytes()
}

// DistributionChart renders a single wave as a bar per answer option.
func DistributionChart(meta *prosper.QuestionMetadata, point prosper.DataPoint, subtitle string) ([]byte, error) {
	if !point.Valid() {
		return nil, errors.New("wave has no usable results")
	}

	labels := make([]string, 0, len(point.AnswerResults))
	values := make([]float64, 0, len(point.AnswerResults))
	for _, r := range point.AnswerResults {
		v, ok := r.Percent()
		if !ok {
			continue
		}
		labels = append(labels, truncate(answerLabel(meta, r.ID), maxBarLabel))
		values = append(values, v)
	}
	if len(values) == 0 {
		return nil, errors.New("wave has no usable results")
	}

	yMin, yMax := 0.0, 100.0
	painter, err := charts.BarRender([][]float64{values},
		charts.TitleTextOptionFunc(chartTitle(meta), subtitle),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: labels}),
		charts.YAxisOptionFunc(charts.YAxisOption{Min: &yMin, Max: &yMax, DivideCount: 5}),
		charts.ThemeOptionFunc(charts.ThemeLight),
	)
	if err != nil {
		return nil, fmt.Errorf("render distribution chart: %w", err)
	}
	return painter.Bytes()
}

// answerOrder lists the answer IDs worth charting, metadata order first,
// then any IDs that only appear in the data.
func answerOrder(meta *prosper.QuestionMetadata, waves []prosper.DataPoint) []prosper.FlexID {
	present := map[prosper.FlexID]bool{}
	for _, w := range waves {
		for _, r := range w.AnswerResults {
			if _, ok := r.Percent(); ok {
				present[r.ID] = true
			}
		}
	}

	ids := make([]prosper.FlexID, 0, len(present))
	seen := map[prosper.FlexID]bool{}
	if meta != nil {
		for _, a := range meta.Answers {
			if present[a.ID] && !seen[a.ID] {
				ids = append(ids, a.ID)
				seen[a.ID] = true
			}
		}
	}
	for _, w := range waves {
		for _, r := range w.AnswerResults {
			if present[r.ID] && !seen[r.ID] {
				ids = append(ids, r.ID)
				seen[r.ID] = true
			}
		}
	}
	return ids
}

func waveValue(w prosper.DataPoint, id prosper.FlexID) (float64, bool) {
	for _, r := range w.AnswerResults {
		if r.ID == id {
			return r.Percent()
		}
	}
	return 0, false
}

// backfillLeading replaces carried zeros before the first real value
// with that value.
func backfillLeading(series []float64, waves []prosper.DataPoint, id prosper.FlexID) {
	for i := range waves {
		if v, ok := waveValue(waves[i], id); ok {
			for j := 0; j < i; j++ {
				series[j] = v
			}
			return
		}
	}
}

func answerLabel(meta *prosper.QuestionMetadata, id prosper.FlexID) string {
	if meta != nil {
		if text := meta.AnswerText(id); text != "Unknown" {
			return text
		}
	}
	return "Answer " + string(id)
}

func chartTitle(meta *prosper.QuestionMetadata) string {
	if meta == nil || strings.TrimSpace(meta.Text) == "" {
		return "Question Results"
	}
	return truncate(meta.Text, maxTitleLen)
}

func shortDate(s string) string {
	if i := strings.IndexAny(s, "T "); i > 0 {
		return s[:i]
	}
	return s
}

func splitFor(n int) int {
	if n > 12 {
		return 12
	}
	return n
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
