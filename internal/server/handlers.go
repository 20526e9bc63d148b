package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"prosperdash/internal/catalog"
	"prosperdash/internal/prosper"
	"prosperdash/internal/render"
	"prosperdash/internal/state"
)

const defaultTrendMonths = 12

type loginView struct {
	Title  string
	Error  string
	Return string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.sessions.IsAuthenticated(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderPage(w, "login", loginView{
		Title:  "Sign in",
		Return: r.URL.Query().Get("return"),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	if !s.creds.Verify(username, password) {
		s.logger.Warn("rejected login", zap.String("username", username))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusUnauthorized)
		s.renderPage(w, "login", loginView{
			Title:  "Sign in",
			Error:  "Invalid username or password.",
			Return: r.PostFormValue("return"),
		})
		return
	}

	if err := s.sessions.SignIn(w, r); err != nil {
		s.logger.Error("session save failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, safeReturn(r.PostFormValue("return")), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.SignOut(w, r); err != nil {
		s.logger.Warn("logout failed", zap.Error(err))
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

type homeView struct {
	Title   string
	Query   string
	Results []catalog.Question
	Total   int
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	s.renderPage(w, "home", homeView{
		Title:   "Questions",
		Query:   query,
		Results: s.catalog.Filter(strings.Fields(query)...),
		Total:   s.catalog.Len(),
	})
}

type answerRow struct {
	Text  string
	Value string
}

type questionView struct {
	Title    string
	ID       string
	Text     string
	Type     string
	Asked    string
	Segment  string
	Months   int
	ChartURL string
	WaveDate string
	WaveN    int
	Rows     []answerRow
	Error    string
}

func (s *Server) handleQuestion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	question, ok := s.catalog.Lookup(id)
	if !ok {
		http.NotFound(w, r)
		return
	}

	segment, months := chartParams(r)
	view := questionView{
		Title:    "Question " + id,
		ID:       id,
		Text:     question.Text,
		Segment:  segment,
		Months:   months,
		ChartURL: chartURL(id, segment, months),
	}

	var (
		meta  *prosper.QuestionMetadata
		point *prosper.DataPoint
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		m, err := s.api.Metadata(ctx, id)
		if err != nil {
			return err
		}
		meta = m
		return nil
	})
	g.Go(func() error {
		p, err := s.api.Data(ctx, id, segment)
		if err != nil {
			return err
		}
		point = p
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Warn("question fetch failed", zap.String("question", id), zap.Error(err))
		view.Error = "Could not load live data: " + err.Error()
		s.renderPage(w, "question", view)
		return
	}

	if meta.Text != "" {
		view.Text = meta.Text
	}
	view.Type = meta.Type
	view.Asked = askedRange(meta)

	if point.Valid() {
		view.WaveDate = shortDate(point.StudyDate)
		view.WaveN = point.N
		for _, res := range point.AnswerResults {
			v, ok := res.Percent()
			if !ok {
				continue
			}
			view.Rows = append(view.Rows, answerRow{
				Text:  meta.AnswerText(res.ID),
				Value: fmt.Sprintf("%.1f%%", v),
			})
		}
	}

	s.renderPage(w, "question", view)
}

// handleQuestionChart draws the trend for a question, or the latest
// wave's distribution when fewer than two usable waves exist.
func (s *Server) handleQuestionChart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	segment, months := chartParams(r)
	ctx := r.Context()

	meta, err := s.api.Metadata(ctx, id)
	if err != nil {
		s.logger.Warn("chart metadata fetch failed", zap.String("question", id), zap.Error(err))
		http.Error(w, "upstream API error", http.StatusBadGateway)
		return
	}

	subtitle := fmt.Sprintf("%s, last %d months", prosper.DescribeSegment(segment), months)

	var img []byte
	points, err := s.api.Trend(ctx, id, segment, months, "", 1)
	if err == nil && len(prosper.ValidPoints(points)) >= 2 {
		img, err = render.TrendChart(meta, points, subtitle)
	} else {
		var point *prosper.DataPoint
		point, err = s.api.Data(ctx, id, segment)
		if err == nil {
			img, err = render.DistributionChart(meta, *point, prosper.DescribeSegment(segment))
		}
	}
	if err != nil {
		s.logger.Warn("chart render failed", zap.String("question", id), zap.Error(err))
		http.Error(w, "no chartable data", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=300")
	if _, err := w.Write(img); err != nil {
		s.logger.Debug("chart write aborted", zap.Error(err))
	}
}

type statesView struct {
	Title  string
	States []state.StateInfo
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	infos, err := s.states.List()
	if err != nil {
		s.logger.Error("state listing failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.renderPage(w, "states", statesView{Title: "Saved states", States: infos})
}

type savedQuestionRow struct {
	QuestionID string
	Text       string
	Segment    string
	Months     int
	SavedAt    string
}

type stateView struct {
	Title     string
	Name      string
	Timestamp string
	Questions []savedQuestionRow
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	fmt.Fprintf(os.Stderr, "DEBUG handleState: name=%q storeDir=%q\n", name, s.states.Dir())
	st, err := s.states.Load(name)
	fmt.Fprintf(os.Stderr, "DEBUG handleState: load err=%v st=%+v\n", err, st)
	if err != nil {
		if errors.Is(err, state.ErrStateNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("state load failed", zap.String("state", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	view := stateView{
		Title:     "State " + st.Name,
		Name:      st.Name,
		Timestamp: shortDate(st.Timestamp),
	}
	for _, q := range st.SavedQuestions {
		label := q.SegmentLabel
		if label == "" {
			label = prosper.DescribeSegment(q.Segment)
		}
		text := q.QuestionText
		if text == "" {
			if meta, err := q.DecodeMetadata(); err == nil && meta != nil {
				text = meta.Text
			}
		}
		view.Questions = append(view.Questions, savedQuestionRow{
			QuestionID: q.QuestionID,
			Text:       text,
			Segment:    label,
			Months:     q.Months,
			SavedAt:    shortDate(q.SavedAt),
		})
	}
	fmt.Fprintf(os.Stderr, "DEBUG handleState: view=%+v\n", view)
	s.renderPage(w, "state", view)
}

func (s *Server) handleStateDelete(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := s.states.Delete(name); err != nil {
		if errors.Is(err, state.ErrStateNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("state delete failed", zap.String("state", name), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	s.logger.Info("state deleted", zap.String("state", name))
	http.Redirect(w, r, "/states", http.StatusSeeOther)
}

func chartURL(id, segment string, months int) string {
	q := url.Values{}
	q.Set("segment", segment)
	q.Set("months", strconv.Itoa(months))
	return "/questions/" + url.PathEscape(id) + "/chart.png?" + q.Encode()
}

func chartParams(r *http.Request) (segment string, months int) {
	segment = r.URL.Query().Get("segment")
	if strings.TrimSpace(segment) == "" {
		segment = prosper.SegmentNational
	}
	months = defaultTrendMonths
	if v := r.URL.Query().Get("months"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 120 {
			months = n
		}
	}
	return segment, months
}

func askedRange(meta *prosper.QuestionMetadata) string {
	first := shortDate(meta.FirstAsked)
	last := shortDate(meta.LastAsked)
	switch {
	case first == "" && last == "":
		return ""
	case first == "":
		return "through " + last
	case last == "":
		return "since " + first
	default:
		return first + " to " + last
	}
}

func shortDate(s string) string {
	if i := strings.IndexAny(s, "T "); i > 0 {
		return s[:i]
	}
	return s
}
