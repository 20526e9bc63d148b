package server

import (
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"prosperdash/internal/prosper"
	"prosperdash/internal/state"
)

func TestZZScratchStatePageBody(t *testing.T) {
	dir := t.TempDir()

	api := fakeAPI(t)
	client, err := prosper.NewClient(api.URL, "test-key", "21st")
	if err != nil {
		t.Fatalf("prosper client: %v", err)
	}
	creds, err := NewCredentials(testUser, testPass)
	if err != nil {
		t.Fatalf("credentials: %v", err)
	}
	states := state.NewStore(filepath.Join(dir, "saved_states"), zap.NewNop())

	st := &state.State{Name: "q2-review"}
	if err := st.Add(state.SavedQuestion{
		QuestionID:   "2764",
		QuestionText: "How confident are you in the economy?",
		Segment:      "all",
		Months:       12,
	}); err != nil {
		t.Fatalf("seed state: %v", err)
	}
	if err := states.Save(st); err != nil {
		t.Fatalf("save state: %v", err)
	}

	loaded, err := states.Load("q2-review")
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	t.Logf("loaded state: name=%q questions=%d", loaded.Name, len(loaded.SavedQuestions))
	for i, q := range loaded.SavedQuestions {
		t.Logf("  q[%d]: id=%q text=%q segment=%q months=%d", i, q.QuestionID, q.QuestionText, q.Segment, q.Months)
	}

	srv, err := New(Options{
		SessionKey:  "0123456789abcdef0123456789abcdef",
		Credentials: creds,
		Catalog:     writeCatalog(t, dir),
		API:         client,
		States:      states,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	web := browser(t)
	login(t, web, ts.URL)

	resp, body := get(t, web, ts.URL+"/states")
	t.Logf("/states status=%d contains q2-review=%v", resp.StatusCode, strings.Contains(body, "q2-review"))

	resp, body = get(t, web, ts.URL+"/states/q2-review")
	t.Logf("status=%d contains=%v", resp.StatusCode, strings.Contains(body, "confident in the economy"))
	t.Logf("BODY:\n%s", body)
}
