package server

import (
	"bytes"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"prosperdash/internal/catalog"
	"prosperdash/internal/prosper"
	"prosperdash/internal/state"
)

const (
	testUser = "admin"
	testPass = "letmein"
)

const metadataBody = `{
	"ID": 2764,
	"Text": "How confident are you in the economy?",
	"Type": "Single Choice",
	"FirstAsked": "2020-01-01T00:00:00",
	"LastAsked": "2025-06-01T00:00:00",
	"Answers": [
		{"ID": 1, "Text": "Very confident"},
		{"ID": 2, "Text": "Somewhat confident"}
	]
}`

const dataBody = `{
	"StudyDate": "2025-06-01T00:00:00",
	"N": 512,
	"AnswerResults": [
		{"ID": 1, "Result": 0.423},
		{"ID": 2, "Result": 0.311}
	]
}`

const trendBody = `[
	{"StudyDate": "2025-04-01T00:00:00", "N": 498, "AnswerResults": [{"ID": 1, "Result": 0.401}, {"ID": 2, "Result": 0.322}]},
	{"StudyDate": "2025-05-01T00:00:00", "N": 505, "AnswerResults": [{"ID": 1, "Result": 0.415}, {"ID": 2, "Result": 0.318}]},
	{"StudyDate": "2025-06-01T00:00:00", "N": 512, "AnswerResults": [{"ID": 1, "Result": 0.423}, {"ID": 2, "Result": 0.311}]}
]`

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/metadata/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, metadataBody)
	})
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, dataBody)
	})
	mux.HandleFunc("/datatrend/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, trendBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeCatalog(t *testing.T, dir string) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(dir, "questions.json")
	doc := `{
		"2764": {"question_text": "How confident are you in the economy?"},
		"310": {"question_text": "Do you plan to purchase a vehicle this year?"}
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write questions file: %v", err)
	}
	c, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return c
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
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
	return ts
}

// browser returns a client with a cookie jar that does not follow
// redirects, so tests can assert on Location headers.
func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func login(t *testing.T, client *http.Client, base string) {
	t.Helper()
	form := url.Values{"username": {testUser}, "password": {testPass}}
	resp, err := client.PostForm(base+"/login", form)
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
}

func get(t *testing.T, client *http.Client, rawURL string) (*http.Response, string) {
	t.Helper()
	resp, err := client.Get(rawURL)
	if err != nil {
		t.Fatalf("GET %s: %v", rawURL, err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, string(body)
}

func TestAnonymousRequestsRedirectToLogin(t *testing.T) {
	ts := newTestServer(t)
	client := browser(t)

	for _, path := range []string{"/", "/questions/2764", "/states"} {
		resp, _ := get(t, client, ts.URL+path)
		if resp.StatusCode != http.StatusSeeOther {
			t.Errorf("GET %s status = %d, want %d", path, resp.StatusCode, http.StatusSeeOther)
		}
		loc := resp.Header.Get("Location")
		if !strings.HasPrefix(loc, "/login?return=") {
			t.Errorf("GET %s redirected to %q, want /login?return=...", path, loc)
		}
	}
}

func TestLoginFlow(t *testing.T) {
	ts := newTestServer(t)
	client := browser(t)

	form := url.Values{"username": {testUser}, "password": {testPass}, "return": {"/states"}}
	resp, err := client.PostForm(ts.URL+"/login", form)
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("login status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}
	if loc := resp.Header.Get("Location"); loc != "/states" {
		t.Fatalf("login redirected to %q, want /states", loc)
	}

	resp, body := get(t, client, ts.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / after login status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "Question search") {
		t.Fatal("home page missing the search form")
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	ts := newTestServer(t)
	client := browser(t)

	form := url.Values{"username": {testUser}, "password": {"wrong"}}
	resp, err := client.PostForm(ts.URL+"/login", form)
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	if !strings.Contains(string(body), "Invalid username or password") {
		t.Fatal("error message missing from login page")
	}

	// Session must not be established.
	resp, _ = get(t, client, ts.URL+"/")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("GET / after failed login status = %d, want redirect", resp.StatusCode)
	}
}

func TestLoginIgnoresOffsiteReturn(t *testing.T) {
	ts := newTestServer(t)
	client := browser(t)

	form := url.Values{
		"username": {testUser},
		"password": {testPass},
		"return":   {"https://example.com/phish"},
	}
	resp, err := client.PostForm(ts.URL+"/login", form)
	if err != nil {
		t.Fatalf("POST /login: %v", err)
	}
	resp.Body.Close()
	if loc := resp.Header.Get("Location"); loc != "/" {
		t.Fatalf("offsite return redirected to %q, want /", loc)
	}
}

func TestLogoutEndsSession(t *testing.T) {
	ts := newTestServer(t)
	client := browser(t)
	login(t, client, ts.URL)

	resp, err := client.PostForm(ts.URL+"/logout", nil)
	if err != nil {
		t.Fatalf("POST /logout: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("logout status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}

	resp, _ = get(t, client, ts.URL+"/")
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("GET / after logout status = %d, want redirect", resp.StatusCode)
	}
}

func TestHomeSearchFiltersCatalog(t *testing.T) {
	ts := newTestServer(t)
	client := browser(t)
	login(t, client, ts.URL)

	resp, body := get(t, client, ts.URL+"/?q=vehicle")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "purchase a vehicle") {
		t.Fatal("matching question missing from results")
	}
	if strings.Contains(body, "confident in the economy") {
		t.Fatal("non-matching question leaked into results")
	}
}

func TestQuestionPageShowsLatestWave(t *testing.T) {
	ts := newTestServer(t)
	client := browser(t)
	login(t, client, ts.URL)

	resp, body := get(t, client, ts.URL+"/questions/2764")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{
		"How confident are you in the economy?",
		"Very confident",
		"42.3%",
		"n=512",
		"chart.png",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("question page missing %q", want)
		}
	}
}

func TestQuestionPageUnknownID(t *testing.T) {
	ts := newTestServer(t)
	client := browser(t)
	login(t, client, ts.URL)

	resp, _ := get(t, client, ts.URL+"/questions/99999")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestChartServesPNG(t *testing.T) {
	ts := newTestServer(t)
	client := browser(t)
	login(t, client, ts.URL)

	resp, body := get(t, client, ts.URL+"/questions/2764/chart.png?months=3")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("Content-Type = %q, want image/png", ct)
	}
	magic := []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	if !bytes.HasPrefix([]byte(body), magic) {
		t.Fatal("response body is not a PNG")
	}
}

func TestStateLifecycle(t *testing.T) {
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
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /states status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "q2-review") {
		t.Fatal("saved state missing from listing")
	}

	resp, body = get(t, web, ts.URL+"/states/q2-review")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /states/q2-review status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, "confident in the economy") {
		t.Fatal("saved question missing from state page")
	}

	resp, err = web.PostForm(ts.URL+"/states/q2-review/delete", nil)
	if err != nil {
		t.Fatalf("POST delete: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("delete status = %d, want %d", resp.StatusCode, http.StatusSeeOther)
	}

	resp, _ = get(t, web, ts.URL+"/states/q2-review")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted state status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthzIsPublic(t *testing.T) {
	ts := newTestServer(t)
	client := browser(t)

	resp, body := get(t, client, ts.URL+"/healthz")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(body, `"ok"`) {
		t.Fatalf("unexpected health body: %q", body)
	}
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := NewCredentials("", ""); err == nil {
		t.Fatal("expected an error for empty credentials")
	}
	if _, err := New(Options{}); err == nil {
		t.Fatal("expected an error when credentials are missing")
	}
}
