package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"prosperdash/internal/catalog"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.json")
	doc := `{
		"2764": {"question_text": "How confident are you in the economy?"},
		"310": {"question_text": "Do you plan to purchase a vehicle this year?"},
		"42": {"question_text": "How often do you shop online?"}
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

func typeString(t *testing.T, m PickerModel, text string) PickerModel {
	t.Helper()
	for _, r := range text {
		next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		m = next.(PickerModel)
	}
	return m
}

func TestPickerFiltersAsYouType(t *testing.T) {
	m := NewPicker(testCatalog(t))
	if len(m.matches) != 3 {
		t.Fatalf("initial matches = %d, want 3", len(m.matches))
	}

	m = typeString(t, m, "vehicle")
	if len(m.matches) != 1 {
		t.Fatalf("matches after filter = %d, want 1", len(m.matches))
	}
	if m.matches[0].ID != "310" {
		t.Fatalf("filtered match = %s, want 310", m.matches[0].ID)
	}
}

func TestPickerEnterSelectsCurrentRow(t *testing.T) {
	m := typeString(t, NewPicker(testCatalog(t)), "vehicle")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(PickerModel)

	q, ok := m.Choice()
	if !ok {
		t.Fatal("expected a choice after enter")
	}
	if q.ID != "310" {
		t.Fatalf("choice = %s, want 310", q.ID)
	}
}

func TestPickerEscCancels(t *testing.T) {
	m := NewPicker(testCatalog(t))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(PickerModel)

	if _, ok := m.Choice(); ok {
		t.Fatal("cancelled picker should not carry a choice")
	}
	if !m.quitting {
		t.Fatal("esc should quit the picker")
	}
}

func TestPickerEnterWithNoMatches(t *testing.T) {
	m := typeString(t, NewPicker(testCatalog(t)), "zzzz-no-such-question")
	if len(m.matches) != 0 {
		t.Fatalf("matches = %d, want 0", len(m.matches))
	}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(PickerModel)

	if _, ok := m.Choice(); ok {
		t.Fatal("no choice should be made with zero matches")
	}
}

func TestPickerViewListsMatchCount(t *testing.T) {
	m := NewPicker(testCatalog(t))
	view := m.View()
	if !strings.Contains(view, "3 matches") {
		t.Fatalf("view missing match count:\n%s", view)
	}
	if !strings.Contains(view, "Pick a question") {
		t.Fatal("view missing title")
	}
}
