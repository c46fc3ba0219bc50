package llm

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegistry_GetPrompt(t *testing.T) {
	registry := NewRegistry()

	prompt, err := registry.GetPrompt(TaskSentimentAnalysis, map[string]string{
		"ticker":    "BTC",
		"news_text": "Bitcoin ETF approved.",
	})
	if err != nil {
		t.Fatalf("GetPrompt() error = %v", err)
	}

	if !strings.Contains(prompt.User, "BTC") {
		t.Error("rendered prompt should contain the ticker")
	}
	if !strings.Contains(prompt.User, "Bitcoin ETF approved.") {
		t.Error("rendered prompt should contain the news text")
	}
	if strings.Contains(prompt.User, "{ticker}") || strings.Contains(prompt.User, "{news_text}") {
		t.Error("rendered prompt should have no remaining placeholders")
	}
	if prompt.System == "" {
		t.Error("prompt should carry a system message")
	}
	if prompt.Version != registry.Version() {
		t.Errorf("prompt version = %q, want registry version %q", prompt.Version, registry.Version())
	}
}

func TestRegistry_MissingVariable(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.GetPrompt(TaskSentimentAnalysis, map[string]string{
		"ticker": "BTC",
		// news_text deliberately missing
	})
	if err == nil {
		t.Fatal("GetPrompt() expected error for missing variable")
	}

	var missing *MissingVariableError
	if !errors.As(err, &missing) {
		t.Fatalf("error type = %T, want *MissingVariableError", err)
	}
	if missing.Variable != "news_text" {
		t.Errorf("Variable = %q, want news_text", missing.Variable)
	}
}

func TestRegistry_UnknownTask(t *testing.T) {
	registry := NewRegistry()

	if _, err := registry.GetPrompt(Task("nonsense"), nil); err == nil {
		t.Fatal("GetPrompt() expected error for unknown task")
	}
}

func TestRegistry_JSONExamplesSurvivesSubstitution(t *testing.T) {
	registry := NewRegistry()

	// The JSON schema examples in templates use quoted keys, which must not
	// be treated as placeholders.
	prompt, err := registry.GetPrompt(TaskMarketSummary, map[string]string{
		"ticker":        "ETH",
		"news_text":     "news",
		"price_summary": "prices",
	})
	if err != nil {
		t.Fatalf("GetPrompt() error = %v", err)
	}
	if !strings.Contains(prompt.User, `"summary"`) {
		t.Error("JSON schema example should survive substitution")
	}
}

func TestRegistry_Tasks(t *testing.T) {
	registry := NewRegistry()

	tasks := registry.Tasks()
	if len(tasks) != 5 {
		t.Fatalf("Tasks() = %v, want 5 entries", tasks)
	}
	for i := 1; i < len(tasks); i++ {
		if tasks[i-1] >= tasks[i] {
			t.Errorf("Tasks() not sorted: %v", tasks)
		}
	}
}

func TestRegistry_LoadOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	override := `
sentiment_analysis:
  system: "Custom system."
  user: "Custom analysis of {ticker}: {news_text}"
`
	if err := os.WriteFile(path, []byte(override), 0o600); err != nil {
		t.Fatal(err)
	}

	registry := NewRegistry()
	if err := registry.LoadOverrides(path); err != nil {
		t.Fatalf("LoadOverrides() error = %v", err)
	}

	prompt, err := registry.GetPrompt(TaskSentimentAnalysis, map[string]string{
		"ticker":    "SOL",
		"news_text": "n",
	})
	if err != nil {
		t.Fatalf("GetPrompt() error = %v", err)
	}
	if prompt.System != "Custom system." {
		t.Errorf("System = %q, want override applied", prompt.System)
	}
	if prompt.User != "Custom analysis of SOL: n" {
		t.Errorf("User = %q, want override rendered", prompt.User)
	}
}

func TestRegistry_LoadOverrides_UnknownTask(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	if err := os.WriteFile(path, []byte("made_up_task:\n  system: s\n  user: u\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	registry := NewRegistry()
	if err := registry.LoadOverrides(path); err == nil {
		t.Fatal("LoadOverrides() expected error for unknown task name")
	}
}

func TestRegistry_LoadOverrides_IncompleteTemplate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yaml")
	if err := os.WriteFile(path, []byte("sentiment_analysis:\n  user: only user\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	registry := NewRegistry()
	if err := registry.LoadOverrides(path); err == nil {
		t.Fatal("LoadOverrides() expected error when system is missing")
	}
}
