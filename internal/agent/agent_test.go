package agent

import (
	"testing"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"

	"github.com/qametric/qametric/internal/memory"
)

func TestConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing genkit", Config{}},
		{"missing tools", Config{Genkit: nil, Sessions: memory.NewSessionStore(0)}},
		{"missing model name", Config{Sessions: memory.NewSessionStore(0), Projects: memory.NewProjectStore()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tt.cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestHistoryMessagesConversion(t *testing.T) {
	t.Parallel()

	conv := memory.NewConversation(0)
	conv.AddHumanMessage("how many cases in WEB?")
	conv.AddAIMessage("WEB has 120 test cases.")
	conv.AddHumanMessage("and how many are automated?")

	msgs := historyMessages(conv)
	if len(msgs) != 3 {
		t.Fatalf("got %d messages, want 3", len(msgs))
	}
	if msgs[0].Role != ai.RoleUser || msgs[1].Role != ai.RoleModel || msgs[2].Role != ai.RoleUser {
		t.Errorf("roles = %v %v %v", msgs[0].Role, msgs[1].Role, msgs[2].Role)
	}
	if msgs[1].Content[0].Text != "WEB has 120 test cases." {
		t.Errorf("content lost: %q", msgs[1].Content[0].Text)
	}
}

func TestHistoryMessagesEmpty(t *testing.T) {
	t.Parallel()

	if msgs := historyMessages(memory.NewConversation(0)); len(msgs) != 0 {
		t.Errorf("got %d messages, want 0", len(msgs))
	}
}

// storesOnlyAgent builds an Agent wired to stores but no model, enough
// to exercise the state management methods.
func storesOnlyAgent() *Agent {
	return &Agent{
		sessions:  memory.NewSessionStore(20),
		projects:  memory.NewProjectStore(),
		names:     []string{"getProjects", "getCases", "getRuns", "getResults"},
		modelName: "googleai/gemini-2.5-flash",
		maxTurns:  5,
		limiter:   rate.NewLimiter(rate.Inf, 1),
	}
}

func TestSetAndClearProject(t *testing.T) {
	t.Parallel()

	a := storesOnlyAgent()
	if got := a.Project("u1"); got != "" {
		t.Errorf("Project before set = %q", got)
	}

	a.SetProject("u1", "WEB")
	if got := a.Project("u1"); got != "WEB" {
		t.Errorf("Project = %q, want WEB", got)
	}
	if got := a.Project("u2"); got != "" {
		t.Errorf("other user's project = %q, want empty", got)
	}

	a.SetProject("u1", "API")
	if got := a.Project("u1"); got != "API" {
		t.Errorf("Project after overwrite = %q, want API", got)
	}
}

func TestClearHistoryKeepsProject(t *testing.T) {
	t.Parallel()

	a := storesOnlyAgent()
	a.SetProject("u1", "WEB")
	conv := a.sessions.Get("u1")
	conv.AddHumanMessage("hi")
	conv.AddAIMessage("hello")

	a.ClearHistory("u1")

	if count := conv.Count(); count != 0 {
		t.Errorf("history count = %d after clear", count)
	}
	if got := a.Project("u1"); got != "WEB" {
		t.Errorf("project context lost on history clear: %q", got)
	}
}

func TestClearHistoryUnknownUser(t *testing.T) {
	t.Parallel()

	a := storesOnlyAgent()
	a.ClearHistory("nobody")
	if a.sessions.Has("nobody") {
		t.Error("clearing an unknown user must not create a session")
	}
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	a := storesOnlyAgent()
	a.SetProject("u1", "WEB")
	conv := a.sessions.Get("u1")
	conv.AddHumanMessage("hi")
	conv.AddAIMessage("hello")

	info := a.Describe("u1")
	if info.Model != "googleai/gemini-2.5-flash" || info.MaxTurns != 5 {
		t.Errorf("unexpected info: %+v", info)
	}
	if info.UserID != "u1" || info.ToolsCount != 4 || len(info.Tools) != 4 {
		t.Errorf("tools = %+v", info)
	}
	if info.ProjectCode != "WEB" || info.HistoryCount != 2 {
		t.Errorf("user state: %+v", info)
	}

	// Mutating the returned slice must not touch the agent.
	info.Tools[0] = "mutated"
	if a.names[0] != "getProjects" {
		t.Error("Describe leaked internal slice")
	}
}
