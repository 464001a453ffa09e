package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/qametric/qametric/internal/memory"
)

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentListProjects  Intent = "list_projects"
	IntentQueryData     Intent = "query_data"
	IntentChangeProject Intent = "change_project"
)

// Classification is the structured output of intent classification.
// ProjectCode is set only when the message names a project literally.
type Classification struct {
	Intent      Intent `json:"intent"`
	ProjectCode string `json:"projectCode"`
}

// maxClassificationBytes limits the classifier LLM response size (2 KB).
const maxClassificationBytes = 2 * 1024

const classificationPrompt = `You classify one user message for a QA metrics assistant.

Recent conversation:
%s

Message: %s

Pick exactly one intent:
- list_projects: the user wants to see which projects exist
- change_project: the user wants to switch to or select a different project
- query_data: anything else (questions about cases, runs, results, metrics)

If the message literally mentions a project code (a short uppercase
identifier like "WEB" or "GV", possibly as "project GV" or "projeto GV"),
put it in projectCode. Otherwise leave projectCode empty. Never invent a
code the message does not contain.

Output JSON only: {"intent": "...", "projectCode": "..."}`

// classifyIntent asks the model to classify message, giving it recent
// history for pronoun-style follow-ups ("and for that project?").
func classifyIntent(ctx context.Context, g *genkit.Genkit, modelName, message string, history []memory.Message) (*Classification, error) {
	prompt := fmt.Sprintf(classificationPrompt, renderHistory(history), message)

	opts := []ai.GenerateOption{
		ai.WithPrompt(prompt),
	}
	if modelName != "" {
		opts = append(opts, ai.WithModelName(modelName))
	}

	resp, err := genkit.Generate(ctx, g, opts...)
	if err != nil {
		return nil, fmt.Errorf("generating classification: %w", err)
	}

	raw := resp.Text()
	if len(raw) > maxClassificationBytes {
		return nil, fmt.Errorf("classification response too large: %d bytes", len(raw))
	}

	text := stripCodeFences(raw)
	if text == "" {
		return nil, fmt.Errorf("empty classification response")
	}

	var c Classification
	if err := json.Unmarshal([]byte(text), &c); err != nil {
		return nil, fmt.Errorf("parsing classification: %w (raw: %q)", err, truncate(text, 200))
	}

	if !validIntent(c.Intent) {
		// Unknown tags collapse to the broadest intent rather than
		// failing the request.
		c.Intent = IntentQueryData
	}
	c.ProjectCode = strings.ToUpper(strings.TrimSpace(c.ProjectCode))
	return &c, nil
}

func validIntent(i Intent) bool {
	switch i {
	case IntentListProjects, IntentQueryData, IntentChangeProject:
		return true
	}
	return false
}

// historyWindow caps how many recent messages the classifier sees.
const historyWindow = 6

func renderHistory(history []memory.Message) string {
	if len(history) == 0 {
		return "(none)"
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	var b strings.Builder
	for _, m := range history {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// stripCodeFences unwraps a ```json ... ``` block if the model added one.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

// truncate shortens s to at most n bytes for logging.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
