package llm

import (
	"fmt"
	"strings"

	"github.com/Rrens/chatwidget/internal/domain"
)

// Example is a canned exchange used to steer tone and domain (few-shot)
type Example struct {
	Queries  []string `mapstructure:"queries"`
	Response string   `mapstructure:"response"`
}

// PromptRequest contains everything embedded in a generation prompt
type PromptRequest struct {
	Examples []Example
	// DefaultResponse is the exemplar reply for unrecognized queries
	DefaultResponse string
	History         []domain.Message
	Query           string
	UserLabel       string
	BotLabel        string
}

// BuildPrompt creates a single prompt string: exemplars, conversation history, current query
func BuildPrompt(req PromptRequest) string {
	userLabel := req.UserLabel
	if userLabel == "" {
		userLabel = "User"
	}
	botLabel := req.BotLabel
	if botLabel == "" {
		botLabel = "Assistant"
	}

	var b strings.Builder
	b.WriteString("\n")
	for _, ex := range req.Examples {
		quoted := make([]string, len(ex.Queries))
		for i, q := range ex.Queries {
			quoted[i] = fmt.Sprintf("%q", q)
		}
		fmt.Fprintf(&b, "Query: %s\nResponse: %s\n\n", strings.Join(quoted, " or "), ex.Response)
	}
	if req.DefaultResponse != "" {
		fmt.Fprintf(&b, "Default (unrecognized queries)\nResponse: %s\n\n", req.DefaultResponse)
	}

	lines := make([]string, 0, len(req.History))
	for _, m := range req.History {
		label := botLabel
		if m.Role == domain.RoleUser {
			label = userLabel
		}
		lines = append(lines, fmt.Sprintf("%s: %s", label, m.Text))
	}

	fmt.Fprintf(&b, "Conversation history:\n%s\n\n", strings.Join(lines, "\n"))
	fmt.Fprintf(&b, "Current %s query: %s\n", strings.ToLower(userLabel), req.Query)

	return b.String()
}

// Sanitize removes angle brackets so user text cannot inject markup
func Sanitize(text string) string {
	return strings.NewReplacer("<", "", ">", "").Replace(text)
}
