package prompt

import (
	"sort"
	"strings"

	"chatbot/internal/history"
)

// DefaultRecentWindow is how many recent exchanges feed the prompt.
// There is no token-budget trimming beyond this fixed count.
const DefaultRecentWindow = 5

// Builder assembles the full prompt sent to the text model: permanent
// facts, then the recent exchanges oldest-first, then the new message
// with an open Assistant: marker for the model to continue.
type Builder struct{}

func NewBuilder() *Builder { return &Builder{} }

func (b *Builder) Build(permanent *PermanentContext, recent []history.Exchange, newMessage string) string {
	var sb strings.Builder

	sb.WriteString("Permanent Context:\n")
	facts := permanent.Snapshot()
	names := make([]string, 0, len(facts))
	for name := range facts {
		names = append(names, name)
	}
	// Stable fact order keeps prompts reproducible.
	sort.Strings(names)
	for _, name := range names {
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(facts[name])
		sb.WriteString("\n")
	}

	sb.WriteString("\nRecent Conversation History:\n")
	for _, ex := range recent {
		sb.WriteString("User: ")
		sb.WriteString(ex.UserMessage)
		sb.WriteString("\nAssistant: ")
		sb.WriteString(ex.AssistantResponse)
		sb.WriteString("\n")
	}

	sb.WriteString("\nUser: ")
	sb.WriteString(newMessage)
	sb.WriteString("\nAssistant:")
	return sb.String()
}
