package storage

import "time"

type EventKind string

const (
	KindText  EventKind = "text"
	KindImage EventKind = "image"
)

// Event is one usage record: which user asked for which capability,
// how large the prompt was and whether the call failed. Events are
// appended in chronological order and reviewed by administrators.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	UserID      string    `json:"user_id"`
	Kind        EventKind `json:"kind"`
	PromptChars int       `json:"prompt_chars"`
	Model       string    `json:"model,omitempty"`
	Failed      bool      `json:"failed,omitempty"`
}

func NewEvent(userID string, kind EventKind, promptChars int, model string, failed bool) Event {
	return Event{
		Timestamp:   time.Now().UTC(),
		UserID:      userID,
		Kind:        kind,
		PromptChars: promptChars,
		Model:       model,
		Failed:      failed,
	}
}

// Recorder abstracts persistence of usage events.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendEvent(event Event) error
	LoadEvents() ([]Event, error)
}

// UserSummary aggregates a user's usage for the admin dashboard.
type UserSummary struct {
	UserID   string `json:"user_id"`
	Text     int    `json:"text"`
	Images   int    `json:"images"`
	Failures int    `json:"failures"`
}

// Summarize folds events into per-user counts.
func Summarize(events []Event) map[string]*UserSummary {
	out := make(map[string]*UserSummary)
	for _, ev := range events {
		s := out[ev.UserID]
		if s == nil {
			s = &UserSummary{UserID: ev.UserID}
			out[ev.UserID] = s
		}
		if ev.Failed {
			s.Failures++
			continue
		}
		switch ev.Kind {
		case KindImage:
			s.Images++
		default:
			s.Text++
		}
	}
	return out
}
