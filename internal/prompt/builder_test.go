package prompt

import (
	"strings"
	"testing"

	"chatbot/internal/history"
)

func TestBuildWithNoHistory(t *testing.T) {
	pc := NewPermanentContext()
	pc.Add("bot_personality", "friendly")

	got := NewBuilder().Build(pc, nil, "hi")

	if !strings.Contains(got, "bot_personality: friendly") {
		t.Fatalf("missing permanent fact line:\n%s", got)
	}
	if n := strings.Count(got, "User: "); n != 1 {
		t.Fatalf("expected only the trailing user line, found %d:\n%s", n, got)
	}
	if !strings.HasSuffix(got, "User: hi\nAssistant:") {
		t.Fatalf("prompt must end with the open continuation marker:\n%s", got)
	}
}

func TestBuildRendersExchangesInOrder(t *testing.T) {
	pc := NewPermanentContext()
	recent := []history.Exchange{
		{UserMessage: "first", AssistantResponse: "one"},
		{UserMessage: "second", AssistantResponse: "two"},
	}
	got := NewBuilder().Build(pc, recent, "third")

	iFirst := strings.Index(got, "User: first\nAssistant: one")
	iSecond := strings.Index(got, "User: second\nAssistant: two")
	if iFirst < 0 || iSecond < 0 {
		t.Fatalf("exchange lines missing:\n%s", got)
	}
	if iFirst > iSecond {
		t.Fatalf("exchanges rendered out of order:\n%s", got)
	}
	if !strings.HasSuffix(got, "User: third\nAssistant:") {
		t.Fatalf("new message not trailing:\n%s", got)
	}
}

func TestBuildSortsFacts(t *testing.T) {
	pc := NewPermanentContext()
	pc.Add("zeta", "z")
	pc.Add("alpha", "a")
	got := NewBuilder().Build(pc, nil, "x")
	if strings.Index(got, "alpha: a") > strings.Index(got, "zeta: z") {
		t.Fatalf("facts not sorted:\n%s", got)
	}
}

func TestParsePermanentContext(t *testing.T) {
	pc, err := ParsePermanentContext(`{"tone":"formal"}`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if pc.Snapshot()["tone"] != "formal" {
		t.Fatalf("seeded fact missing")
	}
	if _, err := ParsePermanentContext("{broken"); err == nil {
		t.Fatalf("expected error for malformed JSON")
	}
	pc2, err := ParsePermanentContext("")
	if err != nil || len(pc2.Snapshot()) != 0 {
		t.Fatalf("empty input should yield empty context")
	}
}
