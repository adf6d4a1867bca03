package web

import (
	"testing"
	"time"
)

func TestSessionLifecycle(t *testing.T) {
	m := NewSessionManager(time.Hour)
	s := m.Create("u1")
	if s.Token == "" {
		t.Fatalf("empty token")
	}
	got, ok := m.Lookup(s.Token)
	if !ok || got.UserID != "u1" {
		t.Fatalf("lookup failed: %+v %v", got, ok)
	}
	m.Destroy(s.Token)
	if _, ok := m.Lookup(s.Token); ok {
		t.Fatalf("destroyed session still valid")
	}
}

func TestSessionExpiry(t *testing.T) {
	m := NewSessionManager(time.Millisecond)
	s := m.Create("u1")
	time.Sleep(5 * time.Millisecond)
	if _, ok := m.Lookup(s.Token); ok {
		t.Fatalf("expired session still valid")
	}
	s2 := m.Create("u2")
	time.Sleep(5 * time.Millisecond)
	_ = s2
	if n := m.PruneExpired(); n != 1 {
		t.Fatalf("expected 1 pruned, got %d", n)
	}
}

func TestDestroyForUser(t *testing.T) {
	m := NewSessionManager(time.Hour)
	a := m.Create("u1")
	b := m.Create("u1")
	c := m.Create("u2")
	m.DestroyForUser("u1")
	if _, ok := m.Lookup(a.Token); ok {
		t.Fatalf("u1 session a survived")
	}
	if _, ok := m.Lookup(b.Token); ok {
		t.Fatalf("u1 session b survived")
	}
	if _, ok := m.Lookup(c.Token); !ok {
		t.Fatalf("u2 session destroyed")
	}
}
