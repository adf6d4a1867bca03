package auth

import (
	"errors"
	"testing"
)

type memRepo struct{ users []User }

func (m *memRepo) LoadAll() ([]User, error) { return append([]User{}, m.users...), nil }
func (m *memRepo) Upsert(u User) error {
	for i, x := range m.users {
		if x.ID == u.ID {
			m.users[i] = u
			return nil
		}
	}
	m.users = append(m.users, u)
	return nil
}
func (m *memRepo) Remove(id string) error {
	out := make([]User, 0, len(m.users))
	for _, x := range m.users {
		if x.ID != id {
			out = append(out, x)
		}
	}
	m.users = out
	return nil
}

func TestRegisterAndAuthenticate(t *testing.T) {
	svc, err := NewWithRepo(&memRepo{})
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	u, err := svc.Register("alice", "Alice@Example.com", "s3cret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if u.PasswordHash == "s3cret" || u.PasswordHash == "" {
		t.Fatalf("password stored unhashed")
	}

	if _, err := svc.Register("alice", "other@example.com", "x"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate username accepted: %v", err)
	}
	if _, err := svc.Register("bob", "alice@example.com", "x"); !errors.Is(err, ErrUserExists) {
		t.Fatalf("duplicate email accepted: %v", err)
	}

	got, err := svc.Authenticate("alice", "s3cret", false)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("wrong user returned")
	}
	if _, err := svc.Authenticate("alice", "wrong", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password accepted: %v", err)
	}
	if _, err := svc.Authenticate("nobody", "s3cret", false); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user accepted: %v", err)
	}
}

func TestAdminOnlyLogin(t *testing.T) {
	svc, _ := NewWithRepo(&memRepo{})
	svc.Register("user", "u@example.com", "pw")
	admin, err := svc.CreateAdmin("root", "root@example.com", "pw")
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if !admin.IsAdmin {
		t.Fatalf("admin flag not set")
	}

	if _, err := svc.Authenticate("user", "pw", true); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("non-admin passed admin login: %v", err)
	}
	if _, err := svc.Authenticate("root", "pw", true); err != nil {
		t.Fatalf("admin login failed: %v", err)
	}
}

func TestBlockedUserCannotLogin(t *testing.T) {
	svc, _ := NewWithRepo(&memRepo{})
	u, _ := svc.Register("carol", "c@example.com", "pw")
	if err := svc.SetBlocked(u.ID, true); err != nil {
		t.Fatalf("block: %v", err)
	}
	if _, err := svc.Authenticate("carol", "pw", false); !errors.Is(err, ErrBlocked) {
		t.Fatalf("blocked user logged in: %v", err)
	}
	svc.SetBlocked(u.ID, false)
	if _, err := svc.Authenticate("carol", "pw", false); err != nil {
		t.Fatalf("unblock not effective: %v", err)
	}
}

func TestUpdateProfileAndPersistence(t *testing.T) {
	repo := &memRepo{}
	svc, _ := NewWithRepo(repo)
	u, _ := svc.Register("dave", "d@example.com", "old")

	if _, err := svc.UpdateProfile(u.ID, "david", "", "newpw"); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := svc.Authenticate("david", "newpw", false); err != nil {
		t.Fatalf("updated credentials rejected: %v", err)
	}
	if _, err := svc.Authenticate("david", "old", false); err == nil {
		t.Fatalf("old password still valid")
	}

	// A fresh service over the same repo must see the change.
	svc2, err := NewWithRepo(repo)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, err := svc2.Get(u.ID)
	if err != nil || got.Username != "david" {
		t.Fatalf("profile change not persisted: %+v err=%v", got, err)
	}
}

func TestSetAPIKeyAndRemove(t *testing.T) {
	svc, _ := NewWithRepo(&memRepo{})
	u, _ := svc.Register("erin", "e@example.com", "pw")

	if err := svc.SetAPIKey(u.ID, "key-123"); err != nil {
		t.Fatalf("set api key: %v", err)
	}
	got, _ := svc.Get(u.ID)
	if got.APIKey != "key-123" {
		t.Fatalf("api key not stored")
	}

	if err := svc.Remove(u.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := svc.Get(u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("removed user still present: %v", err)
	}
	if err := svc.Remove(u.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double remove should report not found: %v", err)
	}
}
