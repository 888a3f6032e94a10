package session

import "testing"

func TestLoginAndAccessors(t *testing.T) {
	s := New()

	if s.Authenticated() {
		t.Error("expected new session to be unauthenticated")
	}

	s.Login("tok-1", "user-1", "Mara")

	if !s.Authenticated() {
		t.Error("expected session to be authenticated after login")
	}
	if got := s.Token(); got != "tok-1" {
		t.Errorf("expected token tok-1, got %s", got)
	}
	if got := s.UserID(); got != "user-1" {
		t.Errorf("expected user id user-1, got %s", got)
	}
	if got := s.DisplayName(); got != "Mara" {
		t.Errorf("expected display name Mara, got %s", got)
	}
	if s.ID() == "" {
		t.Error("expected non-empty session id after login")
	}
}

func TestExpireFiresHookOnce(t *testing.T) {
	s := New()
	s.Login("tok-1", "user-1", "Mara")

	calls := 0
	s.SetOnExpire(func() { calls++ })

	s.Expire()
	s.Expire()
	s.Expire()

	if calls != 1 {
		t.Errorf("expected expire hook to fire once, fired %d times", calls)
	}
	if s.Authenticated() {
		t.Error("expected session to be inactive after expire")
	}
	if s.Token() != "" {
		t.Error("expected token cleared after expire")
	}
}

func TestLogoutClearsIdentity(t *testing.T) {
	s := New()
	s.Login("tok-1", "user-1", "Mara")
	s.Logout()

	if s.Authenticated() {
		t.Error("expected session to be inactive after logout")
	}
	if s.UserID() != "" || s.DisplayName() != "" || s.ID() != "" {
		t.Error("expected identity cleared after logout")
	}
}

func TestReLoginAssignsNewSessionID(t *testing.T) {
	s := New()
	s.Login("tok-1", "user-1", "Mara")
	first := s.ID()
	s.Logout()
	s.Login("tok-2", "user-1", "Mara")

	if s.ID() == first {
		t.Error("expected a fresh session id on re-login")
	}

	// hook from the previous login must have been consumed
	calls := 0
	s.SetOnExpire(func() { calls++ })
	s.Expire()
	if calls != 1 {
		t.Errorf("expected hook to fire once after re-login, fired %d times", calls)
	}
}
