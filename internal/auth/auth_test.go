package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"helptree/internal/auth"
	"helptree/internal/remote/remotetest"
)

const (
	loginURL   = "https://system.example.test/pages/customerlogin.jsp"
	landingURL = "https://1234.app.example.test/app/center/card.nl?sc=-29"
	helpURL    = "https://1234.app.example.test/app/help/helpcenter.nl"
)

func widget(question string) *remotetest.Widget {
	return remotetest.New(helpURL).WithLogin(remotetest.Login{
		URL:      loginURL,
		Landing:  landingURL,
		Email:    "me@example.test",
		Password: "s3cret",
		Question: question,
		Answer:   "Rex",
	})
}

func creds() auth.Credentials {
	return auth.Credentials{
		LoginURL: loginURL,
		Email:    "me@example.test",
		Password: "s3cret",
		Challenges: []auth.ChallengeAnswer{
			{Question: "What was the name of your first pet?", Answer: "Rex"},
		},
	}
}

func TestAuthenticateWithoutChallenge(t *testing.T) {
	w := widget("")
	a := auth.New(w, auth.Selectors{}, time.Second, nil)
	s, err := a.Authenticate(context.Background(), creds())
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if s.Landing != landingURL {
		t.Fatalf("unexpected landing %q", s.Landing)
	}
	if s.BaseURL != "https://1234.app.example.test" {
		t.Fatalf("unexpected base url %q", s.BaseURL)
	}
}

func TestAuthenticateAnswersChallenge(t *testing.T) {
	w := widget("What was the name of your first pet?")
	a := auth.New(w, auth.Selectors{}, time.Second, nil)
	if _, err := a.Authenticate(context.Background(), creds()); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	clicks := w.Clicks()
	if len(clicks) != 2 || clicks[1] != "submit:submitter" {
		t.Fatalf("expected login and challenge submits, got %v", clicks)
	}
}

func TestAuthenticateUnrecognizedChallenge(t *testing.T) {
	w := widget("In what city were you born?")
	a := auth.New(w, auth.Selectors{}, time.Second, nil)
	_, err := a.Authenticate(context.Background(), creds())
	if !auth.IsKind(err, auth.UnrecognizedChallenge) {
		t.Fatalf("expected UnrecognizedChallenge, got %v", err)
	}
	var aerr *auth.AuthError
	if !errors.As(err, &aerr) || aerr.Question != "In what city were you born?" {
		t.Fatalf("expected question in error, got %v", err)
	}
}

func TestAuthenticateWrongPasswordTimesOut(t *testing.T) {
	w := widget("")
	a := auth.New(w, auth.Selectors{}, 50*time.Millisecond, nil)
	c := creds()
	c.Password = "wrong"
	_, err := a.Authenticate(context.Background(), c)
	if !auth.IsKind(err, auth.LoginTimeout) {
		t.Fatalf("expected LoginTimeout, got %v", err)
	}
}

func TestAuthenticateMissingForm(t *testing.T) {
	w := widget("")
	a := auth.New(w, auth.Selectors{}, 30*time.Millisecond, nil)
	c := creds()
	c.LoginURL = "https://system.example.test/maintenance"
	_, err := a.Authenticate(context.Background(), c)
	if !auth.IsKind(err, auth.LoginTimeout) {
		t.Fatalf("expected LoginTimeout, got %v", err)
	}
}

func TestSessionResolve(t *testing.T) {
	s := auth.Session{BaseURL: "https://1234.app.example.test"}
	got, err := s.Resolve("/app/help/helpcenter.nl")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != helpURL {
		t.Fatalf("unexpected url %q", got)
	}
	abs, err := auth.Session{}.Resolve(helpURL)
	if err != nil || abs != helpURL {
		t.Fatalf("absolute url should pass through, got %q, %v", abs, err)
	}
	if _, err := (auth.Session{}).Resolve("/app/help"); err == nil {
		t.Fatal("expected error for relative url without session")
	}
}
