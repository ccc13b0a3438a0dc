// Package auth signs a browser session into the vendor application,
// answering a security question when one is asked.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"helptree/internal/parse"
	"helptree/internal/remote"
)

type Kind int

const (
	LoginTimeout Kind = iota + 1
	UnrecognizedChallenge
	LoginFailed
)

func (k Kind) String() string {
	switch k {
	case LoginTimeout:
		return "login timeout"
	case UnrecognizedChallenge:
		return "unrecognized challenge"
	case LoginFailed:
		return "login failed"
	}
	return "unknown"
}

type AuthError struct {
	Kind Kind
	// Question is the challenge prompt for UnrecognizedChallenge.
	Question string
	Err      error
}

func (e *AuthError) Error() string {
	switch {
	case e.Kind == UnrecognizedChallenge:
		return fmt.Sprintf("%s: no answer configured for %q", e.Kind, e.Question)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsKind reports whether err carries an AuthError of kind k.
func IsKind(err error, k Kind) bool {
	var aerr *AuthError
	return errors.As(err, &aerr) && aerr.Kind == k
}

type ChallengeAnswer struct {
	Question string `mapstructure:"question" json:"question" yaml:"question"`
	Answer   string `mapstructure:"answer" json:"answer" yaml:"answer"`
}

type Selectors struct {
	Email        string `mapstructure:"email" json:"email" yaml:"email"`
	Password     string `mapstructure:"password" json:"password" yaml:"password"`
	Submit       string `mapstructure:"submit" json:"submit" yaml:"submit"`
	Answer       string `mapstructure:"answer" json:"answer" yaml:"answer"`
	AnswerSubmit string `mapstructure:"answer_submit" json:"answer_submit" yaml:"answer_submit"`
	// Question selects the prompt element directly. When empty the prompt
	// is the table cell after the one reading QuestionLabel.
	Question      string `mapstructure:"question" json:"question" yaml:"question"`
	QuestionLabel string `mapstructure:"question_label" json:"question_label" yaml:"question_label"`
}

func DefaultSelectors() Selectors {
	return Selectors{
		Email:         "#email",
		Password:      "#password",
		Submit:        "#login-submit",
		Answer:        "input[name='answer']",
		AnswerSubmit:  "[name='submitter']",
		QuestionLabel: "Question:",
	}
}

type Credentials struct {
	LoginURL        string
	Email           string
	Password        string
	LandingFragment string
	Challenges      []ChallengeAnswer
}

// Session describes where login landed.
type Session struct {
	Landing string
	// BaseURL is the account's application root, e.g. https://1234.app.netsuite.com.
	BaseURL string
}

// Resolve makes ref absolute against the session's base URL.
func (s Session) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", ref, err)
	}
	if u.IsAbs() {
		return ref, nil
	}
	if s.BaseURL == "" {
		return "", fmt.Errorf("relative url %q needs a login session", ref)
	}
	base, err := url.Parse(s.BaseURL + "/")
	if err != nil {
		return "", fmt.Errorf("parse base url %q: %w", s.BaseURL, err)
	}
	return base.ResolveReference(u).String(), nil
}

type Authenticator struct {
	b       remote.Browser
	sel     Selectors
	timeout time.Duration
	log     *zap.Logger
}

func New(b remote.Browser, sel Selectors, timeout time.Duration, logger *zap.Logger) *Authenticator {
	def := DefaultSelectors()
	fill := func(dst *string, v string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = v
		}
	}
	fill(&sel.Email, def.Email)
	fill(&sel.Password, def.Password)
	fill(&sel.Submit, def.Submit)
	fill(&sel.Answer, def.Answer)
	fill(&sel.AnswerSubmit, def.AnswerSubmit)
	fill(&sel.QuestionLabel, def.QuestionLabel)
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{b: b, sel: sel, timeout: timeout, log: logger}
}

// Authenticate makes a single sign-in attempt.
func (a *Authenticator) Authenticate(ctx context.Context, cred Credentials) (Session, error) {
	if cred.LandingFragment == "" {
		cred.LandingFragment = "/app/center/card.nl"
	}
	if err := a.b.Navigate(ctx, cred.LoginURL); err != nil {
		return Session{}, &AuthError{Kind: LoginFailed, Err: err}
	}
	a.log.Debug("login page requested", zap.String("url", cred.LoginURL))

	if _, err := remote.WaitUntil(ctx, a.timeout, remote.Present(a.b, nil, remote.CSS(a.sel.Email))); err != nil {
		return Session{}, a.waitError(ctx, "login form did not appear", err)
	}
	if err := a.fill(ctx, a.sel.Email, cred.Email); err != nil {
		return Session{}, &AuthError{Kind: LoginFailed, Err: err}
	}
	if err := a.fill(ctx, a.sel.Password, cred.Password); err != nil {
		return Session{}, &AuthError{Kind: LoginFailed, Err: err}
	}
	if err := a.click(ctx, a.sel.Submit); err != nil {
		return Session{}, &AuthError{Kind: LoginFailed, Err: err}
	}

	idx, _, err := remote.WaitAny(ctx, a.timeout,
		remote.Present(a.b, nil, remote.CSS(a.sel.Answer)),
		remote.LocationContains(a.b, cred.LandingFragment),
	)
	if err != nil {
		return Session{}, a.waitError(ctx, "neither challenge nor landing page appeared", err)
	}
	if idx == 0 {
		if err := a.answerChallenge(ctx, cred); err != nil {
			return Session{}, err
		}
	}

	landing, err := a.b.CurrentLocation(ctx)
	if err != nil {
		return Session{}, &AuthError{Kind: LoginFailed, Err: err}
	}
	a.log.Info("logged in", zap.String("landing", landing), zap.Bool("challenged", idx == 0))
	return Session{Landing: landing, BaseURL: baseURL(landing)}, nil
}

func (a *Authenticator) answerChallenge(ctx context.Context, cred Credentials) error {
	question, err := a.readQuestion(ctx)
	if err != nil {
		return &AuthError{Kind: LoginFailed, Err: fmt.Errorf("read challenge: %w", err)}
	}
	answer, ok := lookupAnswer(cred.Challenges, question)
	if !ok {
		return &AuthError{Kind: UnrecognizedChallenge, Question: question}
	}
	a.log.Debug("answering challenge", zap.String("question", question))
	if err := a.fill(ctx, a.sel.Answer, answer); err != nil {
		return &AuthError{Kind: LoginFailed, Err: err}
	}
	if err := a.click(ctx, a.sel.AnswerSubmit); err != nil {
		return &AuthError{Kind: LoginFailed, Err: err}
	}
	if _, err := remote.WaitUntil(ctx, a.timeout, remote.LocationContains(a.b, cred.LandingFragment)); err != nil {
		return a.waitError(ctx, "landing page did not appear after challenge", err)
	}
	return nil
}

func (a *Authenticator) readQuestion(ctx context.Context) (string, error) {
	if a.sel.Question != "" {
		el, err := a.b.FindOne(ctx, nil, remote.CSS(a.sel.Question))
		if err != nil {
			return "", err
		}
		return a.b.Text(ctx, el)
	}
	markup, err := a.b.ReadMarkup(ctx, nil)
	if err != nil {
		return "", err
	}
	doc, err := parse.NewDocument(markup)
	if err != nil {
		return "", err
	}
	label := remote.NormalizeText(a.sel.QuestionLabel)
	cell := doc.Find("td").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return remote.NormalizeText(s.Text()) == label
	}).First().Next()
	if cell.Length() == 0 {
		return "", fmt.Errorf("%w: cell after %q", remote.ErrNotFound, a.sel.QuestionLabel)
	}
	return remote.NormalizeText(cell.Text()), nil
}

func (a *Authenticator) fill(ctx context.Context, css, value string) error {
	el, err := a.b.FindOne(ctx, nil, remote.CSS(css))
	if err != nil {
		return fmt.Errorf("field %s: %w", css, err)
	}
	return a.b.Fill(ctx, el, value)
}

func (a *Authenticator) click(ctx context.Context, css string) error {
	el, err := a.b.FindOne(ctx, nil, remote.CSS(css))
	if err != nil {
		return fmt.Errorf("button %s: %w", css, err)
	}
	return a.b.Click(ctx, el)
}

func (a *Authenticator) waitError(ctx context.Context, what string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, remote.ErrTimeout) {
		return &AuthError{Kind: LoginTimeout, Err: fmt.Errorf("%s: %w", what, err)}
	}
	return &AuthError{Kind: LoginFailed, Err: fmt.Errorf("%s: %w", what, err)}
}

func lookupAnswer(answers []ChallengeAnswer, question string) (string, bool) {
	q := strings.TrimSpace(question)
	for _, a := range answers {
		if strings.TrimSpace(a.Question) == q {
			return a.Answer, true
		}
	}
	return "", false
}

// baseURL cuts the landing location before its /app/ segment, falling back
// to scheme and host.
func baseURL(landing string) string {
	if i := strings.Index(landing, "/app/"); i > 0 {
		return landing[:i]
	}
	u, err := url.Parse(landing)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
