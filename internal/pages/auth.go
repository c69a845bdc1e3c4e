package pages

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/example/ec-storefront/internal/apiclient"
	"github.com/example/ec-storefront/internal/readmodel"
	"github.com/example/ec-storefront/internal/state/session"
)

// MinPasswordLength is the shortest password the forms accept
const MinPasswordLength = 6

// FieldErrors maps form fields to their validation messages
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for _, field := range []string{"firstName", "lastName", "email", "password"} {
		if msg, ok := e[field]; ok {
			parts = append(parts, field+": "+msg)
		}
	}
	return fmt.Sprintf("%v: %s", ErrInvalidForm, strings.Join(parts, "; "))
}

func (e FieldErrors) Unwrap() error {
	return ErrInvalidForm
}

// ValidateCredentials applies the login form rules
func ValidateCredentials(email, password string) error {
	errs := FieldErrors{}
	if !validEmail(email) {
		errs["email"] = "Invalid email address"
	}
	if len(password) < MinPasswordLength {
		errs["password"] = fmt.Sprintf("Password must be at least %d characters", MinPasswordLength)
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validEmail(email string) bool {
	if strings.ContainsAny(email, " <>") {
		return false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

// Login signs a user in and returns to where they came from
type Login struct {
	base
	auth      AuthAPI
	session   *session.Store
	navigator Navigator
}

// NewLogin creates the login controller
func NewLogin(auth AuthAPI, sess *session.Store, notifier Notifier, navigator Navigator) *Login {
	return &Login{
		base:      newBase(notifier, "page-login"),
		auth:      auth,
		session:   sess,
		navigator: navigator,
	}
}

// Submit validates, signs in, stores the session and navigates to from ("/" when empty)
func (l *Login) Submit(ctx context.Context, email, password, from string) error {
	if err := ValidateCredentials(email, password); err != nil {
		return err
	}
	defer l.track()()

	resp, err := l.auth.Login(ctx, email, password)
	if err != nil {
		l.fail(err, serverMessage(err, "Failed to login"))
		return err
	}
	if err := startSession(ctx, l.session, resp); err != nil {
		l.fail(err, "Failed to save session")
		return err
	}

	l.success("Logged in successfully")
	l.navigator.Navigate(returnPath(from))
	return nil
}

// Register creates an account and signs it in
type Register struct {
	base
	auth      AuthAPI
	session   *session.Store
	navigator Navigator
}

// NewRegister creates the registration controller
func NewRegister(auth AuthAPI, sess *session.Store, notifier Notifier, navigator Navigator) *Register {
	return &Register{
		base:      newBase(notifier, "page-register"),
		auth:      auth,
		session:   sess,
		navigator: navigator,
	}
}

// Submit validates, registers, stores the session and navigates home
func (r *Register) Submit(ctx context.Context, in apiclient.RegisterRequest) error {
	errs := FieldErrors{}
	if strings.TrimSpace(in.FirstName) == "" {
		errs["firstName"] = "First name is required"
	}
	if strings.TrimSpace(in.LastName) == "" {
		errs["lastName"] = "Last name is required"
	}
	if err := ValidateCredentials(in.Email, in.Password); err != nil {
		for k, v := range err.(FieldErrors) {
			errs[k] = v
		}
	}
	if len(errs) > 0 {
		return errs
	}
	defer r.track()()

	resp, err := r.auth.Register(ctx, in)
	if err != nil {
		r.fail(err, serverMessage(err, "Failed to register"))
		return err
	}
	if err := startSession(ctx, r.session, resp); err != nil {
		r.fail(err, "Failed to save session")
		return err
	}

	r.success("Account created successfully")
	r.navigator.Navigate(RouteHome)
	return nil
}

func startSession(ctx context.Context, sess *session.Store, resp *readmodel.AuthResponse) error {
	return sess.SetAuth(ctx, resp.User, resp.AccessToken, resp.RefreshToken)
}

func returnPath(from string) string {
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, RouteLogin) {
		return RouteHome
	}
	return from
}
