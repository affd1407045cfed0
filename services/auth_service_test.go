package services

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	env    *testEnv
	tokens *TokenManager
	mailer *fakeMailer
	svc    AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	e := newTestEnv(t)
	tokens := NewTokenManager("test-secret")
	mailer := &fakeMailer{}
	return &authFixture{
		env:    e,
		tokens: tokens,
		mailer: mailer,
		svc:    NewAuthService(e.users, tokens, mailer, discardLogger()),
	}
}

func (f *authFixture) registerConfirmed(t *testing.T, email, password string) int {
	t.Helper()
	ctx := context.Background()
	user, err := f.svc.Register(ctx, RegisterInput{FirstName: "Ana", LastName: "Ruiz", Email: email, Password: password})
	require.NoError(t, err)
	mail, ok := f.mailer.last("confirm")
	require.True(t, ok)
	require.NoError(t, f.svc.ConfirmEmail(ctx, mail.token))
	return user.ID
}

func TestRegisterSendsConfirmationAndBlocksLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	user, err := f.svc.Register(ctx, RegisterInput{
		FirstName: " Ana ",
		LastName:  "Ruiz",
		Email:     "  Ana@Example.COM ",
		Password:  "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)
	assert.Equal(t, "Ana", user.FirstName)
	assert.False(t, user.IsActive)
	assert.Empty(t, user.PasswordHash)

	mail, ok := f.mailer.last("confirm")
	require.True(t, ok)
	assert.Equal(t, "ana@example.com", mail.to)
	assert.NotEmpty(t, mail.token)

	_, _, err = f.svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "correct horse"})
	assert.ErrorIs(t, err, ErrAccountNotActive)

	require.NoError(t, f.svc.ConfirmEmail(ctx, mail.token))
	require.NoError(t, f.svc.ConfirmEmail(ctx, mail.token), "confirming twice is harmless")

	loggedIn, token, err := f.svc.Login(ctx, LoginInput{Email: "ANA@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Empty(t, loggedIn.PasswordHash)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) { return []byte("test-secret"), nil })
	require.NoError(t, err)
	assert.Equal(t, float64(user.ID), claims["user_id"])
	assert.NotContains(t, claims, "purpose")
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		input   RegisterInput
		wantErr error
	}{
		{"missing first name", RegisterInput{LastName: "R", Email: "a@b.io", Password: "longenough"}, ErrValidationFailed},
		{"bad email", RegisterInput{FirstName: "A", LastName: "R", Email: "not-an-email", Password: "longenough"}, ErrValidationFailed},
		{"short password", RegisterInput{FirstName: "A", LastName: "R", Email: "a@b.io", Password: "short"}, ErrPasswordTooShort},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			_, err := f.svc.Register(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Zero(t, f.mailer.count("confirm"))
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.registerConfirmed(t, "dup@example.com", "password1")

	_, err := f.svc.Register(context.Background(), RegisterInput{FirstName: "B", LastName: "C", Email: "DUP@example.com", Password: "password2"})
	assert.ErrorIs(t, err, ErrUserEmailConflict)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.registerConfirmed(t, "ana@example.com", "password1")

	_, _, err := f.svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "password2"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = f.svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestConfirmEmailRejectsForeignTokens(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.registerConfirmed(t, "ana@example.com", "password1")
	_, access, err := f.svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "password1"})
	require.NoError(t, err)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ana@example.com"))
	reset, ok := f.mailer.last("reset")
	require.True(t, ok)

	other := NewTokenManager("other-secret")
	forged, err := other.issueActionToken(1, purposeConfirmEmail, nil)
	require.NoError(t, err)

	expiredIssuer := NewTokenManager("test-secret")
	expiredIssuer.now = func() time.Time { return time.Now().Add(-48 * time.Hour) }
	expired, err := expiredIssuer.issueActionToken(1, purposeConfirmEmail, nil)
	require.NoError(t, err)

	for name, token := range map[string]string{
		"access token": access,
		"reset token":  reset.token,
		"wrong secret": forged,
		"expired":      expired,
		"garbage":      "not.a.jwt",
		"empty":        "",
	} {
		assert.ErrorIs(t, f.svc.ConfirmEmail(ctx, token), ErrInvalidToken, name)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.registerConfirmed(t, "ana@example.com", "password1")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, " ANA@example.com "))
	mail, ok := f.mailer.last("reset")
	require.True(t, ok)
	assert.Equal(t, "ana@example.com", mail.to)

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, mail.token, "short"), ErrPasswordTooShort)
	require.NoError(t, f.svc.ResetPassword(ctx, mail.token, "brand new password"))

	_, _, err := f.svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = f.svc.Login(ctx, LoginInput{Email: "ana@example.com", Password: "brand new password"})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, mail.token, "another password"), ErrInvalidToken, "reset links work once")

	confirm, ok := f.mailer.last("confirm")
	require.True(t, ok)
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, confirm.token, "another password"), ErrInvalidToken)
}

func TestRequestPasswordResetIsSilentForUnknownAndInactiveAccounts(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	_, err := f.svc.Register(ctx, RegisterInput{FirstName: "A", LastName: "B", Email: "pending@example.com", Password: "password1"})
	require.NoError(t, err)

	assert.NoError(t, f.svc.RequestPasswordReset(ctx, "ghost@example.com"))
	assert.NoError(t, f.svc.RequestPasswordReset(ctx, "pending@example.com"))
	assert.Zero(t, f.mailer.count("reset"))
}

func TestResetTokenWithoutFingerprintIsRejected(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	id := f.registerConfirmed(t, "ana@example.com", "password1")

	token, err := f.tokens.issueActionToken(id, purposeResetPassword, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "brand new password"), ErrInvalidToken)
}
