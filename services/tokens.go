package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/Dosada05/tournament-brackets/models"
	"github.com/golang-jwt/jwt/v4"
)

const (
	claimUserID  = "user_id"
	claimPurpose = "purpose"
	claimPwd     = "pwd"

	purposeConfirmEmail  = "confirm_email"
	purposeResetPassword = "reset_password"

	accessTokenTTL = 24 * time.Hour
	actionTokenTTL = 24 * time.Hour
)

// TokenManager issues HS256 tokens: access tokens for the API and
// single-purpose tokens mailed for email confirmation and password reset.
type TokenManager struct {
	secret []byte
	now    func() time.Time
}

func NewTokenManager(secret string) *TokenManager {
	return &TokenManager{secret: []byte(secret), now: time.Now}
}

func (m *TokenManager) IssueAccessToken(user *models.User) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		claimUserID: user.ID,
		"name":      user.FirstName + " " + user.LastName,
		"exp":       now.Add(accessTokenTTL).Unix(),
		"iat":       now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return token, nil
}

func (m *TokenManager) issueActionToken(userID int, purpose string, extra jwt.MapClaims) (string, error) {
	now := m.now()
	claims := jwt.MapClaims{
		claimUserID:  userID,
		claimPurpose: purpose,
		"exp":        now.Add(actionTokenTTL).Unix(),
		"iat":        now.Unix(),
	}
	for k, v := range extra {
		claims[k] = v
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", purpose, err)
	}
	return token, nil
}

// parseActionToken validates signature, expiry and purpose and returns the
// token's claims.
func (m *TokenManager) parseActionToken(tokenString, purpose string) (int, jwt.MapClaims, error) {
	parser := jwt.Parser{ValidMethods: []string{jwt.SigningMethodHS256.Alg()}}
	claims := jwt.MapClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, nil, ErrInvalidToken
	}
	if p, _ := claims[claimPurpose].(string); p != purpose {
		return 0, nil, ErrInvalidToken
	}
	id, ok := claims[claimUserID].(float64)
	if !ok || id <= 0 || id != float64(int(id)) {
		return 0, nil, ErrInvalidToken
	}
	return int(id), claims, nil
}

// passwordFingerprint ties a reset token to the password it replaces so the
// token stops working once used.
func passwordFingerprint(hash string) string {
	if len(hash) < 12 {
		return hash
	}
	return hash[len(hash)-12:]
}

var errNoFingerprint = errors.New("reset token carries no password fingerprint")
