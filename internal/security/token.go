package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const walletTokenIssuer = "mintauction"

var (
	errMissingSecret = errors.New("security: jwt secret is empty")
	errInvalidToken  = errors.New("security: invalid token")
)

// WalletClaims identifies the wallet that opened a session.
type WalletClaims struct {
	Wallet string `json:"wallet"`
	jwt.RegisteredClaims
}

// IssueWalletToken signs an HS256 session token for wallet.
func IssueWalletToken(secret, wallet string, expiry time.Duration, now time.Time) (string, time.Time, error) {
	if strings.TrimSpace(secret) == "" {
		return "", time.Time{}, errMissingSecret
	}
	expiresAt := now.Add(expiry)
	claims := WalletClaims{
		Wallet: wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    walletTokenIssuer,
			Subject:   wallet,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, errSign := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if errSign != nil {
		return "", time.Time{}, fmt.Errorf("security: sign token: %w", errSign)
	}
	return signed, expiresAt, nil
}

// ParseWalletToken validates a session token and returns its claims.
func ParseWalletToken(secret, token string) (*WalletClaims, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errMissingSecret
	}
	claims := &WalletClaims{}
	parsed, errParse := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(walletTokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if errParse != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidToken, errParse)
	}
	if !parsed.Valid || claims.Wallet == "" || claims.Wallet != claims.Subject {
		return nil, errInvalidToken
	}
	return claims, nil
}
