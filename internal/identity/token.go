package identity

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of the provider's token we rely on: the subject
// is the external user id.
type Claims struct {
	jwt.RegisteredClaims
}

// ParseToken verifies a provider-issued credential against the shared
// secret and returns the external user id it is bound to.
func ParseToken(tokenStr string, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token")
	}
	return claims.Subject, nil
}
