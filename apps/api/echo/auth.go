package echoapi

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/manabi/core"
	"github.com/trezcool/manabi/core/user"
)

const (
	contextIdentityKey  = "identity"
	contextLogExtrasKey = "logExtras"

	tokenAudience = "manabi"
)

var errInvalidToken = "invalid or expired jwt"

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	Email string    `json:"email,omitempty"`
	Role  core.Role `json:"role"`
}

func (c Claims) Identity() (core.Identity, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 || !c.Role.Valid() {
		return core.Identity{}, core.NewAuthError(errInvalidToken)
	}
	return core.Identity{UserID: id, Email: c.Email, Role: c.Role}, nil
}

func GetUserClaims(usr user.User, conf *core.Config) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.FormatInt(usr.ID, 10),
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(conf.Server.JWTExpirationDelta)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Email: usr.Email,
		Role:  usr.Role,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func parseToken(raw, secret string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid || !claims.VerifyAudience(tokenAudience, true) {
		return nil, core.NewAuthError(errInvalidToken)
	}
	return claims, nil
}

// appJWTConfig returns the bearer-token middleware config.
// Tokens are parsed with golang-jwt and the resolved core.Identity is stored under contextIdentityKey.
func appJWTConfig(secret string) middleware.JWTConfig {
	return middleware.JWTConfig{
		ContextKey: contextIdentityKey,
		ParseTokenFunc: func(auth string, _ echo.Context) (interface{}, error) {
			claims, err := parseToken(auth, secret)
			if err != nil {
				return nil, err
			}
			ident, err := claims.Identity()
			if err != nil {
				return nil, err
			}
			return ident, nil
		},
	}
}

func contextIdentity(ctx echo.Context) core.Identity {
	ident, _ := ctx.Get(contextIdentityKey).(core.Identity)
	return ident
}
