package echoapi

import (
	"context"
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/projetogalileu/galileu/core"
	"github.com/projetogalileu/galileu/core/account"
	"github.com/projetogalileu/galileu/core/user"
)

const (
	tokenContextKey = "userToken"
	contextUserKey  = "user"
	tokenAudience   = "Laboratorio"
)

var nowFunc = time.Now // mockable

type claimsKey struct{}

// Denylist remembers revoked token ids until they expire.
type Denylist interface {
	Deny(ctx context.Context, tokenID string, until time.Time) error
	IsDenied(ctx context.Context, tokenID string) (bool, error)
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Name         string   `json:"name,omitempty"`
	Username     string   `json:"username,omitempty"`
	Email        string   `json:"email,omitempty"`
	IsStudent    bool     `json:"is_student,omitempty"`
	IsTeacher    bool     `json:"is_teacher,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

var errInvalidToken = errors.New("invalid token")

// newJWTConfig parses tokens with jwt-go so the context always holds a *jwt.Token carrying *Claims,
// whatever JWT library echo's middleware is built on.
func newJWTConfig(conf *core.Config, tokenLookup string) middleware.JWTConfig {
	return middleware.JWTConfig{
		ContextKey:     tokenContextKey,
		TokenLookup:    tokenLookup,
		ParseTokenFunc: newTokenParser([]byte(conf.SecretKey)),
	}
}

func newTokenParser(key []byte) func(auth string, ctx echo.Context) (interface{}, error) {
	keyFunc := func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected jwt signing method %v", t.Header["alg"])
		}
		return key, nil
	}
	return func(auth string, _ echo.Context) (interface{}, error) {
		token, err := jwt.ParseWithClaims(auth, new(Claims), keyFunc)
		if err != nil {
			return nil, err
		}
		if !token.Valid {
			return nil, errInvalidToken
		}
		return token, nil
	}
}

// GetUserClaims returns fresh claims for usr. origIat is kept across refreshes.
func GetUserClaims(conf *core.Config, usr user.User, origIat ...int64) *Claims {
	now := nowFunc()
	nownix := now.Unix()

	oriat := nownix
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  tokenAudience,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Name:         usr.Name,
		Username:     usr.Username,
		Email:        usr.Email,
		IsStudent:    usr.IsStudent(),
		IsTeacher:    usr.IsTeacher(),
		IsAdmin:      usr.IsAdmin(),
		Roles:        usr.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, err
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		sort.Strings(claims.Roles)
		for _, role := range roles {
			if i := sort.SearchStrings(claims.Roles, role); i < len(claims.Roles) {
				if match := claims.Roles[i]; role == match {
					return true
				}
			}
		}
	}
	return false
}

// sessionMiddleware rejects revoked tokens and exposes the claims to the request context.
func sessionMiddleware(denylist Denylist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			denied, err := denylist.IsDenied(ctx.Request().Context(), claims.Id)
			if err != nil {
				return errors.Wrap(err, "checking token denylist")
			}
			if denied {
				return errTokenRevoked
			}

			req := ctx.Request()
			ctx.SetRequest(req.WithContext(context.WithValue(req.Context(), claimsKey{}, claims)))
			return next(ctx)
		}
	}
}

// tokenSession is the account.UserSession of a JWT authenticated request.
// Clearing it revokes the token until it expires.
type tokenSession struct {
	users    *user.Service
	denylist Denylist
}

var _ account.UserSession = tokenSession{}

func claimsFrom(ctx context.Context) (Claims, error) {
	claims, ok := ctx.Value(claimsKey{}).(Claims)
	if !ok {
		return Claims{}, errUnauthorized
	}
	return claims, nil
}

func (s tokenSession) Current(ctx context.Context) (user.User, error) {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return user.User{}, err
	}
	usr, err := s.users.GetByID(ctx, claims.Subject)
	if err != nil {
		if core.IsNotFound(err) {
			return user.User{}, errUnauthorized
		}
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	return usr, nil
}

func (s tokenSession) Clear(ctx context.Context) error {
	claims, err := claimsFrom(ctx)
	if err != nil {
		return err
	}
	return s.denylist.Deny(ctx, claims.Id, time.Unix(claims.ExpiresAt, 0))
}

func refreshToken(ctx echo.Context, conf *core.Config, svc *user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	// inactive users are refused by getContextUser
	usr, err := getContextUser(ctx, svc)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if nowFunc().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := GenerateToken(conf, GetUserClaims(conf, usr, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}
