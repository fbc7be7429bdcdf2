package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"recipe-restful/apperrors"
	"recipe-restful/models"
	"recipe-restful/repositories"

	restful "github.com/emicklei/go-restful/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserAttribute is the request attribute holding the authenticated *models.User.
const UserAttribute = "user"

// TokenClaims is the payload of an API token. Tokens do not expire; a token
// is valid for as long as it is stored in the tokens table.
type TokenClaims struct {
	UserID uint `json:"user_id"`
	jwt.RegisteredClaims
}

// Signer issues and verifies API tokens with an HMAC key.
type Signer struct {
	key    []byte
	issuer string
}

func NewSigner(key []byte, issuer string) *Signer {
	return &Signer{key: key, issuer: issuer}
}

// GenerateToken creates a new signed token for the user. Each call yields a
// distinct token because of the random token id.
func (s *Signer) GenerateToken(userID uint) (string, error) {
	claims := &TokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.NewString(),
			Issuer:   s.issuer,
			Subject:  fmt.Sprintf("%d", userID),
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.key)
}

// ParseToken verifies the signature of tokenString and returns its claims.
func (s *Signer) ParseToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.key, nil
	})
	if err != nil {
		var ve *jwt.ValidationError
		if errors.As(err, &ve) {
			switch {
			case ve.Errors&jwt.ValidationErrorMalformed != 0:
				return nil, errors.New("malformed token")
			case ve.Errors&jwt.ValidationErrorSignatureInvalid != 0:
				return nil, errors.New("invalid token signature")
			}
		}
		return nil, fmt.Errorf("couldn't handle this token: %w", err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, errors.New("invalid token issuer")
	}
	return claims, nil
}

// Authenticator resolves the user behind an Authorization header.
type Authenticator struct {
	signer *Signer
	tokens repositories.TokenRepository
	logger *zap.Logger
}

func NewAuthenticator(signer *Signer, tokens repositories.TokenRepository, logger *zap.Logger) *Authenticator {
	return &Authenticator{signer: signer, tokens: tokens, logger: logger}
}

// Authenticate accepts "Bearer <token>" and "Token <token>" headers. The
// token must carry a valid signature and still be stored for an active user.
func (a *Authenticator) Authenticate(ctx context.Context, header string) (*models.User, error) {
	if header == "" {
		return nil, apperrors.NewAuthentication("Authentication credentials were not provided.")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !(strings.EqualFold(parts[0], "bearer") || strings.EqualFold(parts[0], "token")) {
		return nil, apperrors.NewAuthentication("Invalid authorization header format.")
	}

	claims, err := a.signer.ParseToken(parts[1])
	if err != nil {
		a.logger.Debug("rejected token", zap.Error(err))
		return nil, apperrors.NewAuthentication("Invalid token.")
	}

	token, err := a.tokens.FindByKey(ctx, parts[1])
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewAuthentication("Invalid token.")
		}
		return nil, apperrors.NewInternal("Failed to look up token", err)
	}
	if token.UserID != claims.UserID {
		return nil, apperrors.NewAuthentication("Invalid token.")
	}
	if !token.User.IsActive {
		return nil, apperrors.NewAuthentication("User inactive or deleted.")
	}
	return &token.User, nil
}

// AuthFilter rejects unauthenticated requests with 401 and stores the
// authenticated user in the request attributes.
func (a *Authenticator) AuthFilter() restful.FilterFunction {
	return func(req *restful.Request, resp *restful.Response, chain *restful.FilterChain) {
		user, err := a.Authenticate(req.Request.Context(), req.HeaderParameter("Authorization"))
		if err != nil {
			status, message := http.StatusUnauthorized, "Invalid token."
			if appErr, ok := apperrors.As(err); ok {
				status, message = appErr.StatusCode(), appErr.Message
			}
			if status == http.StatusInternalServerError {
				a.logger.Error("authentication failed", zap.Error(err))
				message = "An internal error occurred"
			} else {
				resp.AddHeader("WWW-Authenticate", "Token")
			}
			_ = resp.WriteHeaderAndJson(status, map[string]string{"message": message}, restful.MIME_JSON)
			return
		}

		req.SetAttribute(UserAttribute, user)
		chain.ProcessFilter(req, resp)
	}
}

// UserFromRequest returns the user stored by the AuthFilter.
func UserFromRequest(req *restful.Request) (*models.User, bool) {
	user, ok := req.Attribute(UserAttribute).(*models.User)
	return user, ok && user != nil
}
