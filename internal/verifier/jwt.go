package verifier

import (
	"context"
	"errors"

	"github.com/golang-jwt/jwt/v5"

	"github.com/edumarket/course-market-api/internal/models"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
)

// Claims carries the identity fields the provider signs into its
// access tokens.
type Claims struct {
	TenantID string `json:"tenant_id"`
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTVerifier checks provider-issued HS256 tokens offline. Used when
// the identity provider shares its signing secret instead of exposing
// a validation endpoint.
type JWTVerifier struct {
	secret []byte
}

// NewJWTVerifier constructs a JWTVerifier with the shared secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

// Verify parses and validates the token, then checks tenant and role.
func (v *JWTVerifier) Verify(ctx context.Context, token, tenantID string) (*models.Identity, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, appErrors.Clone(appErrors.ErrTokenExpired, "token expirado")
		}
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token inválido")
	}
	if !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token inválido")
	}

	if claims.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token no pertenece al tenant")
	}

	role := models.Role(claims.Role)
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "rol desconocido")
	}

	return &models.Identity{
		TenantID:  claims.TenantID,
		StudentID: claims.Subject,
		FullName:  claims.FullName,
		Role:      role,
	}, nil
}
