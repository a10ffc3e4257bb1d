package verifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/edumarket/course-market-api/internal/models"
	appErrors "github.com/edumarket/course-market-api/pkg/errors"
)

// Verifier resolves a bearer token into a verified identity for a
// tenant. Token issuance and refresh live with the identity provider;
// this service only verifies.
type Verifier interface {
	Verify(ctx context.Context, token, tenantID string) (*models.Identity, error)
}

// HTTPVerifier delegates verification to the external identity
// provider over HTTP.
type HTTPVerifier struct {
	url    string
	client *http.Client
}

// NewHTTPVerifier constructs an HTTPVerifier against the given
// validation endpoint.
func NewHTTPVerifier(url string, timeout time.Duration) *HTTPVerifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPVerifier{url: url, client: &http.Client{Timeout: timeout}}
}

type verifyRequest struct {
	Token    string `json:"token"`
	TenantID string `json:"tenant_id"`
}

type verifyResponse struct {
	TenantID  string `json:"tenant_id"`
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
	Role      string `json:"role"`
	Error     string `json:"error,omitempty"`
}

// Verify POSTs the token to the identity provider and maps its answer
// onto the domain error taxonomy.
func (v *HTTPVerifier) Verify(ctx context.Context, token, tenantID string) (*models.Identity, error) {
	payload, err := json.Marshal(verifyRequest{Token: token, TenantID: tenantID})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode verify request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(payload))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build verify request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "identity provider unreachable")
	}
	defer resp.Body.Close()

	var body verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "decode verify response")
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token inválido o expirado")
	default:
		return nil, appErrors.Wrap(fmt.Errorf("identity provider status %d: %s", resp.StatusCode, body.Error),
			appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "identity provider failure")
	}

	if body.TenantID != tenantID {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "token no pertenece al tenant")
	}

	role := models.Role(body.Role)
	if !role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "rol desconocido")
	}

	return &models.Identity{
		TenantID:  body.TenantID,
		StudentID: body.StudentID,
		FullName:  body.FullName,
		Role:      role,
	}, nil
}
