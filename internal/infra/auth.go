package infra

import "context"

// Token holds the verified identity used by downstream middleware.
type Token struct {
	UID    string
	Role   string
	Claims map[string]interface{}
}

// TokenVerifier verifies a raw bearer token and returns its identity.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*Token, error)
}

func roleClaim(claims map[string]interface{}) string {
	if r, ok := claims["role"].(string); ok {
		return r
	}
	return ""
}
