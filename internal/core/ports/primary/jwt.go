package primary

import "context"

// TokenService issues and checks the bearer tokens guarding the operator API.
type TokenService interface {
	IssueToken(ctx context.Context, subject string) (string, error)
	VerifyToken(ctx context.Context, token string) (bool, error)
}
