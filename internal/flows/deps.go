package flows

import (
	"time"

	"github.com/boardhub/tokenauth/jwt"
)

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Issue    IssueDeps
	Login    LoginDeps
	Reissue  ReissueDeps
	Logout   LogoutDeps
	Validate ValidateDeps
}

// Identity is the flow-local view of a resolved principal.
type Identity struct {
	Subject  string
	Username string
	Role     string
}

// MintFunc signs a token; it matches jwt.Manager.Mint.
type MintFunc func(category jwt.Category, subject, username, role string, ttl time.Duration) (string, error)

// ParseFunc verifies a token; it matches jwt.Manager.Parse.
type ParseFunc func(token string) (*jwt.Claims, error)
