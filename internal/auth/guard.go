package auth

// Guard gates operations on a bearer token. It holds no mutable state.
type Guard struct {
	tokens *Tokens
}

func NewGuard(tokens *Tokens) *Guard {
	return &Guard{tokens: tokens}
}

func (g *Guard) RequireAuthenticated(token string) (Claims, error) {
	return g.tokens.Verify(token)
}

// RequireAdmin always runs the authenticated check first, so an invalid
// token yields ErrUnauthenticated and never ErrForbidden.
func (g *Guard) RequireAdmin(token string) (Claims, error) {
	claims, err := g.RequireAuthenticated(token)
	if err != nil {
		return Claims{}, err
	}
	if !claims.IsAdmin {
		return claims, ErrForbidden
	}
	return claims, nil
}
