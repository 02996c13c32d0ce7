package identity

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// Identity описывает аутентифицированного актора запроса.
type Identity struct {
	UserID string
	Admin  bool
}

// ErrNoIdentity возвращается провайдером, когда запрос анонимный.
var ErrNoIdentity = errors.New("request carries no identity")

// Provider извлекает идентичность из HTTP-запроса. Формат токена —
// забота провайдера; остальной код видит только {userID, admin}.
type Provider interface {
	FromRequest(r *http.Request) (Identity, error)
}

// HeaderProvider читает идентичность из заголовков шлюза. Предполагается,
// что аутентификацию уже сделал внешний слой и заголовкам можно верить.
type HeaderProvider struct {
	UserHeader string
	RoleHeader string
}

// NewHeaderProvider создаёт провайдер с заголовками по умолчанию.
func NewHeaderProvider() *HeaderProvider {
	return &HeaderProvider{
		UserHeader: "X-User-Id",
		RoleHeader: "X-User-Role",
	}
}

func (p *HeaderProvider) FromRequest(r *http.Request) (Identity, error) {
	userID := strings.TrimSpace(r.Header.Get(p.UserHeader))
	if userID == "" {
		return Identity{}, ErrNoIdentity
	}

	role := strings.TrimSpace(r.Header.Get(p.RoleHeader))
	return Identity{
		UserID: userID,
		Admin:  strings.EqualFold(role, "admin"),
	}, nil
}

type contextKey struct{}

// WithIdentity кладёт идентичность в контекст запроса.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext возвращает идентичность запроса; ok=false для гостя.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

var _ Provider = (*HeaderProvider)(nil)
