package auth

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/blogkit/auth-gateway/internal/domain"
	apperrors "github.com/blogkit/auth-gateway/pkg/util"
)

func TestDecide(t *testing.T) {
	anonymous := Principal{}
	user := Principal{Identity: "u@example.com", Role: domain.RoleUser, Authenticated: true}
	admin := Principal{Identity: "a@example.com", Role: domain.RoleAdmin, Authenticated: true}

	cases := []struct {
		name      string
		class     RouteClass
		principal Principal
		wantCode  string
	}{
		{"public anonymous", RouteClassPublic, anonymous, ""},
		{"public user", RouteClassPublic, user, ""},
		{"authenticated anonymous", RouteClassAuthenticated, anonymous, "UNAUTHORIZED"},
		{"authenticated user", RouteClassAuthenticated, user, ""},
		{"authenticated admin", RouteClassAuthenticated, admin, ""},
		{"admin anonymous", RouteClassAdmin, anonymous, "UNAUTHORIZED"},
		{"admin user", RouteClassAdmin, user, "FORBIDDEN"},
		{"admin admin", RouteClassAdmin, admin, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Decide(tc.class, tc.principal)
			if tc.wantCode == "" {
				require.NoError(t, err)
				return
			}
			var domainErr *apperrors.DomainError
			require.True(t, errors.As(err, &domainErr))
			require.Equal(t, tc.wantCode, domainErr.Code)
		})
	}
}
