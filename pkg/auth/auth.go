package auth

import (
	"context"
	"errors"
	"slices"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RolePlayer Role = "player"
)

var ErrPermissionDenied = errors.New("permission denied")

type Principal interface {
	Name() string
}

type Authentication interface {
	Principal() Principal
	Roles() []Role
}

type (
	SimpleAuth struct {
		principal Principal
		roles     []Role
	}
	SimplePrincipal struct {
		name string
	}
)

var _ Authentication = (*SimpleAuth)(nil)

func NewSimpleAuth(name string, roles ...Role) *SimpleAuth {
	return &SimpleAuth{principal: &SimplePrincipal{name: name}, roles: roles}
}

func (s *SimplePrincipal) Name() string {
	return s.name
}

func (s *SimpleAuth) Principal() Principal {
	return s.principal
}

func (s *SimpleAuth) Roles() []Role {
	return s.roles
}

// WithRole returns a copy of a carrying the additional role
func WithRole(a Authentication, role Role) Authentication {
	if HasRole(a, role) {
		return a
	}
	roles := append(slices.Clone(a.Roles()), role)
	return &SimpleAuth{principal: a.Principal(), roles: roles}
}

func HasRole(a Authentication, role Role) bool {
	if a == nil {
		return false
	}
	return slices.Contains(a.Roles(), role)
}

var anon = &SimpleAuth{principal: &SimplePrincipal{name: "anon"}, roles: []Role{}}

func Anonymous() Authentication {
	return anon
}

type authCtxKey struct{}

func AddToContext(ctx context.Context, a Authentication) context.Context {
	return context.WithValue(ctx, authCtxKey{}, a)
}

func FromContext(ctx context.Context) Authentication {
	if ctx == nil {
		return nil
	}
	if val, ok := ctx.Value(authCtxKey{}).(Authentication); ok {
		return val
	}
	return nil
}
