package utils

import (
	"context"
	"net/http"

	"potluck/globals"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID    string
	Name      string
	Anonymous bool
}

func IdentityFromContext(ctx context.Context) Identity {
	id, _ := ctx.Value(globals.UserIDKey).(string)
	name, _ := ctx.Value(globals.UserNameKey).(string)
	anon, _ := ctx.Value(globals.AnonymousKey).(bool)
	return Identity{UserID: id, Name: name, Anonymous: anon}
}

func GetUserIDFromRequest(r *http.Request) string {
	return IdentityFromContext(r.Context()).UserID
}

// WithIdentity stores id on ctx the way the auth middleware does.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, globals.UserIDKey, id.UserID)
	ctx = context.WithValue(ctx, globals.UserNameKey, id.Name)
	return context.WithValue(ctx, globals.AnonymousKey, id.Anonymous)
}
