package controllers

import (
	"net/http"

	"github.com/angelmondragon/puntoventa-backend/api/middleware"
	"github.com/angelmondragon/puntoventa-backend/internal/sales"
	pkgerrors "github.com/angelmondragon/puntoventa-backend/pkg/errors"
)

func actorFromRequest(r *http.Request) (sales.Actor, error) {
	userID, role, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return sales.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return sales.Actor{UserID: userID, Role: role}, nil
}

func serviceUnavailable(name string) error {
	return pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable")
}
