package echoapi

import (
	"context"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

var contextObjectKey = "object"

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// objectMiddleware loads the record identified by the ":id" path param into the context,
// responding 404 when get returns notFound.
func objectMiddleware[T any](get func(ctx context.Context, id string) (T, error), notFound error) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			obj, err := get(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				if errors.Is(err, notFound) {
					return errHttpNotFound
				}
				return errors.Wrap(err, "loading object")
			}
			ctx.Set(contextObjectKey, obj)
			return next(ctx)
		}
	}
}

func getContextObject[T any](ctx echo.Context) (T, error) {
	obj, ok := ctx.Get(contextObjectKey).(T)
	if !ok {
		return obj, errors.New("object not found in echo.Context")
	}
	return obj, nil
}
