package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/faceratio/internal/domain"
)

// Recover turns a panicking handler into a 500. A panic carrying an error stays
// reachable through errors.Is on the returned AppError.
func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logger.Error("panic recovered",
				slog.Any("panic", r),
				slog.String("request_id", requestID(c)),
				slog.String("client", Client(c)),
				slog.String("route", c.Method()+" "+c.Path()),
				slog.String("stack", string(debug.Stack())),
			)

			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			err = domain.ErrInternal.WithError(fmt.Errorf("panic: %w", cause))
		}()
		return c.Next()
	}
}
