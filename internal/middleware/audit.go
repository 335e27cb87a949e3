package middleware

import (
	"wmscore/internal/common"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger logs every request with its caller, status and latency.
// State-changing requests are logged at info, reads at debug.
func RequestLogger() echo.MiddlewareFunc {
	return echoMiddleware.RequestLoggerWithConfig(echoMiddleware.RequestLoggerConfig{
		LogStatus:    true,
		LogMethod:    true,
		LogRoutePath: true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echoMiddleware.RequestLoggerValues) error {
			level := zerolog.DebugLevel
			if v.Method != echo.GET && v.Method != echo.HEAD {
				level = zerolog.InfoLevel
			}
			if v.Status >= 500 {
				level = zerolog.ErrorLevel
			}

			event := log.WithLevel(level).
				Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("path", v.RoutePath).
				Int("status", v.Status).
				Dur("latency", v.Latency)
			if userID, ok := common.GetUserIDFromContext(c.Request().Context()); ok {
				event = event.Int64("user_id", userID)
			}
			if v.Error != nil {
				event = event.Err(v.Error)
			}
			event.Msg("request")
			return nil
		},
	})
}
