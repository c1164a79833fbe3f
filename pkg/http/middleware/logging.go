package middleware

import (
	"log"
	"time"

	"github.com/labstack/echo/v4"
)

// probe endpoints are hit every few seconds; logging them drowns out
// everything useful.
var quietPaths = map[string]struct{}{
	"/healthz": {},
	"/metrics": {},
}

// RequestLogging logs HTTP requests, skipping scrape and probe paths.
func RequestLogging() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			res := c.Response()
			start := time.Now()

			err := next(c)

			if _, quiet := quietPaths[req.URL.Path]; quiet {
				return err
			}

			log.Printf("[%s] %s %s - %d (%s)",
				req.Method,
				req.RequestURI,
				req.RemoteAddr,
				res.Status,
				time.Since(start),
			)

			return err
		}
	}
}
