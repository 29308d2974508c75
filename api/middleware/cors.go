package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS applies the API's allowed-origin policy. Origins are fixed rather
// than configurable; new frontends get added here deliberately.
func CORS() func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: []string{
			"http://localhost:3000",
			"https://tefamart.id",
			"https://staging.tefamart.id",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	return cors.New(opts).Handler
}
