// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/wingedpig/lattice/internal/api/handlers"
)

// Recovery is middleware that recovers from panics.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				log.Printf("panic recovered: %v\n%s", err, debug.Stack())
				handlers.WriteError(w, http.StatusInternalServerError, handlers.ErrInternalError, "Internal server error")
			}
		}()

		next.ServeHTTP(w, r)
	})
}
