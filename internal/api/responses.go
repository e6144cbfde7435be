package api

import (
	"net/http"

	"github.com/phrazzld/vidgen-api/internal/api/shared"
)

// RespondWithJSON forwards to shared.RespondWithJSON.
func RespondWithJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	shared.RespondWithJSON(w, r, status, data)
}

// RespondWithError forwards to shared.RespondWithError.
func RespondWithError(w http.ResponseWriter, r *http.Request, status int, message string) {
	shared.RespondWithError(w, r, status, message)
}
