package middlewares

import (
	"encoding/json"
	"log"
	"net/http"

	"posts-api/models"
)

// RespondJSON writes data as JSON with status. Statuses that forbid a body
// (1xx, 204, 304) get the status line and headers only.
func RespondJSON(w http.ResponseWriter, data interface{}, status int) {
	if !bodyAllowed(status) {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("error encoding response: %v", err)
		}
	}
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status <= 199:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	}
	return true
}

// RespondMessage writes {"msg": msg} with status.
func RespondMessage(w http.ResponseWriter, msg interface{}, status int) {
	RespondJSON(w, models.Message{Msg: msg}, status)
}

// HttpError logs the cause and answers with {"msg": message}.
func HttpError(w http.ResponseWriter, message interface{}, status int, err error) {
	log.Printf("HTTP %d - %v: %v", status, message, err)
	RespondMessage(w, message, status)
}
