package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as the JSON body of a reply with the given status.
// A nil data writes the status alone.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Detail writes the {"detail": ...} error body the auth service uses for
// validation and token failures
func Detail(w http.ResponseWriter, status int, detail string) {
	JSON(w, status, map[string]string{"detail": detail})
}
