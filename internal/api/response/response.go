package response

import (
	"encoding/json"
	"log"
	"net/http"
)

// StatusOK is the message field of every successful response.
const StatusOK = "OK"

// ErrorBody is the envelope of every error response.
type ErrorBody struct {
	Message string `json:"message"`
	Cause   string `json:"cause"`
}

func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR [response.JSON] failed to encode response: %v", err)
	}
}

func Error(w http.ResponseWriter, status int, cause string) {
	JSON(w, status, ErrorBody{Message: "ERROR", Cause: cause})
}
