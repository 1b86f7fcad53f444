package delivery

import (
	"net/http"

	"github.com/Vovarama1992/go-utils/logger"
	json "github.com/goccy/go-json"

	"github.com/Vovarama1992/file_changer/internal/apperr"
)

const service = "file_changer"

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	File    string `json:"file,omitempty"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError отдаёт клиенту код и сообщение. Для внутренних ошибок в проде
// подробности остаются только в логах.
func writeError(w http.ResponseWriter, log *logger.ZapLogger, production bool, err error) {
	e := apperr.From(err)
	status := apperr.HTTPStatus(e)

	body := errorBody{Error: e.Message, Code: e.Code, File: e.File}
	internal := status >= http.StatusInternalServerError && status != http.StatusGatewayTimeout
	if internal {
		log.Log(logger.LogEntry{Level: "error", Message: e.Message, Service: service, Error: err})
		if production {
			body.Error = "internal server error"
		} else if e.Err != nil {
			body.Details = e.Err.Error()
		}
	} else {
		log.Log(logger.LogEntry{Level: "warn", Message: e.Code + ": " + e.Message, Service: service, Error: e.Err})
		if e.Err != nil && !production {
			body.Details = e.Err.Error()
		}
	}

	writeJSON(w, status, body)
}
