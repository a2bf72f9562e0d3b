package api

import (
	"net/http"
)

type SystemHandler struct{}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]string{"status": "ok"}, http.StatusOK)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeData(w, map[string]string{
			"version":    version,
			"build_time": buildTime,
		}, http.StatusOK)
	}
}
