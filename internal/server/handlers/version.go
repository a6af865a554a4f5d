package handlers

import "net/http"

// VersionResponse is the /version handler's JSON body.
type VersionResponse struct {
	Version string `json:"version"`
}

// VersionHandler returns a handler reporting the given build version
// string, set by cmd/webhunt at link time or defaulting to "dev".
func VersionHandler(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, VersionResponse{Version: version})
	}
}
