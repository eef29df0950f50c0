package rest

import (
	"net"
	"net/http"

	domain "github.com/oshokin/alarm-bridge/internal/domain/alarm"
)

// wallStatus is the wall-panel view of the arm flag.
type wallStatus struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleWallStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, wallStatus{Enabled: s.engine.Armed(r.Context())})
}

func (s *Server) handleWallSet(armed bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor := &domain.Actor{
			Source:   domain.SourceWall,
			Hostname: remoteHost(r),
		}

		enabled := s.engine.SetArmed(r.Context(), actor, armed)
		writeJSON(w, http.StatusOK, wallStatus{Enabled: enabled})
	}
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return host
}
