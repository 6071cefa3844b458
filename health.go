package osrmbulk

import (
	"encoding/json"
	"net/http"

	"github.com/theoremus-urban-solutions/osrm-bulk/utils"
)

type healthResponse struct {
	Status        string `json:"status"`
	OSRM          string `json:"osrm"`
	OSRMReachable bool   `json:"osrm_reachable"`
	RequestsDone  int64  `json:"requests_done"`
	RequestsTotal int64  `json:"requests_total"`
	Time          string `json:"time"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	done, total := s.client.Fetcher().Progress()
	resp := healthResponse{
		Status:        "ok",
		OSRM:          string(s.client.Base()),
		OSRMReachable: s.client.Ping(r.Context()),
		RequestsDone:  done,
		RequestsTotal: total,
		Time:          utils.Iso8601Now(),
	}
	if !resp.OSRMReachable {
		resp.Status = "degraded"
	}
	_ = json.NewEncoder(w).Encode(resp)
}
