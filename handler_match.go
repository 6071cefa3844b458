package osrmbulk

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/theoremus-urban-solutions/osrm-bulk/formatter"
	"github.com/theoremus-urban-solutions/osrm-bulk/osrm"
	"github.com/theoremus-urban-solutions/osrm-bulk/points"
)

const maxMatchBody = 64 << 20

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// handleMatch map matches a CSV point table posted as the request body.
//
// Query parameters: group (group column, empty for one request; defaults to
// the configured column), mode, gaps, geometries, fields (comma separated;
// flattens the result) and format (json or csv, csv needs fields).
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "POST a CSV point table")
		return
	}
	q := r.URL.Query()

	mc := s.cfg.Match
	var extra []osrm.MatchOption
	if v := q.Get("mode"); v != "" {
		extra = append(extra, osrm.WithMode(v))
	}
	if v := q.Get("gaps"); v != "" {
		extra = append(extra, osrm.WithGaps(v))
	}
	if v := q.Get("geometries"); v != "" {
		extra = append(extra, osrm.WithGeometries(v))
	}
	opts, err := mc.Options(extra...)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	group := mc.GroupColumn
	if q.Has("group") {
		group = q.Get("group")
	}
	var fields []string
	if v := q.Get("fields"); v != "" {
		fields = strings.Split(v, ",")
	}
	format := q.Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "csv" {
		writeError(w, http.StatusBadRequest, "format must be json or csv")
		return
	}
	if format == "csv" && len(fields) == 0 {
		fields = mc.Fields
	}

	tbl, err := points.ReadCSV(http.MaxBytesReader(w, r.Body, maxMatchBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := s.client.MatchTable(r.Context(), tbl, MatchRequest{
		GroupColumn:     group,
		Renames:         mc.Renames,
		TimestampFormat: mc.TimestampFormat,
		Options:         opts,
	})
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, points.ErrSchema) || errors.Is(err, points.ErrTimestampFormat) || errors.Is(err, osrm.ErrInvalidOption) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	var buf []byte
	switch {
	case len(fields) == 0:
		buf, err = formatter.BuildJSON(res)
	case format == "csv":
		w.Header().Set("Content-Type", "text/csv")
		if err := formatter.WriteFrameCSV(w, res.Flatten(fields), opts.Geometries()); err != nil {
			s.logger.Error("write csv", "error", err)
		}
		return
	default:
		buf, err = formatter.BuildFrameJSON(res.Flatten(fields))
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf)
}
