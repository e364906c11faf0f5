// Package api exposes the fusion server's HTTP endpoints: run history,
// dataset classes, filter estimates and sensor commands.
package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/ashwin-aias/lidar-camera-fusion/internal/db"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/monitoring"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/sensormux"
	"github.com/ashwin-aias/lidar-camera-fusion/internal/version"
)

type Server struct {
	m  sensormux.MuxInterface
	db *db.DB
}

func NewServer(m sensormux.MuxInterface, db *db.DB) *Server {
	return &Server{
		m:  m,
		db: db,
	}
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthHandler)
	mux.HandleFunc("/runs", s.listRuns)
	mux.HandleFunc("/runs/labels", s.listLabelCounts)
	mux.HandleFunc("/classes", s.listClasses)
	mux.HandleFunc("/filter/runs", s.listFilterRuns)
	mux.HandleFunc("/filter/estimates", s.listEstimates)
	mux.HandleFunc("/command", s.sendCommandHandler)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Response already started, only log.
		monitoring.Logf("JSON encoding error: %v", err)
	}
}

func (s *Server) writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Welcome to the Fusion Server!"))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// limitParam parses the optional ?limit= query parameter.
func limitParam(r *http.Request) int {
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			return v
		}
	}
	return 100
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runs, err := s.db.ConversionRuns(limitParam(r))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to retrieve conversion runs")
		return
	}
	if runs == nil {
		runs = []db.ConversionRun{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) listLabelCounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runID := r.URL.Query().Get("run")
	if runID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "missing run parameter")
		return
	}

	counts, err := s.db.LabelCounts(runID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to retrieve label counts")
		return
	}
	if counts == nil {
		counts = []db.LabelCount{}
	}
	s.writeJSON(w, http.StatusOK, counts)
}

func (s *Server) listClasses(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	classes, err := s.db.Classes()
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to retrieve classes")
		return
	}
	s.writeJSON(w, http.StatusOK, classes)
}

func (s *Server) listFilterRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runs, err := s.db.FilterRuns(limitParam(r))
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to retrieve filter runs")
		return
	}
	if runs == nil {
		runs = []db.FilterRun{}
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) listEstimates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runID := r.URL.Query().Get("run")
	if runID == "" {
		s.writeJSONError(w, http.StatusBadRequest, "missing run parameter")
		return
	}

	estimates, err := s.db.Estimates(runID)
	if err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to retrieve estimates")
		return
	}
	if estimates == nil {
		estimates = []db.FilterEstimate{}
	}
	s.writeJSON(w, http.StatusOK, estimates)
}

func (s *Server) sendCommandHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	command := r.FormValue("command")
	if command == "" {
		s.writeJSONError(w, http.StatusBadRequest, "missing command")
		return
	}

	if err := s.m.SendCommand(command); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, "failed to send command")
		return
	}
	if err := s.db.RecordCommand(command); err != nil {
		monitoring.Logf("failed to record command %q: %v", command, err)
	}
	io.WriteString(w, "Command sent successfully")
}
