package api

import (
	"net/http"
	"runtime"
	"time"

	"kaizen/internal/storage"
	"kaizen/internal/version"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Version   string            `json:"version"`
	Uptime    string            `json:"uptime"`
	Storage   *storage.Stats    `json:"storage,omitempty"`
	Memory    *MemoryHealthInfo `json:"memory"`
	Auth      map[string]any    `json:"auth,omitempty"`
	Warnings  []string          `json:"warnings,omitempty"`
}

// MemoryHealthInfo contains memory usage information
type MemoryHealthInfo struct {
	AllocMB      float64 `json:"allocMb"`
	SysMB        float64 `json:"sysMb"`
	NumGC        uint32  `json:"numGc"`
	NumGoroutine int     `json:"numGoroutine"`
}

// handleHealth reports liveness plus store statistics. A store that cannot
// be read turns the status to "degraded" with 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Version:   version.Version,
		Uptime:    time.Since(s.startedAt).Round(time.Second).String(),
		Memory:    memoryInfo(),
	}

	status := http.StatusOK
	if s.deps.DB != nil {
		stats, err := s.deps.DB.Stats(r.Context())
		if err != nil {
			resp.Status = "degraded"
			resp.Warnings = append(resp.Warnings, "storage: "+err.Error())
			status = http.StatusServiceUnavailable
		}
		resp.Storage = stats
	}
	if s.deps.Auth != nil {
		resp.Auth = s.deps.Auth.Stats()
	}

	WriteJSON(w, resp, status)
}

// handleVersion reports build metadata
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, version.Get(), http.StatusOK)
}

func memoryInfo() *MemoryHealthInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return &MemoryHealthInfo{
		AllocMB:      float64(m.Alloc) / 1024 / 1024,
		SysMB:        float64(m.Sys) / 1024 / 1024,
		NumGC:        m.NumGC,
		NumGoroutine: runtime.NumGoroutine(),
	}
}
