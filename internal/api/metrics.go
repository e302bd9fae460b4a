package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/smartbin-core/internal/state"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          MQTTMetrics     `json:"mqtt"`
	Devices       DeviceMetrics   `json:"devices"`
	Bins          BinMetrics      `json:"bins"`
	Database      DatabaseMetrics `json:"database"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// MQTTMetrics contains MQTT client statistics.
type MQTTMetrics struct {
	Connected      bool `json:"connected"`
	TopicsObserved int  `json:"topics_observed"`
}

// DeviceMetrics counts devices by connectivity status.
type DeviceMetrics struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// BinMetrics counts bins by fill category.
type BinMetrics struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"by_category"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		Devices: DeviceMetrics{ByStatus: make(map[string]int)},
		Bins:    BinMetrics{ByCategory: make(map[string]int)},
	}

	if s.hub != nil {
		metrics.WebSocket.ConnectedClients = s.hub.ClientCount()
	}

	if s.mqtt != nil {
		metrics.MQTT = MQTTMetrics{
			Connected:      s.mqtt.IsConnected(),
			TopicsObserved: len(s.mqtt.Messages()),
		}
	}

	devices, err := s.coordinator.ListDevices(ctx, "")
	if err != nil {
		s.writeDomainError(w, r, err, "failed to collect device metrics")
		return
	}
	metrics.Devices.Total = len(devices)
	for _, d := range devices {
		metrics.Devices.ByStatus[string(d.Status)]++
	}

	bins, err := s.coordinator.ListBins(ctx, "")
	if err != nil {
		s.writeDomainError(w, r, err, "failed to collect bin metrics")
		return
	}
	metrics.Bins.Total = len(bins)
	for _, b := range bins {
		metrics.Bins.ByCategory[string(state.Classify(b.LevelPercent))]++
	}

	if s.db != nil {
		dbStats := s.db.Stats()
		metrics.Database = DatabaseMetrics{
			OpenConnections: dbStats.OpenConnections,
			InUse:           dbStats.InUse,
			Idle:            dbStats.Idle,
			WaitCount:       dbStats.WaitCount,
		}
	}

	writeJSON(w, http.StatusOK, metrics)
}
