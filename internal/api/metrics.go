package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          BackendMetrics  `json:"mqtt"`
	InfluxDB      BackendMetrics  `json:"influxdb"`
	Devices       DeviceMetrics   `json:"devices"`
	Database      DatabaseMetrics `json:"database"`
	AuditQueue    int             `json:"audit_queue"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains live feed statistics.
type WSMetrics struct {
	Subscribers    int    `json:"subscribers"`
	PendingTickets int    `json:"pending_tickets"`
	DroppedFrames  uint64 `json:"dropped_frames"`
}

// BackendMetrics reports an optional backend. Enabled is false when the
// service runs without it.
type BackendMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// DeviceMetrics contains device counts by status.
type DeviceMetrics struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleMetrics returns process and backend metrics for operators.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
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
		WebSocket: WSMetrics{
			Subscribers:    s.feed.SubscriberCount(),
			PendingTickets: s.tickets.size(),
			DroppedFrames:  s.feed.Dropped(),
		},
		MQTT:       backendMetrics(s.mqtt),
		InfluxDB:   backendMetrics(s.influx),
		AuditQueue: len(s.auditCh),
	}

	devices, err := s.registry.ListDevices(r.Context())
	if err != nil {
		s.logger.Error("failed to list devices for metrics", "error", err)
		writeInternalError(w)
		return
	}
	metrics.Devices = DeviceMetrics{Total: len(devices), ByStatus: make(map[string]int)}
	for _, d := range devices {
		metrics.Devices.ByStatus[string(d.Status)]++
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

func backendMetrics(c ConnectionStatus) BackendMetrics {
	if c == nil {
		return BackendMetrics{}
	}
	return BackendMetrics{Enabled: true, Connected: c.IsConnected()}
}
