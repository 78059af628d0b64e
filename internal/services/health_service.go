package services

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/isdelr/pinboard-be/internal/store"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/process"
)

// HealthStatus is the body of the health endpoint.
type HealthStatus struct {
	Status       string  `json:"status"`
	Error        string  `json:"error,omitempty"`
	Uptime       string  `json:"uptime"`
	Goroutines   int     `json:"goroutines"`
	ProcessRSS   uint64  `json:"processRss,omitempty"`
	ProcessCPU   float64 `json:"processCpu,omitempty"`
	HostUptime   uint64  `json:"hostUptime,omitempty"`
	CPUCount     int     `json:"cpuCount,omitempty"`
	StoreLatency string  `json:"storeLatency,omitempty"`
}

// HealthServiceProvider defines the interface for health checks.
type HealthServiceProvider interface {
	Check(ctx context.Context) (HealthStatus, error)
}

// HealthService reports store reachability and process statistics.
type HealthService struct {
	store   store.Store
	started time.Time
}

// NewHealthService creates a new HealthService.
func NewHealthService(s store.Store) *HealthService {
	return &HealthService{store: s, started: time.Now()}
}

// Check pings the store and samples process stats. The returned error is
// non-nil only when the store is unreachable.
func (s *HealthService) Check(ctx context.Context) (HealthStatus, error) {
	status := HealthStatus{
		Status:     "ok",
		Uptime:     time.Since(s.started).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
	}
	s.sample(ctx, &status)

	start := time.Now()
	if err := s.store.Ping(ctx); err != nil {
		status.Status = "unavailable"
		status.Error = err.Error()
		return status, fmt.Errorf("store ping failed: %w", err)
	}
	status.StoreLatency = time.Since(start).String()
	return status, nil
}

// sample fills in process and host stats; unavailable stats are left zero.
func (s *HealthService) sample(ctx context.Context, status *HealthStatus) {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		log.Debug().Err(err).Msg("Failed to inspect process")
	} else {
		if mem, err := proc.MemoryInfoWithContext(ctx); err == nil {
			status.ProcessRSS = mem.RSS
		}
		if pct, err := proc.CPUPercentWithContext(ctx); err == nil {
			status.ProcessCPU = pct
		}
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		status.HostUptime = uptime
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		status.CPUCount = n
	}
}
