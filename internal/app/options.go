package app

import (
	"time"

	"github.com/avesk/pickboard/internal/adapters/repository"
	"github.com/avesk/pickboard/internal/directory"
	"github.com/avesk/pickboard/pkg/logger"
)

// Option configures the Service.
type Option func(*Service)

// WithStore sets the item store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithDirectory sets the picker profile directory.
func WithDirectory(dir directory.Directory) Option {
	return func(s *Service) {
		if dir != nil {
			s.dir = dir
		}
	}
}

// WithClock overrides the time source. Tests use this to pin "now".
func WithClock(clock func() time.Time) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLeaderboardSize sets the visible top-N slice for picker dashboards.
func WithLeaderboardSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.leaderboardSize = n
		}
	}
}

// WithDropDir sets the CSV drop directory the watcher monitors.
func WithDropDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.dropDir = dir
		}
	}
}

// WithScanInterval sets the periodic rescan interval.
func WithScanInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.scanInterval = d
		}
	}
}

// WithWorkerCount sets the number of ingest workers.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithQueueSize sets the ingest queue capacity.
func WithQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueSize = n
		}
	}
}

// WithBatchSize sets the ingestion insert batch size.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}
