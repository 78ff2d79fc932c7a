package helper

import (
	"log/slog"
	"sync"
)

type HelperRepository struct {
	baseUrl *string
	WG      *sync.WaitGroup
	logger  *slog.Logger
}

func New(baseUrl *string, wg *sync.WaitGroup, logger *slog.Logger) *HelperRepository {
	return &HelperRepository{
		baseUrl: baseUrl,
		WG:      wg,
		logger:  logger,
	}
}

func (h *HelperRepository) NewEmailData() map[string]any {
	data := map[string]any{
		"BaseURL": h.baseUrl,
	}

	return data
}

// BackgroundTask runs fn in its own goroutine, tracked by the
// application WaitGroup so shutdown can drain in-flight work.
func (h *HelperRepository) BackgroundTask(fn func() error) {
	if h.WG != nil {
		h.WG.Add(1)
	}

	go func() {
		if h.WG != nil {
			defer h.WG.Done()
		}

		defer func() {
			if err := recover(); err != nil {
				if h.logger != nil {
					h.logger.Error("background task panic", "error", err)
				}
			}
		}()

		if err := fn(); err != nil && h.logger != nil {
			h.logger.Error("background task failed", "error", err)
		}
	}()
}
