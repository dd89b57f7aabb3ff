package holiday

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"metargb/transfusion-service/internal/eligibility"
	"metargb/transfusion-service/internal/errs"
	"metargb/transfusion-service/pkg/logger"
	"metargb/transfusion-service/pkg/metrics"
)

// Source supplies one collection of holiday records. Sources fail
// independently of each other.
type Source interface {
	Name() string
	FetchAll(ctx context.Context) ([]eligibility.Record, error)
}

// Loader fetches holiday sources and merges them into a calendar.
type Loader struct {
	calendar *eligibility.Calendar
	log      *logger.Logger
	metrics  *metrics.Metrics
}

// NewLoader creates a loader. metrics may be nil.
func NewLoader(calendar *eligibility.Calendar, log *logger.Logger, m *metrics.Metrics) *Loader {
	if log == nil {
		log = logger.Discard()
	}
	return &Loader{calendar: calendar, log: log, metrics: m}
}

// LoadAll fetches every source concurrently and merges the ones that
// succeeded. The returned error joins one *errs.FetchError per failed
// source; the calendar still holds everything that did load.
func (l *Loader) LoadAll(ctx context.Context, sources ...Source) error {
	collections := make([][]eligibility.Record, len(sources))
	failures := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			records, err := src.FetchAll(ctx)
			if err != nil {
				failures[i] = &errs.FetchError{Source: src.Name(), Err: err}
				return
			}
			collections[i] = records
		}(i, src)
	}
	wg.Wait()

	var loaded [][]eligibility.Record
	for i, src := range sources {
		result := "ok"
		if failures[i] != nil {
			result = "error"
			l.log.WithFields(logrus.Fields{
				"source": src.Name(),
				"error":  failures[i].Error(),
			}).Warn("holiday source failed, scheduling continues without it")
		} else {
			loaded = append(loaded, collections[i])
		}
		if l.metrics != nil {
			l.metrics.HolidayLoads.WithLabelValues(src.Name(), result).Inc()
		}
	}

	added := 0
	if len(loaded) > 0 {
		added = l.calendar.Load(loaded...)
	}
	if l.metrics != nil {
		l.metrics.HolidaysLoaded.Set(float64(l.calendar.Len()))
	}

	l.log.WithFields(logrus.Fields{
		"sources": len(sources),
		"loaded":  len(loaded),
		"added":   added,
		"total":   l.calendar.Len(),
	}).Info("holiday calendar loaded")

	return errors.Join(failures...)
}

// Start runs LoadAll in the background. The channel receives its result
// once and is then closed.
func (l *Loader) Start(ctx context.Context, sources ...Source) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- l.LoadAll(ctx, sources...)
	}()
	return done
}
