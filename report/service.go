// Package report persists test case results to the database.
package report

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/battlerunner/harness/runner"
	"github.com/kasuganosora/battlerunner/model"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	queueSize     = 1024
	batchSize     = 100
	flushInterval = 2 * time.Second
)

// Service writes test results asynchronously in batches.
type Service struct {
	db     *gorm.DB
	ch     chan *model.TestRunRecord
	stopCh chan struct{}
	wg     sync.WaitGroup
	logger *zap.Logger
}

// New creates a Service and starts its background worker.
func New(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &Service{
		db:     db,
		ch:     make(chan *model.TestRunRecord, queueSize),
		stopCh: make(chan struct{}),
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Record enqueues one case result. It never blocks: a full queue drops the
// record with a warning.
func (svc *Service) Record(runID, suite string, r runner.Result) {
	assertions, err := json.Marshal(r.Assertions)
	if err != nil {
		svc.logger.Warn("encode assertions", zap.String("case", r.Name), zap.Error(err))
		assertions = []byte("[]")
	}
	record := &model.TestRunRecord{
		RunID:      runID,
		Suite:      suite,
		CaseName:   r.Name,
		Category:   r.Category,
		Status:     r.Status,
		Error:      r.Error,
		Assertions: datatypes.JSON(assertions),
		DurationMs: int(r.Duration.Milliseconds()),
	}
	select {
	case svc.ch <- record:
	default:
		svc.logger.Warn("report queue full, dropping result",
			zap.String("run_id", runID),
			zap.String("case", r.Name))
	}
}

// Stop flushes queued records and waits for the worker to exit.
func (svc *Service) Stop(_ context.Context) {
	select {
	case <-svc.stopCh:
	default:
		close(svc.stopCh)
	}
	svc.wg.Wait()
}

// Records returns the stored results of one run in insertion order.
func (svc *Service) Records(ctx context.Context, runID string) ([]model.TestRunRecord, error) {
	var out []model.TestRunRecord
	err := svc.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("id").
		Find(&out).Error
	return out, err
}

// StatusCounts returns how many cases of a run ended in each status.
func (svc *Service) StatusCounts(ctx context.Context, runID string) (map[string]int, error) {
	var rows []struct {
		Status string
		N      int
	}
	err := svc.db.WithContext(ctx).
		Model(&model.TestRunRecord{}).
		Select("status, count(*) AS n").
		Where("run_id = ?", runID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.N
	}
	return counts, nil
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]*model.TestRunRecord, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.db.Create(&batch).Error; err != nil {
			svc.logger.Error("report batch write failed",
				zap.Int("records", len(batch)),
				zap.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case rec := <-svc.ch:
			batch = append(batch, rec)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case rec := <-svc.ch:
					batch = append(batch, rec)
				default:
					flush()
					return
				}
			}
		}
	}
}
