package report

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/kasuganosora/battlerunner/harness/check"
	"github.com/kasuganosora/battlerunner/harness/runner"
	"github.com/kasuganosora/battlerunner/model"
	"github.com/kasuganosora/battlerunner/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func result(name, status string) runner.Result {
	return runner.Result{
		Name:     name,
		Category: "calc",
		Status:   status,
		Duration: 1500 * time.Millisecond,
		Assertions: []check.Result{{
			Assertion: check.Assertion{Type: check.Equals, Target: "physical_attack", Expected: "20"},
			Actual:    20,
			Passed:    status == runner.StatusPassed,
		}},
	}
}

func TestRecordFlushedOnStop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	failed := result("物理攻击", runner.StatusFailed)
	failed.Error = "physical_attack: expected 20, got 25"
	svc.Record("run-1", "计算", failed)
	svc.Stop(context.Background())

	recs, err := svc.Records(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	rec := recs[0]
	assert.Equal(t, "计算", rec.Suite)
	assert.Equal(t, "物理攻击", rec.CaseName)
	assert.Equal(t, "calc", rec.Category)
	assert.Equal(t, runner.StatusFailed, rec.Status)
	assert.Equal(t, failed.Error, rec.Error)
	assert.Equal(t, 1500, rec.DurationMs)

	var assertions []check.Result
	require.NoError(t, json.Unmarshal(rec.Assertions, &assertions))
	require.Len(t, assertions, 1)
	assert.Equal(t, "physical_attack", assertions[0].Assertion.Target)
	assert.False(t, assertions[0].Passed)
}

func TestStatusCounts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	for i := 0; i < 3; i++ {
		svc.Record("run-2", "s", result(fmt.Sprintf("ok-%d", i), runner.StatusPassed))
	}
	svc.Record("run-2", "s", result("bad", runner.StatusError))
	svc.Record("other", "s", result("elsewhere", runner.StatusFailed))
	svc.Stop(context.Background())

	counts, err := svc.StatusCounts(context.Background(), "run-2")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{runner.StatusPassed: 3, runner.StatusError: 1}, counts)
}

func TestBatchFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	for i := 0; i < batchSize+5; i++ {
		svc.Record("run-3", "batch", result(fmt.Sprintf("case-%d", i), runner.StatusPassed))
	}
	svc.Stop(context.Background())

	var count int64
	db.Model(&model.TestRunRecord{}).Where("run_id = ?", "run-3").Count(&count)
	assert.Equal(t, int64(batchSize+5), count)
}

func TestStopIdempotent(t *testing.T) {
	svc := New(testutil.SetupTestDB(t), nil)
	svc.Stop(context.Background())
	svc.Stop(context.Background())
}

func TestRecorderWithRunner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	suite := &runner.TestSuite{
		Name: "集成",
		Tests: []runner.TestCase{{
			Name:  "创建角色",
			Setup: []string{"创建一个角色,攻击=20", "计算物理攻击"},
			Assertions: []check.Assertion{
				{Type: check.Equals, Target: "physical_attack", Expected: "20"},
			},
		}},
	}
	out := runner.New(runner.Options{Seed: 1, Recorder: svc}).RunSuite(context.Background(), suite)
	svc.Stop(context.Background())

	recs, err := svc.Records(context.Background(), out.RunID)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, runner.StatusPassed, recs[0].Status)
}
