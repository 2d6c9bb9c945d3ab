package model_test

import (
	"testing"

	"github.com/kasuganosora/battlerunner/model"
	"github.com/kasuganosora/battlerunner/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	rec := &model.CharacterRecord{
		ID:        "c0ffee00-0000-0000-0000-000000000001",
		Alias:     "character",
		Name:      "Hero",
		Class:     "warrior",
		HP:        55,
		BaseHP:    35,
		Overrides: datatypes.JSON(`{"physical_attack":20}`),
	}
	require.NoError(t, db.Create(rec).Error)

	var found model.CharacterRecord
	require.NoError(t, db.First(&found, "id = ?", rec.ID).Error)
	assert.Equal(t, "Hero", found.Name)
	assert.Equal(t, 1, found.Level)
	assert.JSONEq(t, `{"physical_attack":20}`, string(found.Overrides))

	run := &model.TestRunRecord{RunID: "run-1", CaseName: "scenario", Status: "passed", DurationMs: 3}
	require.NoError(t, db.Create(run).Error)
	assert.Greater(t, run.ID, int64(0))
}
