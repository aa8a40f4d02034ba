package repository_test

import (
	"context"
	"errors"
	"testing"

	"github.com/amirphl/telecall/models"
	"github.com/amirphl/telecall/repository"
	testutil "github.com/amirphl/telecall/testing"
	"github.com/amirphl/telecall/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestTelecallingRecordRepository_SaveAndLookup(t *testing.T) {
	db, err := testutil.NewSQLiteDB()
	require.NoError(t, err)
	repo := repository.NewTelecallingRecordRepository(db)
	ctx := context.Background()

	record := testutil.NewTelecallingRecord("25-10000001")
	require.NoError(t, repo.Save(ctx, record))
	require.NotZero(t, record.ID)

	byUUID, err := repo.ByUUID(ctx, record.UUID.String())
	require.NoError(t, err)
	require.NotNil(t, byUUID)
	assert.Equal(t, record.AppointmentID, byUUID.AppointmentID)

	byAppointment, err := repo.ByAppointmentID(ctx, "25-10000001")
	require.NoError(t, err)
	require.NotNil(t, byAppointment)
	assert.Equal(t, record.ID, byAppointment.ID)

	missing, err := repo.ByUUID(ctx, "not-a-uuid")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestTelecallingRecordRepository_DuplicateAppointmentIDIsTranslated(t *testing.T) {
	db, err := testutil.NewSQLiteDB()
	require.NoError(t, err)
	repo := repository.NewTelecallingRecordRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, testutil.NewTelecallingRecord("25-10000001")))

	err = repo.Save(ctx, testutil.NewTelecallingRecord("25-10000001"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}

func TestTelecallingRecordRepository_DeleteReportsOnlyFirstCaller(t *testing.T) {
	db, err := testutil.NewSQLiteDB()
	require.NoError(t, err)
	repo := repository.NewTelecallingRecordRepository(db)
	ctx := context.Background()

	record := testutil.NewTelecallingRecord("25-10000001")
	require.NoError(t, repo.Save(ctx, record))

	deleted, err := repo.DeleteByID(ctx, record.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = repo.DeleteByID(ctx, record.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	// the freed id can be held by a new row
	require.NoError(t, repo.Save(ctx, testutil.NewTelecallingRecord("25-10000001")))
}

func TestTelecallingRecordRepository_UpdateAndFilter(t *testing.T) {
	db, err := testutil.NewSQLiteDB()
	require.NoError(t, err)
	repo := repository.NewTelecallingRecordRepository(db)
	ctx := context.Background()

	draft := testutil.NewTelecallingRecord("25-10000001")
	draft.Status = models.TelecallingStatusDraft
	require.NoError(t, repo.Save(ctx, draft))
	require.NoError(t, repo.Save(ctx, testutil.NewTelecallingRecord("25-10000002")))

	status := models.TelecallingStatusDraft
	count, err := repo.Count(ctx, models.TelecallingRecordFilter{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	draft.Status = models.TelecallingStatusActive
	draft.CustomerName = "Jane Roe"
	draft.Notes = utils.ToPtr("called back")
	draft.UpdatedAt = utils.UTCNow()
	require.NoError(t, repo.Update(ctx, draft))

	count, err = repo.Count(ctx, models.TelecallingRecordFilter{Status: &status})
	require.NoError(t, err)
	assert.Zero(t, count)

	reloaded, err := repo.ByID(ctx, draft.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	assert.Equal(t, "Jane Roe", reloaded.CustomerName)
	require.NotNil(t, reloaded.Notes)
	assert.Equal(t, "called back", *reloaded.Notes)

	all, err := repo.ByFilter(ctx, models.TelecallingRecordFilter{}, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestAuditLogRepository_ListByAppointmentID(t *testing.T) {
	db, err := testutil.NewSQLiteDB()
	require.NoError(t, err)
	repo := repository.NewAuditLogRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, &models.AuditLog{
		Action:        models.AuditActionRecordCreated,
		AppointmentID: utils.ToPtr("25-10000001"),
		Success:       utils.ToPtr(true),
	}))
	require.NoError(t, repo.Save(ctx, &models.AuditLog{
		Action:        models.AuditActionAllocationFailed,
		Success:       utils.ToPtr(false),
		ErrorMessage:  utils.ToPtr("store unavailable"),
		AppointmentID: utils.ToPtr("25-10000002"),
	}))

	logs, err := repo.ListByAppointmentID(ctx, "25-10000001", 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionRecordCreated, logs[0].Action)

	failed, err := repo.ListFailedActions(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, failed, 1)
	assert.True(t, failed[0].IsFailed())
}
