package businessflow_test

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/amirphl/telecall/app/dto"
	businessflow "github.com/amirphl/telecall/business_flow"
	"github.com/amirphl/telecall/models"
	"github.com/amirphl/telecall/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

func finalRequest(name string) *dto.CreateTelecallingRecordRequest {
	return &dto.CreateTelecallingRecordRequest{
		Year:         intPtr(2025),
		CustomerName: name,
		PhoneNumber:  "+989121234567",
		AgentName:    utils.ToPtr("Sara"),
	}
}

func TestTelecallingFlow_CreateDraftReservesID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft, err := env.flow.CreateDraft(ctx, &dto.CreateDraftRequest{Year: intPtr(2025)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "25-10000001", draft.AppointmentID)
	assert.Equal(t, models.TelecallingStatusDraft, draft.Status)
	assert.Equal(t, models.DraftPlaceholderCustomerName, draft.CustomerName)

	stored, err := env.records.ByAppointmentID(ctx, "25-10000001")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.IsDraft())

	logs, err := env.audits.ListByAction(ctx, models.AuditActionDraftCreated, 10, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
}

func TestTelecallingFlow_CreateDraftDefaultsToCurrentYear(t *testing.T) {
	env := newTestEnv(t)

	draft, err := env.flow.CreateDraft(context.Background(), nil, nil)
	require.NoError(t, err)

	year, err := utils.AppointmentYear(draft.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, utils.UTCNow().Year(), year)
}

func TestTelecallingFlow_CompleteDraftKeepsID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft, err := env.flow.CreateDraft(ctx, &dto.CreateDraftRequest{Year: intPtr(2025)}, nil)
	require.NoError(t, err)

	completed, err := env.flow.CompleteDraft(ctx, draft.UUID, &dto.UpdateTelecallingRecordRequest{
		CustomerName: "  Reza Ahmadi ",
		PhoneNumber:  "+989121234567",
		Notes:        utils.ToPtr("   "),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, draft.AppointmentID, completed.AppointmentID)
	assert.Equal(t, models.TelecallingStatusActive, completed.Status)
	assert.Equal(t, "Reza Ahmadi", completed.CustomerName)
	assert.Nil(t, completed.Notes)

	_, err = env.flow.CompleteDraft(ctx, "00000000-0000-0000-0000-000000000000", &dto.UpdateTelecallingRecordRequest{
		CustomerName: "x y",
		PhoneNumber:  "+989121234567",
	}, nil)
	assert.True(t, businessflow.IsTelecallingRecordNotFound(err))
}

func TestTelecallingFlow_UpdateActiveRecordKeepsID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft, err := env.flow.CreateDraft(ctx, &dto.CreateDraftRequest{Year: intPtr(2025)}, nil)
	require.NoError(t, err)

	_, err = env.flow.CompleteDraft(ctx, draft.UUID, &dto.UpdateTelecallingRecordRequest{
		CustomerName: "Reza Ahmadi",
		PhoneNumber:  "+989121234567",
	}, nil)
	require.NoError(t, err)

	updated, err := env.flow.CompleteDraft(ctx, draft.UUID, &dto.UpdateTelecallingRecordRequest{
		CustomerName: "Reza Karimi",
		PhoneNumber:  "+989127654321",
		Notes:        utils.ToPtr("call back after 5pm"),
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, draft.AppointmentID, updated.AppointmentID)
	assert.Equal(t, models.TelecallingStatusActive, updated.Status)
	assert.Equal(t, "Reza Karimi", updated.CustomerName)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "call back after 5pm", *updated.Notes)

	completed, err := env.audits.ListByAction(ctx, models.AuditActionDraftCompleted, 10, 0)
	require.NoError(t, err)
	assert.Len(t, completed, 1)

	updates, err := env.audits.ListByAction(ctx, models.AuditActionRecordUpdated, 10, 0)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	require.NotNil(t, updates[0].AppointmentID)
	assert.Equal(t, draft.AppointmentID, *updates[0].AppointmentID)

	current, _, err := env.counters.Current(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, utils.AppointmentSeqBaseline+1, current, "updates never allocate")
}

func TestTelecallingFlow_CreateFinalValidationDoesNotAllocate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.flow.CreateFinal(ctx, finalRequest("   "), nil)
	assert.True(t, businessflow.IsCustomerNameRequired(err))

	_, found, err := env.counters.Current(ctx, 2025)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestTelecallingFlow_AllocationFailureWritesNoRecord(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	allocator := &stubAllocator{err: fmt.Errorf("%w: %w", businessflow.ErrAllocationFailed, errStoreDown)}
	flow := businessflow.NewTelecallingFlow(env.db, env.records, env.audits, allocator, env.reclaimer, "UTC", discardLogger())

	_, err := flow.CreateFinal(ctx, finalRequest("Reza"), nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsAllocationFailed(err))
	assert.Equal(t, 1, allocator.calls, "allocation is never retried")

	_, err = flow.CreateDraft(ctx, &dto.CreateDraftRequest{Year: intPtr(2025)}, nil)
	assert.True(t, businessflow.IsAllocationFailed(err))

	count, err := env.records.Count(ctx, models.TelecallingRecordFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)

	failed, err := env.audits.ListFailedActions(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, failed, 2)
}

func TestTelecallingFlow_DuplicateAppointmentIDIsNotRetried(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// a record already holds the id the counter is about to issue
	_, err := env.fixtures.CreateTelecallingRecord(ctx, "25-10000001")
	require.NoError(t, err)

	_, err = env.flow.CreateFinal(ctx, finalRequest("Reza"), nil)
	require.Error(t, err)
	assert.True(t, businessflow.IsDuplicateAppointmentID(err))
	var be *businessflow.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "Appointment id 25-10000001 is already in use", be.Message)

	count, err := env.records.Count(ctx, models.TelecallingRecordFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	current, _, err := env.counters.Current(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, utils.AppointmentSeqBaseline+1, current, "exactly one allocation was consumed")
}

func TestTelecallingFlow_DeleteReclaimsAndNextCreateReuses(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.flow.CreateFinal(ctx, finalRequest("First"), nil)
	require.NoError(t, err)
	_, err = env.flow.CreateFinal(ctx, finalRequest("Second"), nil)
	require.NoError(t, err)

	deleted, err := env.flow.Delete(ctx, first.UUID, nil)
	require.NoError(t, err)
	assert.True(t, deleted.Reclaimed)
	assert.Equal(t, "25-10000001", deleted.AppointmentID)

	reused, err := env.flow.CreateFinal(ctx, finalRequest("Third"), nil)
	require.NoError(t, err)
	assert.Equal(t, "25-10000001", reused.AppointmentID)

	fresh, err := env.flow.CreateFinal(ctx, finalRequest("Fourth"), nil)
	require.NoError(t, err)
	assert.Equal(t, "25-10000003", fresh.AppointmentID)
}

func TestTelecallingFlow_DeleteAuditsReclaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.WithValue(context.Background(), utils.EndpointKey, "/api/v1/telecalling/records/:uuid")

	record, err := env.flow.CreateFinal(ctx, finalRequest("Reza"), nil)
	require.NoError(t, err)

	metadata := businessflow.NewClientMetadata("10.0.0.7", "test-agent")
	metadata.SetAdminID(3)
	_, err = env.flow.Delete(ctx, record.UUID, metadata)
	require.NoError(t, err)

	reclaims, err := env.audits.ListByAction(ctx, models.AuditActionAppointmentIDReclaim, 10, 0)
	require.NoError(t, err)
	require.Len(t, reclaims, 1)
	require.NotNil(t, reclaims[0].Success)
	assert.True(t, *reclaims[0].Success)
	require.NotNil(t, reclaims[0].Description)
	assert.Equal(t, "Appointment id 25-10000001 reclaim reclaimed", *reclaims[0].Description)

	deletes, err := env.audits.ListByAction(ctx, models.AuditActionRecordDeleted, 10, 0)
	require.NoError(t, err)
	require.Len(t, deletes, 1)
	assert.Contains(t, string(deletes[0].Metadata), `"endpoint":"/api/v1/telecalling/records/:uuid"`)
	assert.Contains(t, string(deletes[0].Metadata), `"admin_id":3`)
}

func TestTelecallingFlow_DeleteAuditsFailedReclaim(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.flow.CreateFinal(ctx, finalRequest("Reza"), nil)
	require.NoError(t, err)

	reclaimer := businessflow.NewAppointmentReclaimer(failingPool{}, discardLogger())
	flow := businessflow.NewTelecallingFlow(env.db, env.records, env.audits, env.allocator, reclaimer, "UTC", discardLogger())

	_, err = flow.Delete(ctx, record.UUID, nil)
	require.NoError(t, err)

	reclaims, err := env.audits.ListByAction(ctx, models.AuditActionAppointmentIDReclaim, 10, 0)
	require.NoError(t, err)
	require.Len(t, reclaims, 1)
	require.NotNil(t, reclaims[0].Success)
	assert.False(t, *reclaims[0].Success)
}

func TestTelecallingFlow_DeleteTwiceReclaimsOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.flow.CreateFinal(ctx, finalRequest("Reza"), nil)
	require.NoError(t, err)

	_, err = env.flow.Delete(ctx, record.UUID, nil)
	require.NoError(t, err)

	_, err = env.flow.Delete(ctx, record.UUID, nil)
	assert.True(t, businessflow.IsTelecallingRecordNotFound(err))

	count, err := env.pool.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTelecallingFlow_ConcurrentDeletesReclaimOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	record, err := env.flow.CreateFinal(ctx, finalRequest("Reza"), nil)
	require.NoError(t, err)

	var mu sync.Mutex
	succeeded := 0
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := env.flow.Delete(gctx, record.UUID, nil)
			if err != nil {
				if businessflow.IsTelecallingRecordNotFound(err) {
					return nil
				}
				return err
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, succeeded)
	ids, err := env.pool.List(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{record.AppointmentID}, ids)
}

func TestTelecallingFlow_DeleteSucceedsWhenReclaimCannot(t *testing.T) {
	tests := []struct {
		name          string
		appointmentID string
		prepare       func(t *testing.T, env *testEnv)
	}{
		{name: "malformed id", appointmentID: "legacy-7"},
		{name: "missing year prefix", appointmentID: "10000001"},
		{
			name:          "already in pool",
			appointmentID: "25-10000004",
			prepare: func(t *testing.T, env *testEnv) {
				require.NoError(t, env.fixtures.SeedRecycled(context.Background(), "25-10000004"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()
			if tt.prepare != nil {
				tt.prepare(t, env)
			}

			record, err := env.fixtures.CreateTelecallingRecord(ctx, tt.appointmentID)
			require.NoError(t, err)

			resp, err := env.flow.Delete(ctx, record.UUID.String(), nil)
			require.NoError(t, err)
			assert.False(t, resp.Reclaimed)

			gone, err := env.records.ByUUID(ctx, record.UUID.String())
			require.NoError(t, err)
			assert.Nil(t, gone)
		})
	}
}

func TestTelecallingFlow_DeleteSucceedsWhenPoolIsDown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	reclaimer := businessflow.NewAppointmentReclaimer(failingPool{}, discardLogger())
	flow := businessflow.NewTelecallingFlow(env.db, env.records, env.audits, env.allocator, reclaimer, "UTC", discardLogger())

	record, err := env.fixtures.CreateTelecallingRecord(ctx, "25-10000001")
	require.NoError(t, err)

	resp, err := flow.Delete(ctx, record.UUID.String(), nil)
	require.NoError(t, err)
	assert.False(t, resp.Reclaimed)
}

func TestTelecallingFlow_PreviewConsumesAllocation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	preview, err := env.flow.PreviewNextAppointmentID(ctx, intPtr(2025), nil)
	require.NoError(t, err)
	assert.Equal(t, "25-10000001", preview.AppointmentID)

	created, err := env.flow.CreateFinal(ctx, finalRequest("Reza"), nil)
	require.NoError(t, err)
	assert.Equal(t, "25-10000002", created.AppointmentID)

	_, err = env.flow.PreviewNextAppointmentID(ctx, intPtr(2100), nil)
	assert.True(t, businessflow.IsInvalidAppointmentYear(err))
	var be *businessflow.BusinessError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "Appointment year 2100 must be between 2000 and 2099", be.Message)
}

func TestTelecallingFlow_ConcurrentCreatesAreUnique(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	const creators = 40
	var mu sync.Mutex
	ids := make(map[string]struct{}, creators)

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < creators; i++ {
		g.Go(func() error {
			var (
				appointmentID string
				err           error
			)
			if i%2 == 0 {
				var r *dto.TelecallingRecordResponse
				r, err = env.flow.CreateDraft(gctx, &dto.CreateDraftRequest{Year: intPtr(2025)}, nil)
				if r != nil {
					appointmentID = r.AppointmentID
				}
			} else {
				var r *dto.TelecallingRecordResponse
				r, err = env.flow.CreateFinal(gctx, finalRequest(fmt.Sprintf("Customer %d", i)), nil)
				if r != nil {
					appointmentID = r.AppointmentID
				}
			}
			if err != nil {
				return err
			}
			mu.Lock()
			ids[appointmentID] = struct{}{}
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Len(t, ids, creators)
}

func TestTelecallingFlow_ListAndExport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.flow.CreateDraft(ctx, &dto.CreateDraftRequest{Year: intPtr(2025)}, nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := env.flow.CreateFinal(ctx, finalRequest(fmt.Sprintf("Customer %d", i)), nil)
		require.NoError(t, err)
	}

	active := models.TelecallingStatusActive
	page, err := env.flow.List(ctx, &dto.ListTelecallingRecordsRequest{Status: &active, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.Equal(t, "25-10000004", page.Items[0].AppointmentID)

	bogus := "archived"
	_, err = env.flow.List(ctx, &dto.ListTelecallingRecordsRequest{Status: &bogus})
	assert.True(t, businessflow.IsInvalidRecordStatus(err))

	filename, data, err := env.flow.ExportRecords(ctx, nil)
	require.NoError(t, err)
	assert.Contains(t, filename, ".xlsx")

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows("records")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "appointment_id", rows[0][1])
	assert.Equal(t, "25-10000001", rows[1][1])
	assert.Equal(t, models.TelecallingStatusDraft, rows[1][2])
}
