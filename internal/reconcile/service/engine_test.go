package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/ondasul/airtrack/internal/catalog/domain"
	catalogservice "github.com/ondasul/airtrack/internal/catalog/service"
	clientdomain "github.com/ondasul/airtrack/internal/client/domain"
	clientservice "github.com/ondasul/airtrack/internal/client/service"
	"github.com/ondasul/airtrack/internal/clock"
	contractdomain "github.com/ondasul/airtrack/internal/contract/domain"
	contractservice "github.com/ondasul/airtrack/internal/contract/service"
	"github.com/ondasul/airtrack/internal/locker"
	"github.com/ondasul/airtrack/internal/observability/metrics"
	playbackdomain "github.com/ondasul/airtrack/internal/playback/domain"
	playbackservice "github.com/ondasul/airtrack/internal/playback/service"
	quotaservice "github.com/ondasul/airtrack/internal/quota/service"
	reconciledomain "github.com/ondasul/airtrack/internal/reconcile/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func intPtr(v int) *int { return &v }

func datePtr(t time.Time) *time.Time { return &t }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type testEnv struct {
	db     *gorm.DB
	engine reconciledomain.Service
	locker locker.Locker

	clientSvc   clientdomain.Service
	catalogSvc  catalogdomain.Service
	contractSvc contractdomain.Service
	playbackSvc playbackdomain.Service

	client *clientdomain.Client
	file   *catalogdomain.AudioFile
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&catalogdomain.AudioFile{},
		&contractdomain.Contract{},
		&contractdomain.ContractItem{},
		&contractdomain.FileGoal{},
		&playbackdomain.PlaybackEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	clientSvc := clientservice.NewService(clientservice.ServiceParam{DB: db, Log: log, GenID: node})
	catalogSvc := catalogservice.NewService(catalogservice.ServiceParam{DB: db, Log: log, GenID: node, ClientSvc: clientSvc})
	contractSvc := contractservice.NewService(contractservice.ServiceParam{DB: db, Log: log, GenID: node, ClientSvc: clientSvc, CatalogSvc: catalogSvc})
	playbackSvc := playbackservice.NewService(playbackservice.ServiceParam{DB: db, Log: log, GenID: node, CatalogSvc: catalogSvc})
	quotaSvc := quotaservice.NewService(quotaservice.ServiceParam{DB: db, Log: log})

	memLocker := locker.NewMemoryLocker()
	engine := NewService(ServiceParam{
		Log:         log,
		Clock:       clock.NewFakeClock(date(2024, time.January, 20)),
		Locker:      memLocker,
		PlaybackSvc: playbackSvc,
		CatalogSvc:  catalogSvc,
		ContractSvc: contractSvc,
		QuotaSvc:    quotaSvc,
		Metrics:     metrics.NewReconcileMetrics(metrics.Config{ServiceName: "airtrack-test"}),
	})

	ctx := context.Background()
	client, err := clientSvc.Create(ctx, clientdomain.CreateClientRequest{Name: "Cliente 7"})
	require.NoError(t, err)
	file, err := catalogSvc.Register(ctx, catalogdomain.RegisterFileRequest{
		ClientID: client.ID,
		FileName: "cliente1_spot30.mp3",
	})
	require.NoError(t, err)

	return &testEnv{
		db:          db,
		engine:      engine,
		locker:      memLocker,
		clientSvc:   clientSvc,
		catalogSvc:  catalogSvc,
		contractSvc: contractSvc,
		playbackSvc: playbackSvc,
		client:      client,
		file:        file,
	}
}

func (e *testEnv) seedContract(t *testing.T, executed int) *contractdomain.Contract {
	t.Helper()
	contract, err := e.contractSvc.Create(context.Background(), contractdomain.CreateContractRequest{
		ClientID:  e.client.ID,
		StartDate: date(2024, time.January, 1),
		EndDate:   datePtr(date(2024, time.January, 31)),
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", ContractedQuantity: intPtr(10)},
		},
	})
	require.NoError(t, err)
	if executed > 0 {
		items, err := e.contractSvc.ListItems(context.Background(), contract.ID)
		require.NoError(t, err)
		require.NoError(t, e.db.Model(&contractdomain.ContractItem{}).
			Where("id = ?", items[0].ID).
			Update("executed_quantity", executed).Error)
	}
	return contract
}

func (e *testEnv) submit(t *testing.T, airedAt time.Time) *playbackdomain.PlaybackEvent {
	t.Helper()
	sub, err := e.playbackSvc.Submit(context.Background(), playbackdomain.SubmitRequest{
		RawFileName: "cliente1_spot30.mp3",
		AiredAt:     airedAt,
		ProgramType: "musical",
	})
	require.NoError(t, err)
	return sub.Event
}

func (e *testEnv) itemExecuted(t *testing.T, contractID snowflake.ID) int {
	t.Helper()
	items, err := e.contractSvc.ListItems(context.Background(), contractID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	return items[0].ExecutedQuantity
}

func (e *testEnv) reconcileJanuary(t *testing.T, force bool) *reconciledomain.Result {
	t.Helper()
	result, err := e.engine.Reconcile(context.Background(), reconciledomain.ReconcileRequest{
		From:  date(2024, time.January, 1),
		To:    date(2024, time.February, 28),
		Force: force,
	})
	require.NoError(t, err)
	return result
}

func TestReconcileCountsAgainstContractItem(t *testing.T) {
	env := newTestEnv(t)
	contract := env.seedContract(t, 3)
	event := env.submit(t, time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC))

	result := env.reconcileJanuary(t, false)
	assert.Equal(t, 1, result.Scanned)
	assert.Equal(t, 1, result.Counted)
	assert.Equal(t, 4, env.itemExecuted(t, contract.ID))

	settled, err := env.playbackSvc.GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.True(t, settled.Processed)
	assert.True(t, settled.Counted)
	require.NotNil(t, settled.AttributedContractID)
	assert.Equal(t, contract.ID, *settled.AttributedContractID)
	assert.Nil(t, settled.ReasonCode)
}

func TestReconcileIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	contract := env.seedContract(t, 0)
	env.submit(t, time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC))

	first := env.reconcileJanuary(t, false)
	assert.Equal(t, 1, first.Counted)

	// The second pass over the same window finds nothing to do.
	second := env.reconcileJanuary(t, false)
	assert.Equal(t, 0, second.Scanned)
	assert.Equal(t, 1, env.itemExecuted(t, contract.ID))
}

func TestReconcileOutsideContractPeriod(t *testing.T) {
	env := newTestEnv(t)
	env.seedContract(t, 0)
	event := env.submit(t, time.Date(2024, time.February, 1, 8, 0, 0, 0, time.UTC))

	result := env.reconcileJanuary(t, false)
	assert.Equal(t, 0, result.Counted)
	assert.Equal(t, 1, result.Unaccounted[playbackdomain.ReasonNoActiveContract])

	settled, err := env.playbackSvc.GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.True(t, settled.Processed)
	assert.False(t, settled.Counted)
	require.NotNil(t, settled.ReasonCode)
	assert.Equal(t, playbackdomain.ReasonNoActiveContract, *settled.ReasonCode)
}

func TestReconcileUnregisteredFile(t *testing.T) {
	env := newTestEnv(t)
	env.seedContract(t, 0)

	sub, err := env.playbackSvc.Submit(context.Background(), playbackdomain.SubmitRequest{
		RawFileName: "unknown_spot.mp3",
		AiredAt:     time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	result := env.reconcileJanuary(t, false)
	assert.Equal(t, 1, result.Unaccounted[playbackdomain.ReasonUnregisteredFile])

	settled, err := env.playbackSvc.GetByID(context.Background(), sub.Event.ID)
	require.NoError(t, err)
	assert.Equal(t, "unknown_spot.mp3", settled.RawFileName)
	require.NotNil(t, settled.ReasonCode)
	assert.Equal(t, playbackdomain.ReasonUnregisteredFile, *settled.ReasonCode)
}

func TestReconcileNoQuotaLine(t *testing.T) {
	env := newTestEnv(t)
	contract, err := env.contractSvc.Create(context.Background(), contractdomain.CreateContractRequest{
		ClientID:  env.client.ID,
		StartDate: date(2024, time.January, 1),
		EndDate:   datePtr(date(2024, time.January, 31)),
		Items: []contractdomain.ItemInput{
			{ProgramType: "jornalismo", ContractedQuantity: intPtr(10)},
		},
	})
	require.NoError(t, err)

	// The event's program type matches no item and the file has no goal.
	event := env.submit(t, time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC))

	result := env.reconcileJanuary(t, false)
	assert.Equal(t, 1, result.Unaccounted[playbackdomain.ReasonNoQuotaLine])

	settled, err := env.playbackSvc.GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.False(t, settled.Counted)
	assert.Equal(t, 0, env.itemExecuted(t, contract.ID))
}

func TestReconcileAmbiguousContract(t *testing.T) {
	env := newTestEnv(t)
	env.seedContract(t, 0)
	env.seedContract(t, 0)
	event := env.submit(t, time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC))

	result := env.reconcileJanuary(t, false)
	assert.Equal(t, 1, result.Unaccounted[playbackdomain.ReasonAmbiguousContract])

	settled, err := env.playbackSvc.GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Nil(t, settled.AttributedContractID)
}

func TestReconcileSharedFileNameSettlesAmbiguous(t *testing.T) {
	env := newTestEnv(t)
	contract := env.seedContract(t, 0)

	// A second client registers the same spot name; the airing names no
	// client, so attribution cannot pick an owner.
	other, err := env.clientSvc.Create(context.Background(), clientdomain.CreateClientRequest{Name: "Cliente 8"})
	require.NoError(t, err)
	_, err = env.catalogSvc.Register(context.Background(), catalogdomain.RegisterFileRequest{
		ClientID: other.ID,
		FileName: "cliente1_spot30.mp3",
	})
	require.NoError(t, err)

	event := env.submit(t, time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC))

	result := env.reconcileJanuary(t, false)
	assert.Equal(t, 0, result.Counted)
	assert.Equal(t, 1, result.Unaccounted[playbackdomain.ReasonAmbiguousContract])
	assert.Equal(t, 0, env.itemExecuted(t, contract.ID))

	settled, err := env.playbackSvc.GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.True(t, settled.Processed)
	assert.False(t, settled.Counted)
	require.NotNil(t, settled.ReasonCode)
	assert.Equal(t, playbackdomain.ReasonAmbiguousContract, *settled.ReasonCode)
}

func TestReconcileDualLedger(t *testing.T) {
	env := newTestEnv(t)
	contract := env.seedContract(t, 0)
	goal, err := env.contractSvc.AddFileGoal(context.Background(), contractdomain.AddFileGoalRequest{
		ContractID:   contract.ID,
		AudioFileID:  env.file.ID,
		GoalQuantity: 20,
	})
	require.NoError(t, err)

	env.submit(t, time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC))
	result := env.reconcileJanuary(t, false)
	assert.Equal(t, 1, result.Counted)

	// One event, both ledgers.
	assert.Equal(t, 1, env.itemExecuted(t, contract.ID))
	goals, err := env.contractSvc.ListFileGoals(context.Background(), contract.ID)
	require.NoError(t, err)
	require.Len(t, goals, 1)
	assert.Equal(t, goal.ID, goals[0].ID)
	assert.Equal(t, 1, goals[0].ExecutedQuantity)
}

func TestReconcileForceRollsBackPriorCount(t *testing.T) {
	env := newTestEnv(t)
	contract := env.seedContract(t, 0)
	env.submit(t, time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC))

	first := env.reconcileJanuary(t, false)
	assert.Equal(t, 1, first.Counted)
	assert.Equal(t, 1, env.itemExecuted(t, contract.ID))

	// Forced reprocessing reverses before re-attributing, so the total does
	// not grow.
	second := env.reconcileJanuary(t, true)
	assert.Equal(t, 1, second.Counted)
	assert.Equal(t, 1, env.itemExecuted(t, contract.ID))
}

func TestReconcileForceRollbackSurvivesRetry(t *testing.T) {
	env := newTestEnv(t)
	prior := env.seedContract(t, 1)
	env.submit(t, time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC))

	first := env.reconcileJanuary(t, false)
	assert.Equal(t, 1, first.Counted)
	assert.Equal(t, 2, env.itemExecuted(t, prior.ID))

	// The contract is replaced mid-month and the operator re-runs with force
	// to move the count over.
	_, err := env.contractSvc.UpdateStatus(context.Background(), prior.ID, contractdomain.ContractStatusCanceled)
	require.NoError(t, err)
	replacement := env.seedContract(t, 0)

	// Another worker holds the replacement, so the forced pass reverses the
	// prior allocation but cannot re-attribute yet.
	key := contractLockKey(replacement.ID)
	token, ok, err := env.locker.TryLock(context.Background(), key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	second := env.reconcileJanuary(t, true)
	assert.Equal(t, 1, second.LockConflicts)
	assert.Equal(t, 1, env.itemExecuted(t, prior.ID))

	// Retrying under the same contention reverses nothing: the event already
	// settled un-counted when the first reversal landed.
	third := env.reconcileJanuary(t, true)
	assert.Equal(t, 1, third.LockConflicts)
	assert.Equal(t, 1, env.itemExecuted(t, prior.ID))

	require.NoError(t, env.locker.Release(context.Background(), key, token))
	fourth := env.reconcileJanuary(t, true)
	assert.Equal(t, 1, fourth.Counted)
	assert.Equal(t, 1, env.itemExecuted(t, replacement.ID))
	assert.Equal(t, 1, env.itemExecuted(t, prior.ID))
}

func TestReconcileForceAfterDataCorrection(t *testing.T) {
	env := newTestEnv(t)
	env.seedContract(t, 0)

	// Aired under a name nobody registered yet.
	sub, err := env.playbackSvc.Submit(context.Background(), playbackdomain.SubmitRequest{
		RawFileName: "late_registration.mp3",
		AiredAt:     time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC),
		ProgramType: "musical",
	})
	require.NoError(t, err)

	first := env.reconcileJanuary(t, false)
	assert.Equal(t, 1, first.Unaccounted[playbackdomain.ReasonUnregisteredFile])

	// Operator registers the file, then re-runs with force.
	_, err = env.catalogSvc.Register(context.Background(), catalogdomain.RegisterFileRequest{
		ClientID: env.client.ID,
		FileName: "late_registration.mp3",
	})
	require.NoError(t, err)

	second := env.reconcileJanuary(t, true)
	assert.Equal(t, 1, second.Counted)

	settled, err := env.playbackSvc.GetByID(context.Background(), sub.Event.ID)
	require.NoError(t, err)
	assert.True(t, settled.Counted)
	assert.Nil(t, settled.ReasonCode)
}

func TestReconcileLockContentionLeavesEventPending(t *testing.T) {
	env := newTestEnv(t)
	contract := env.seedContract(t, 0)
	event := env.submit(t, time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC))

	// Another worker holds the contract.
	key := contractLockKey(contract.ID)
	_, ok, err := env.locker.TryLock(context.Background(), key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	result := env.reconcileJanuary(t, false)
	assert.Equal(t, 0, result.Counted)
	assert.Equal(t, 1, result.LockConflicts)

	// The event is untouched and counts on the next pass.
	pending, err := env.playbackSvc.GetByID(context.Background(), event.ID)
	require.NoError(t, err)
	assert.False(t, pending.Processed)
	assert.Equal(t, 0, env.itemExecuted(t, contract.ID))
}

func TestReconcileCancellationBetweenEvents(t *testing.T) {
	env := newTestEnv(t)
	env.seedContract(t, 0)
	env.submit(t, time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := env.engine.Reconcile(ctx, reconciledomain.ReconcileRequest{
		From: date(2024, time.January, 1),
		To:   date(2024, time.January, 31),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.Counted)
}

func TestReconcileInvalidWindow(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.engine.Reconcile(context.Background(), reconciledomain.ReconcileRequest{
		From: date(2024, time.February, 1),
		To:   date(2024, time.January, 1),
	})
	assert.ErrorIs(t, err, reconciledomain.ErrInvalidWindow)
}

func TestReconcileFrequencyRouting(t *testing.T) {
	env := newTestEnv(t)

	c1027, err := env.contractSvc.Create(context.Background(), contractdomain.CreateContractRequest{
		ClientID:  env.client.ID,
		StartDate: date(2024, time.January, 1),
		EndDate:   datePtr(date(2024, time.January, 31)),
		Frequency: contractdomain.Frequency1027,
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", ContractedQuantity: intPtr(10)},
		},
	})
	require.NoError(t, err)
	_, err = env.contractSvc.Create(context.Background(), contractdomain.CreateContractRequest{
		ClientID:  env.client.ID,
		StartDate: date(2024, time.January, 1),
		EndDate:   datePtr(date(2024, time.January, 31)),
		Frequency: contractdomain.Frequency1047,
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", ContractedQuantity: intPtr(10)},
		},
	})
	require.NoError(t, err)

	_, err = env.playbackSvc.Submit(context.Background(), playbackdomain.SubmitRequest{
		RawFileName: "cliente1_spot30.mp3",
		AiredAt:     time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC),
		ProgramType: "musical",
		Frequency:   contractdomain.Frequency1027,
	})
	require.NoError(t, err)

	result := env.reconcileJanuary(t, false)
	assert.Equal(t, 1, result.Counted)
	assert.Equal(t, 1, env.itemExecuted(t, c1027.ID))
}
