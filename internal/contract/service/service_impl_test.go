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
	contractdomain "github.com/ondasul/airtrack/internal/contract/domain"
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
	svc        contractdomain.Service
	clientSvc  clientdomain.Service
	catalogSvc catalogdomain.Service
	client     *clientdomain.Client
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
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	clientSvc := clientservice.NewService(clientservice.ServiceParam{
		DB:    db,
		Log:   log,
		GenID: node,
	})
	catalogSvc := catalogservice.NewService(catalogservice.ServiceParam{
		DB:        db,
		Log:       log,
		GenID:     node,
		ClientSvc: clientSvc,
	})
	client, err := clientSvc.Create(context.Background(), clientdomain.CreateClientRequest{Name: "Cliente Teste"})
	require.NoError(t, err)

	svc := NewService(ServiceParam{
		DB:         db,
		Log:        log,
		GenID:      node,
		ClientSvc:  clientSvc,
		CatalogSvc: catalogSvc,
	})
	return &testEnv{
		svc:        svc,
		clientSvc:  clientSvc,
		catalogSvc: catalogSvc,
		client:     client,
	}
}

func TestCreateContractNumbering(t *testing.T) {
	env := newTestEnv(t)
	svc, client := env.svc, env.client
	ctx := context.Background()

	first, err := svc.Create(ctx, contractdomain.CreateContractRequest{
		ClientID:  client.ID,
		StartDate: date(2024, time.January, 1),
		EndDate:   datePtr(date(2024, time.January, 31)),
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", ContractedQuantity: intPtr(10)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024/001", first.Number)

	second, err := svc.Create(ctx, contractdomain.CreateContractRequest{
		ClientID:  client.ID,
		StartDate: date(2024, time.June, 1),
		EndDate:   datePtr(date(2024, time.June, 30)),
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", ContractedQuantity: intPtr(5)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024/002", second.Number)

	other, err := svc.Create(ctx, contractdomain.CreateContractRequest{
		ClientID:  client.ID,
		StartDate: date(2025, time.January, 1),
		EndDate:   datePtr(date(2025, time.January, 31)),
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", ContractedQuantity: intPtr(5)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2025/001", other.Number)
}

func TestItemValidation(t *testing.T) {
	env := newTestEnv(t)
	svc, client := env.svc, env.client
	ctx := context.Background()

	// Neither quantity set.
	_, err := svc.Create(ctx, contractdomain.CreateContractRequest{
		ClientID:  client.ID,
		StartDate: date(2024, time.January, 1),
		EndDate:   datePtr(date(2024, time.January, 31)),
		Items:     []contractdomain.ItemInput{{ProgramType: "musical"}},
	})
	assert.ErrorIs(t, err, contractdomain.ErrInvalidQuotaLine)

	// Open-ended contract requires a daily goal.
	_, err = svc.Create(ctx, contractdomain.CreateContractRequest{
		ClientID:  client.ID,
		StartDate: date(2024, time.January, 1),
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", ContractedQuantity: intPtr(10)},
		},
	})
	assert.ErrorIs(t, err, contractdomain.ErrInvalidQuotaLine)

	// Closed contract requires a contracted quantity.
	_, err = svc.Create(ctx, contractdomain.CreateContractRequest{
		ClientID:  client.ID,
		StartDate: date(2024, time.January, 1),
		EndDate:   datePtr(date(2024, time.January, 31)),
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", DailyGoalQuantity: intPtr(2)},
		},
	})
	assert.ErrorIs(t, err, contractdomain.ErrInvalidQuotaLine)

	// Open-ended with daily goal is valid, and no rows are left behind by
	// the rejected attempts above.
	contract, err := svc.Create(ctx, contractdomain.CreateContractRequest{
		ClientID:  client.ID,
		StartDate: date(2024, time.January, 1),
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", DailyGoalQuantity: intPtr(2)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024/001", contract.Number)

	items, err := svc.ListItems(ctx, contract.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 2, *items[0].DailyGoalQuantity)
	assert.Nil(t, items[0].ContractedQuantity)
}

func TestResolveActive(t *testing.T) {
	env := newTestEnv(t)
	svc, client := env.svc, env.client
	ctx := context.Background()

	contract, err := svc.Create(ctx, contractdomain.CreateContractRequest{
		ClientID:  client.ID,
		StartDate: date(2024, time.January, 1),
		EndDate:   datePtr(date(2024, time.January, 31)),
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", ContractedQuantity: intPtr(10)},
		},
	})
	require.NoError(t, err)

	resolved, err := svc.ResolveActive(ctx, client.ID, date(2024, time.January, 15), "")
	require.NoError(t, err)
	assert.Equal(t, contract.ID, resolved.ID)

	// The end day itself is still covered.
	resolved, err = svc.ResolveActive(ctx, client.ID,
		time.Date(2024, time.January, 31, 23, 59, 0, 0, time.UTC), "")
	require.NoError(t, err)
	assert.Equal(t, contract.ID, resolved.ID)

	_, err = svc.ResolveActive(ctx, client.ID, date(2024, time.February, 1), "")
	assert.ErrorIs(t, err, contractdomain.ErrNoActiveContract)

	_, err = svc.ResolveActive(ctx, client.ID, date(2023, time.December, 31), "")
	assert.ErrorIs(t, err, contractdomain.ErrNoActiveContract)
}

func TestResolveActiveAmbiguous(t *testing.T) {
	env := newTestEnv(t)
	svc, client := env.svc, env.client
	ctx := context.Background()

	for range 2 {
		_, err := svc.Create(ctx, contractdomain.CreateContractRequest{
			ClientID:  client.ID,
			StartDate: date(2024, time.January, 1),
			EndDate:   datePtr(date(2024, time.March, 31)),
			Items: []contractdomain.ItemInput{
				{ProgramType: "musical", ContractedQuantity: intPtr(10)},
			},
		})
		require.NoError(t, err)
	}

	// Two overlapping contracts never resolve to the newest one.
	_, err := svc.ResolveActive(ctx, client.ID, date(2024, time.February, 10), "")
	assert.ErrorIs(t, err, contractdomain.ErrAmbiguousContract)
}

func TestResolveActiveFrequency(t *testing.T) {
	env := newTestEnv(t)
	svc, client := env.svc, env.client
	ctx := context.Background()

	c1027, err := svc.Create(ctx, contractdomain.CreateContractRequest{
		ClientID:  client.ID,
		StartDate: date(2024, time.January, 1),
		EndDate:   datePtr(date(2024, time.December, 31)),
		Frequency: contractdomain.Frequency1027,
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", ContractedQuantity: intPtr(10)},
		},
	})
	require.NoError(t, err)

	c1047, err := svc.Create(ctx, contractdomain.CreateContractRequest{
		ClientID:  client.ID,
		StartDate: date(2024, time.January, 1),
		EndDate:   datePtr(date(2024, time.December, 31)),
		Frequency: contractdomain.Frequency1047,
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", ContractedQuantity: intPtr(10)},
		},
	})
	require.NoError(t, err)

	resolved, err := svc.ResolveActive(ctx, client.ID, date(2024, time.June, 1), contractdomain.Frequency1027)
	require.NoError(t, err)
	assert.Equal(t, c1027.ID, resolved.ID)

	resolved, err = svc.ResolveActive(ctx, client.ID, date(2024, time.June, 1), contractdomain.Frequency1047)
	require.NoError(t, err)
	assert.Equal(t, c1047.ID, resolved.ID)

	// An untagged event matches both stations, which is ambiguous here.
	_, err = svc.ResolveActive(ctx, client.ID, date(2024, time.June, 1), "")
	assert.ErrorIs(t, err, contractdomain.ErrAmbiguousContract)
}

func TestResolveActiveIgnoresCanceled(t *testing.T) {
	env := newTestEnv(t)
	svc, client := env.svc, env.client
	ctx := context.Background()

	contract, err := svc.Create(ctx, contractdomain.CreateContractRequest{
		ClientID:  client.ID,
		StartDate: date(2024, time.January, 1),
		EndDate:   datePtr(date(2024, time.December, 31)),
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", ContractedQuantity: intPtr(10)},
		},
	})
	require.NoError(t, err)

	_, err = svc.UpdateStatus(ctx, contract.ID, contractdomain.ContractStatusCanceled)
	require.NoError(t, err)

	_, err = svc.ResolveActive(ctx, client.ID, date(2024, time.June, 1), "")
	assert.ErrorIs(t, err, contractdomain.ErrNoActiveContract)
}

func TestFileGoals(t *testing.T) {
	env := newTestEnv(t)
	svc, client := env.svc, env.client
	ctx := context.Background()

	contract, err := svc.Create(ctx, contractdomain.CreateContractRequest{
		ClientID:  client.ID,
		StartDate: date(2024, time.January, 1),
		EndDate:   datePtr(date(2024, time.December, 31)),
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", ContractedQuantity: intPtr(10)},
		},
	})
	require.NoError(t, err)

	file, err := env.catalogSvc.Register(ctx, catalogdomain.RegisterFileRequest{
		ClientID: client.ID,
		FileName: "cliente_teste_spot30.mp3",
	})
	require.NoError(t, err)

	goal, err := svc.AddFileGoal(ctx, contractdomain.AddFileGoalRequest{
		ContractID:   contract.ID,
		AudioFileID:  file.ID,
		GoalQuantity: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, contractdomain.GoalModeFixed, goal.Mode)
	assert.True(t, goal.Active)

	_, err = svc.AddFileGoal(ctx, contractdomain.AddFileGoalRequest{
		ContractID:   contract.ID,
		AudioFileID:  file.ID,
		GoalQuantity: 5,
	})
	assert.ErrorIs(t, err, contractdomain.ErrDuplicateGoal)

	_, err = svc.AddFileGoal(ctx, contractdomain.AddFileGoalRequest{
		ContractID:   contract.ID,
		AudioFileID:  file.ID,
		GoalQuantity: 0,
	})
	assert.ErrorIs(t, err, contractdomain.ErrInvalidGoal)

	goals, err := svc.ListFileGoals(ctx, contract.ID)
	require.NoError(t, err)
	assert.Len(t, goals, 1)
}

func TestAddFileGoalUnknownFile(t *testing.T) {
	env := newTestEnv(t)
	svc, client := env.svc, env.client
	ctx := context.Background()

	contract, err := svc.Create(ctx, contractdomain.CreateContractRequest{
		ClientID:  client.ID,
		StartDate: date(2024, time.January, 1),
		EndDate:   datePtr(date(2024, time.December, 31)),
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", ContractedQuantity: intPtr(10)},
		},
	})
	require.NoError(t, err)

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	_, err = svc.AddFileGoal(ctx, contractdomain.AddFileGoalRequest{
		ContractID:   contract.ID,
		AudioFileID:  node.Generate(),
		GoalQuantity: 20,
	})
	assert.ErrorIs(t, err, catalogdomain.ErrFileNotFound)
}

func TestAddFileGoalForeignFile(t *testing.T) {
	env := newTestEnv(t)
	svc, client := env.svc, env.client
	ctx := context.Background()

	contract, err := svc.Create(ctx, contractdomain.CreateContractRequest{
		ClientID:  client.ID,
		StartDate: date(2024, time.January, 1),
		EndDate:   datePtr(date(2024, time.December, 31)),
		Items: []contractdomain.ItemInput{
			{ProgramType: "musical", ContractedQuantity: intPtr(10)},
		},
	})
	require.NoError(t, err)

	other, err := env.clientSvc.Create(ctx, clientdomain.CreateClientRequest{Name: "Outro Cliente"})
	require.NoError(t, err)
	foreign, err := env.catalogSvc.Register(ctx, catalogdomain.RegisterFileRequest{
		ClientID: other.ID,
		FileName: "outro_spot30.mp3",
	})
	require.NoError(t, err)

	// A goal must reference a file owned by the contract's client.
	_, err = svc.AddFileGoal(ctx, contractdomain.AddFileGoalRequest{
		ContractID:   contract.ID,
		AudioFileID:  foreign.ID,
		GoalQuantity: 20,
	})
	assert.ErrorIs(t, err, contractdomain.ErrFileNotOwned)
}
