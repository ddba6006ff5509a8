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
	playbackdomain "github.com/ondasul/airtrack/internal/playback/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testEnv struct {
	svc  playbackdomain.Service
	file *catalogdomain.AudioFile
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&clientdomain.Client{},
		&catalogdomain.AudioFile{},
		&playbackdomain.PlaybackEvent{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	log := zap.NewNop()

	clientSvc := clientservice.NewService(clientservice.ServiceParam{DB: db, Log: log, GenID: node})
	catalogSvc := catalogservice.NewService(catalogservice.ServiceParam{DB: db, Log: log, GenID: node, ClientSvc: clientSvc})

	ctx := context.Background()
	client, err := clientSvc.Create(ctx, clientdomain.CreateClientRequest{Name: "Cliente"})
	require.NoError(t, err)
	file, err := catalogSvc.Register(ctx, catalogdomain.RegisterFileRequest{
		ClientID: client.ID,
		FileName: "spot.mp3",
	})
	require.NoError(t, err)

	svc := NewService(ServiceParam{DB: db, Log: log, GenID: node, CatalogSvc: catalogSvc})
	return &testEnv{svc: svc, file: file}
}

func TestSubmitIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	airedAt := time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)

	first, err := env.svc.Submit(ctx, playbackdomain.SubmitRequest{
		RawFileName: "spot.mp3",
		AiredAt:     airedAt,
		ProgramType: "musical",
	})
	require.NoError(t, err)
	assert.False(t, first.AlreadyExisting)
	assert.Equal(t, playbackdomain.SourceWatcher, first.Event.Source)

	// Same log line again keeps the original row.
	second, err := env.svc.Submit(ctx, playbackdomain.SubmitRequest{
		RawFileName: "spot.mp3",
		AiredAt:     airedAt,
		ProgramType: "musical",
	})
	require.NoError(t, err)
	assert.True(t, second.AlreadyExisting)
	assert.Equal(t, first.Event.ID, second.Event.ID)

	// A different source is a distinct event.
	third, err := env.svc.Submit(ctx, playbackdomain.SubmitRequest{
		RawFileName: "spot.mp3",
		AiredAt:     airedAt,
		Source:      playbackdomain.SourceManual,
	})
	require.NoError(t, err)
	assert.False(t, third.AlreadyExisting)
}

func TestSubmitValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Submit(ctx, playbackdomain.SubmitRequest{AiredAt: time.Now()})
	assert.ErrorIs(t, err, playbackdomain.ErrInvalidFileName)

	_, err = env.svc.Submit(ctx, playbackdomain.SubmitRequest{RawFileName: "spot.mp3"})
	assert.ErrorIs(t, err, playbackdomain.ErrInvalidAiredAt)
}

func TestCreateBatch(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	result, err := env.svc.CreateBatch(ctx, playbackdomain.BatchRequest{
		AudioFileID: env.file.ID,
		Date:        time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		Times:       []string{"08:00", "12:30:45", "25:99", "nope", "08:00"},
		ProgramType: "musical",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.AlreadyExisting)
	assert.Equal(t, []string{"25:99", "nope"}, result.InvalidTimes)

	events, err := env.svc.List(ctx, playbackdomain.ListRequest{
		From: time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, playbackdomain.SourceManual, events[0].Source)
	assert.Equal(t, "spot.mp3", events[0].RawFileName)
	assert.Equal(t, 8, events[0].AiredAt.UTC().Hour())
	assert.Equal(t, 45, events[1].AiredAt.UTC().Second())
}

func TestCreateBatchUnknownFile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	_, err = env.svc.CreateBatch(ctx, playbackdomain.BatchRequest{
		AudioFileID: node.Generate(),
		Date:        time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		Times:       []string{"08:00"},
	})
	assert.ErrorIs(t, err, catalogdomain.ErrFileNotFound)
}

func boolPtr(v bool) *bool { return &v }

func TestListAppliesStateFiltersBeforePagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	day := time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)

	// Six airings; the three earliest settle first.
	for hour := 1; hour <= 6; hour++ {
		sub, err := env.svc.Submit(ctx, playbackdomain.SubmitRequest{
			RawFileName: "spot.mp3",
			AiredAt:     day.Add(time.Duration(hour) * time.Hour),
		})
		require.NoError(t, err)
		if hour <= 3 {
			require.NoError(t, env.svc.MarkProcessed(ctx, sub.Event.ID, playbackdomain.Outcome{}))
		}
	}

	// The page must fill from matching rows, not from whatever the sort
	// order put first.
	events, err := env.svc.List(ctx, playbackdomain.ListRequest{
		Processed: boolPtr(false),
		Limit:     3,
	})
	require.NoError(t, err)
	require.Len(t, events, 3)
	for _, e := range events {
		assert.False(t, e.Processed)
	}

	events, err = env.svc.List(ctx, playbackdomain.ListRequest{
		Processed: boolPtr(false),
		Limit:     2,
		Offset:    1,
	})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 5, events[0].AiredAt.UTC().Hour())
	assert.Equal(t, 6, events[1].AiredAt.UTC().Hour())

	settled, err := env.svc.List(ctx, playbackdomain.ListRequest{
		Processed: boolPtr(true),
		Counted:   boolPtr(false),
	})
	require.NoError(t, err)
	assert.Len(t, settled, 3)
}

func TestListPendingAndMarkProcessed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	airedAt := time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)

	sub, err := env.svc.Submit(ctx, playbackdomain.SubmitRequest{
		RawFileName: "spot.mp3",
		AiredAt:     airedAt,
	})
	require.NoError(t, err)

	pending, err := env.svc.ListPending(ctx, airedAt.Add(-time.Hour), airedAt.Add(time.Hour), false)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	reason := playbackdomain.ReasonNoActiveContract
	err = env.svc.MarkProcessed(ctx, sub.Event.ID, playbackdomain.Outcome{
		Counted:    false,
		ReasonCode: &reason,
	})
	require.NoError(t, err)

	pending, err = env.svc.ListPending(ctx, airedAt.Add(-time.Hour), airedAt.Add(time.Hour), false)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// Forced windows still see settled events.
	all, err := env.svc.ListPending(ctx, airedAt.Add(-time.Hour), airedAt.Add(time.Hour), true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Processed)
	require.NotNil(t, all[0].ReasonCode)
	assert.Equal(t, playbackdomain.ReasonNoActiveContract, *all[0].ReasonCode)

	err = env.svc.MarkProcessed(ctx, 999999, playbackdomain.Outcome{})
	assert.ErrorIs(t, err, playbackdomain.ErrEventNotFound)
}
