package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	catalogdomain "github.com/ondasul/airtrack/internal/catalog/domain"
	clientdomain "github.com/ondasul/airtrack/internal/client/domain"
	clientservice "github.com/ondasul/airtrack/internal/client/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestEnv(t *testing.T) (catalogdomain.Service, clientdomain.Service) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&clientdomain.Client{}, &catalogdomain.AudioFile{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clientSvc := clientservice.NewService(clientservice.ServiceParam{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
	})
	catalogSvc := NewService(ServiceParam{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		ClientSvc: clientSvc,
	})
	return catalogSvc, clientSvc
}

func TestResolveFileExactMatch(t *testing.T) {
	catalogSvc, clientSvc := newTestEnv(t)
	ctx := context.Background()

	client, err := clientSvc.Create(ctx, clientdomain.CreateClientRequest{Name: "Padaria Central"})
	require.NoError(t, err)

	registered, err := catalogSvc.Register(ctx, catalogdomain.RegisterFileRequest{
		ClientID: client.ID,
		FileName: "cliente1_spot30.mp3",
	})
	require.NoError(t, err)

	resolved, err := catalogSvc.ResolveFile(ctx, 0, "cliente1_spot30.mp3")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, resolved.ID)
	assert.Equal(t, client.ID, resolved.ClientID)

	// Matching is case-sensitive.
	_, err = catalogSvc.ResolveFile(ctx, 0, "Cliente1_Spot30.mp3")
	assert.ErrorIs(t, err, catalogdomain.ErrFileNotRegistered)

	_, err = catalogSvc.ResolveFile(ctx, 0, "unknown_spot.mp3")
	assert.ErrorIs(t, err, catalogdomain.ErrFileNotRegistered)
}

func TestResolveFileClientScope(t *testing.T) {
	catalogSvc, clientSvc := newTestEnv(t)
	ctx := context.Background()

	owner, err := clientSvc.Create(ctx, clientdomain.CreateClientRequest{Name: "Owner"})
	require.NoError(t, err)
	other, err := clientSvc.Create(ctx, clientdomain.CreateClientRequest{Name: "Other"})
	require.NoError(t, err)

	_, err = catalogSvc.Register(ctx, catalogdomain.RegisterFileRequest{
		ClientID: owner.ID,
		FileName: "spot.mp3",
	})
	require.NoError(t, err)

	resolved, err := catalogSvc.ResolveFile(ctx, owner.ID, "spot.mp3")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, resolved.ClientID)

	_, err = catalogSvc.ResolveFile(ctx, other.ID, "spot.mp3")
	assert.ErrorIs(t, err, catalogdomain.ErrFileNotRegistered)
}

func TestResolveFileSharedNameAcrossClients(t *testing.T) {
	catalogSvc, clientSvc := newTestEnv(t)
	ctx := context.Background()

	first, err := clientSvc.Create(ctx, clientdomain.CreateClientRequest{Name: "Primeiro"})
	require.NoError(t, err)
	second, err := clientSvc.Create(ctx, clientdomain.CreateClientRequest{Name: "Segundo"})
	require.NoError(t, err)

	_, err = catalogSvc.Register(ctx, catalogdomain.RegisterFileRequest{
		ClientID: first.ID,
		FileName: "spot30.mp3",
	})
	require.NoError(t, err)
	secondFile, err := catalogSvc.Register(ctx, catalogdomain.RegisterFileRequest{
		ClientID: second.ID,
		FileName: "spot30.mp3",
	})
	require.NoError(t, err)

	// Without a hint the owner cannot be decided.
	_, err = catalogSvc.ResolveFile(ctx, 0, "spot30.mp3")
	assert.ErrorIs(t, err, catalogdomain.ErrFileAmbiguous)

	// A hint still resolves, and deactivating one copy lifts the ambiguity.
	resolved, err := catalogSvc.ResolveFile(ctx, first.ID, "spot30.mp3")
	require.NoError(t, err)
	assert.Equal(t, first.ID, resolved.ClientID)

	_, err = catalogSvc.SetActive(ctx, resolved.ID, false)
	require.NoError(t, err)
	resolved, err = catalogSvc.ResolveFile(ctx, 0, "spot30.mp3")
	require.NoError(t, err)
	assert.Equal(t, secondFile.ID, resolved.ID)
}

func TestResolveFileIgnoresInactive(t *testing.T) {
	catalogSvc, clientSvc := newTestEnv(t)
	ctx := context.Background()

	client, err := clientSvc.Create(ctx, clientdomain.CreateClientRequest{Name: "Cliente"})
	require.NoError(t, err)

	file, err := catalogSvc.Register(ctx, catalogdomain.RegisterFileRequest{
		ClientID: client.ID,
		FileName: "spot.mp3",
	})
	require.NoError(t, err)

	_, err = catalogSvc.SetActive(ctx, file.ID, false)
	require.NoError(t, err)

	_, err = catalogSvc.ResolveFile(ctx, 0, "spot.mp3")
	assert.ErrorIs(t, err, catalogdomain.ErrFileNotRegistered)

	// Reactivation restores resolution.
	_, err = catalogSvc.SetActive(ctx, file.ID, true)
	require.NoError(t, err)
	resolved, err := catalogSvc.ResolveFile(ctx, 0, "spot.mp3")
	require.NoError(t, err)
	assert.Equal(t, file.ID, resolved.ID)
}

func TestRegisterDuplicateFileName(t *testing.T) {
	catalogSvc, clientSvc := newTestEnv(t)
	ctx := context.Background()

	client, err := clientSvc.Create(ctx, clientdomain.CreateClientRequest{Name: "Cliente"})
	require.NoError(t, err)

	_, err = catalogSvc.Register(ctx, catalogdomain.RegisterFileRequest{
		ClientID: client.ID,
		FileName: "spot.mp3",
	})
	require.NoError(t, err)

	_, err = catalogSvc.Register(ctx, catalogdomain.RegisterFileRequest{
		ClientID: client.ID,
		FileName: "spot.mp3",
	})
	assert.ErrorIs(t, err, catalogdomain.ErrDuplicateFileName)
}
