//go:build integration

package mongo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/Devanshprabhakar24/Scatch/internal/storage"
	"github.com/Devanshprabhakar24/Scatch/internal/storage/storagetest"
)

// startMongo runs a single node replica set, which transactions require.
func startMongo(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			Cmd:          []string{"--replSet", "rs0", "--bind_ip_all"},
			WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	code, _, err := ctr.Exec(ctx, []string{
		"mongosh", "--quiet", "--eval",
		`rs.initiate({_id: "rs0", members: [{_id: 0, host: "localhost:27017"}]})`,
	})
	require.NoError(t, err)
	require.Zero(t, code)

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)
	uri := fmt.Sprintf("mongodb://%s:%s/?directConnection=true", host, port.Port())

	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(ctx) }()
	require.Eventually(t, func() bool {
		return client.Ping(ctx, readpref.Primary()) == nil
	}, 30*time.Second, 500*time.Millisecond, "replica set primary not elected")

	return uri
}

func TestMongo(t *testing.T) {
	ctx := context.Background()
	uri := startMongo(t)

	client, err := Connect(ctx, uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	storagetest.Run(t, func(t *testing.T) *storage.Repositories {
		db := client.Database("scatch_" + uuid.NewString()[:8])
		require.NoError(t, Migrate(ctx, db))
		t.Cleanup(func() { _ = db.Drop(ctx) })
		repos := Repositories(db)
		repos.Close = func(context.Context) error { return nil }
		return repos
	})
}
