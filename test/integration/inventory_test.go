//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orderflow/inventory-service/internal/inventory/application"
	"github.com/orderflow/inventory-service/internal/inventory/domain"
	inventoryKafka "github.com/orderflow/inventory-service/internal/inventory/infrastructure/kafka"
	inventoryDB "github.com/orderflow/inventory-service/internal/inventory/infrastructure/postgres"
	inventoryRedis "github.com/orderflow/inventory-service/internal/inventory/infrastructure/redis"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupEnv(t *testing.T) (*Env, *inventoryDB.Repository, *inventoryRedis.DedupStore) {
	t.Helper()
	ctx := context.Background()

	env, err := Setup(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { env.Teardown(context.Background()) })

	pool, err := pgxpool.New(ctx, env.PGURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	repo := inventoryDB.NewRepository(discardLogger(), pool)
	require.NoError(t, repo.Migrate(ctx))

	opts, err := goredis.ParseURL(env.RedisURL)
	require.NoError(t, err)
	rdb := goredis.NewClient(opts)
	t.Cleanup(func() { _ = rdb.Close() })

	return env, repo, inventoryRedis.NewDedupStore(rdb, time.Hour)
}

func TestConditionalDecrement_Atomicity(t *testing.T) {
	_, repo, _ := setupEnv(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertZero(ctx, "product-1"))
	require.NoError(t, repo.Increment(ctx, "product-1", 10))

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			affected, err := repo.DecrementIfSufficient(ctx, "product-1", 1)
			if err == nil && affected == 1 {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded, "only as many decrements as stock may land")
	rec, err := repo.FindByProductID(ctx, "product-1")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Quantity)
}

func TestUpsertZero_RoundTrip(t *testing.T) {
	_, repo, _ := setupEnv(t)
	ctx := context.Background()

	require.NoError(t, repo.UpsertZero(ctx, "product-2"))
	rec, err := repo.FindByProductID(ctx, "product-2")
	require.NoError(t, err)
	assert.Equal(t, 0, rec.Quantity)

	_, err = repo.UpdateQuantity(ctx, "product-2", 42)
	require.NoError(t, err)
	require.NoError(t, repo.UpsertZero(ctx, "product-2"))

	rec, err = repo.FindByProductID(ctx, "product-2")
	require.NoError(t, err)
	assert.Equal(t, 42, rec.Quantity, "duplicate creation signal must not reset quantity")
}

func TestIncrement_MissingRowCreatesIt(t *testing.T) {
	_, repo, _ := setupEnv(t)
	ctx := context.Background()

	require.NoError(t, repo.Increment(ctx, "late-cancel", 7))
	rec, err := repo.FindByProductID(ctx, "late-cancel")
	require.NoError(t, err)
	assert.Equal(t, 7, rec.Quantity)
}

func TestDedupStore_FirstSightingOnce(t *testing.T) {
	_, _, dedup := setupEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	firsts := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			first, err := dedup.FirstSighting(ctx, "msg-racy")
			if err == nil && first {
				mu.Lock()
				firsts++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, firsts, "check-and-set must admit exactly one delivery")
}

func TestReservationLifecycle(t *testing.T) {
	env, repo, dedup := setupEnv(t)
	ctx := context.Background()
	log := discardLogger()

	writer := inventoryKafka.NewWriter(env.Brokers)
	writer.AllowAutoTopicCreation = true
	t.Cleanup(func() { _ = writer.Close() })
	publisher := inventoryKafka.NewPublisher(log, writer)

	svc := application.NewService(log, repo, dedup, publisher, application.Topics{
		Reserved: "inventory-reserved",
		Rejected: "inventory-rejected",
	})

	require.NoError(t, svc.CreateStock(ctx, domain.ProductCreated{ProductID: "product-3"}))
	_, err := svc.UpdateByProductID(ctx, "product-3", 20)
	require.NoError(t, err)

	order := domain.OrderPlaced{
		OrderNumber: "order-500",
		ProductID:   "product-3",
		Quantity:    10,
		Email:       "jane@example.com",
		FirstName:   "Jane",
		LastName:    "Doe",
	}
	require.NoError(t, svc.ReserveStock(ctx, order))

	rec, err := repo.FindByProductID(ctx, "product-3")
	require.NoError(t, err)
	assert.Equal(t, 10, rec.Quantity)

	msg := readOne(t, env.Brokers, "inventory-reserved")
	var reserved domain.InventoryReserved
	require.NoError(t, json.Unmarshal(msg.Value, &reserved))
	assert.Equal(t, "order-500", reserved.OrderNumber)
	assert.NotEmpty(t, inventoryKafka.HeaderValue(msg.Headers, inventoryKafka.MessageIDHeader))

	// Over-ask is rejected and leaves the ledger untouched.
	order.OrderNumber = "order-501"
	order.Quantity = 25
	require.NoError(t, svc.ReserveStock(ctx, order))
	rec, err = repo.FindByProductID(ctx, "product-3")
	require.NoError(t, err)
	assert.Equal(t, 10, rec.Quantity)

	// Cancellation delivered twice credits once.
	cancel := domain.OrderCancelled{
		OrderNumber: "order-500",
		ProductID:   "product-3",
		Quantity:    10,
		Email:       "jane@example.com",
		FirstName:   "Jane",
		LastName:    "Doe",
	}
	require.NoError(t, svc.RestoreStock(ctx, cancel, "cancel-500"))
	require.NoError(t, svc.RestoreStock(ctx, cancel, "cancel-500"))

	rec, err = repo.FindByProductID(ctx, "product-3")
	require.NoError(t, err)
	assert.Equal(t, 20, rec.Quantity)
}

func readOne(t *testing.T, brokers []string, topic string) kafkago.Message {
	t.Helper()
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     "it-verify-" + topic,
		StartOffset: kafkago.FirstOffset,
	})
	defer reader.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	msg, err := reader.ReadMessage(ctx)
	require.NoError(t, err)
	return msg
}
