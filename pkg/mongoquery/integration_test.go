package mongoquery

import (
	"context"
	"io"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/filterql/filterql/querybuilder"
)

var (
	sharedContainer *mongodb.MongoDBContainer
	sharedClient    *mongo.Client
	containerOnce   sync.Once
	containerReady  bool
)

func TestMain(m *testing.M) {
	code := m.Run()
	ctx := context.Background()
	if containerReady {
		if sharedClient != nil {
			_ = sharedClient.Disconnect(ctx)
		}
		if sharedContainer != nil {
			_ = sharedContainer.Terminate(ctx)
		}
	}
	os.Exit(code)
}

// getDatabase starts (once) a disposable MongoDB container and returns a
// fresh database scoped to the calling test, mirroring the teacher's
// testing/integration/setup_test.go getMongoContainer pattern.
func getDatabase(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping MongoDB integration test in short mode")
	}

	containerOnce.Do(func() {
		ctx := context.Background()
		container, err := mongodb.Run(ctx,
			"docker.io/mongo:7",
			testcontainers.WithWaitStrategy(
				wait.ForLog("Waiting for connections").WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			log.Fatalf("failed to start mongodb container: %v", err)
		}
		connStr, err := container.ConnectionString(ctx)
		if err != nil {
			log.Fatalf("failed to get connection string: %v", err)
		}
		client, err := mongo.Connect(options.Client().ApplyURI(connStr))
		if err != nil {
			log.Fatalf("failed to connect to mongodb: %v", err)
		}
		if err := client.Ping(ctx, nil); err != nil {
			log.Fatalf("failed to ping mongodb: %v", err)
		}
		sharedContainer = container
		sharedClient = client
		containerReady = true
	})

	return sharedClient.Database("filterql_test")
}

func seedUsers(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx := context.Background()
	coll := db.Collection("users")
	if err := coll.Drop(ctx); err != nil {
		t.Fatalf("drop: %v", err)
	}
	_, err := coll.InsertMany(ctx, []any{
		bson.M{"name": "Alice", "age": int64(30)},
		bson.M{"name": "Bob", "age": int64(25)},
		bson.M{"name": "Carol", "age": int64(40)},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func collectTuples(t *testing.T, it querybuilder.TupleIterator) []querybuilder.Tuple {
	t.Helper()
	defer it.Close()
	var out []querybuilder.Tuple
	for {
		tup, err := it.Next(context.Background())
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("next: %v", err)
		}
		out = append(out, tup)
	}
	return out
}

func TestMongoQuery_EqualFilter(t *testing.T) {
	db := getDatabase(t)
	seedUsers(t, db)

	b := NewBuilder(db)
	cb := b.CriteriaBuilder()
	q := b.CreateTupleQuery("users")
	q = q.MultiSelect(map[string]querybuilder.Expression{"name": cb.Field(q.Root().Get("name"))})
	q = q.Where(cb.Equal(q.Root().Get("name"), "Bob"))

	it, err := q.Execute(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	rows := collectTuples(t, it)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if name, _ := rows[0].Get("name"); name != "Bob" {
		t.Fatalf("expected Bob, got %v", name)
	}
}

func TestMongoQuery_RangeSortPaginate(t *testing.T) {
	db := getDatabase(t)
	seedUsers(t, db)

	b := NewBuilder(db)
	cb := b.CriteriaBuilder()
	q := b.CreateTupleQuery("users")
	q = q.MultiSelect(map[string]querybuilder.Expression{"name": cb.Field(q.Root().Get("name"))})
	q = q.Where(cb.Between(q.Root().Get("age"), int64(20), int64(35)))
	q = q.OrderBy(querybuilder.OrderSpec{Path: "age", Ascending: true})

	it, err := q.Execute(context.Background(), 0, 1)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	rows := collectTuples(t, it)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if name, _ := rows[0].Get("name"); name != "Bob" {
		t.Fatalf("expected Bob (lowest age in range), got %v", name)
	}
}

func TestMongoQuery_SumAggregate(t *testing.T) {
	db := getDatabase(t)
	seedUsers(t, db)

	b := NewBuilder(db)
	cb := b.CriteriaBuilder()
	q := b.CreateTupleQuery("users")
	q = q.MultiSelect(map[string]querybuilder.Expression{"total": cb.Sum(cb.Field(q.Root().Get("age")))})

	it, err := q.Execute(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	rows := collectTuples(t, it)
	if len(rows) != 1 {
		t.Fatalf("expected 1 aggregate row, got %d", len(rows))
	}
	total, _ := rows[0].Get("total")
	if toInt(total) != 95 {
		t.Fatalf("expected total 95, got %v", total)
	}
}

func toInt(v any) int64 {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return -1
	}
}
