package engine

import (
	"context"
	"testing"

	"github.com/filterql/filterql/internal/types"
	"github.com/filterql/filterql/pkg/memquery"
	"github.com/filterql/filterql/querybuilder"
)

func TestBuildIDPredicate_NoIDs(t *testing.T) {
	b := memquery.NewBuilder(memquery.NewStore())
	cb := b.CriteriaBuilder()
	q := b.CreateTupleQuery("users")

	pred := BuildIDPredicate(cb, q.Root(), []string{"id"}, nil)
	q = q.MultiSelect(map[string]querybuilder.Expression{"id": cb.Field(q.Root().Get("id"))}).Where(pred)

	it, err := q.Execute(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	defer it.Close()
	if _, err := it.Next(context.Background()); err == nil {
		t.Fatal("expected an always-false predicate to match nothing")
	}
}

func TestBuildIDPredicate_SingleFieldBatchesOverMaxIn(t *testing.T) {
	store := memquery.NewStore()
	var want int
	for i := 0; i < 1700; i++ {
		store.Seed("users", map[string]any{"id": int64(i)})
		if i%2 == 0 {
			want++
		}
	}
	b := memquery.NewBuilder(store)
	cb := b.CriteriaBuilder()
	q := b.CreateTupleQuery("users")

	ids := make([]types.CompositeKey, 0, want)
	for i := 0; i < 1700; i += 2 {
		ids = append(ids, types.NewCompositeKey(int64(i)))
	}

	pred := BuildIDPredicate(cb, q.Root(), []string{"id"}, ids)
	q = q.MultiSelect(map[string]querybuilder.Expression{"id": cb.Field(q.Root().Get("id"))}).Where(pred)

	it, err := q.Execute(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	defer it.Close()

	count := 0
	for {
		_, err := it.Next(context.Background())
		if err != nil {
			break
		}
		count++
	}
	if count != want {
		t.Fatalf("expected %d matches, got %d", want, count)
	}
}

func TestBuildIDPredicate_CompositeFields(t *testing.T) {
	store := memquery.NewStore()
	store.Seed("memberships",
		map[string]any{"orgId": int64(1), "userId": int64(1)},
		map[string]any{"orgId": int64(1), "userId": int64(2)},
		map[string]any{"orgId": int64(2), "userId": int64(1)},
	)
	b := memquery.NewBuilder(store)
	cb := b.CriteriaBuilder()
	q := b.CreateTupleQuery("memberships")

	ids := []types.CompositeKey{types.NewCompositeKey(int64(1), int64(2))}
	pred := BuildIDPredicate(cb, q.Root(), []string{"orgId", "userId"}, ids)
	q = q.MultiSelect(map[string]querybuilder.Expression{
		"orgId":  cb.Field(q.Root().Get("orgId")),
		"userId": cb.Field(q.Root().Get("userId")),
	}).Where(pred)

	it, err := q.Execute(context.Background(), 0, 0)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	defer it.Close()

	tup, err := it.Next(context.Background())
	if err != nil {
		t.Fatalf("expected exactly one match: %v", err)
	}
	if org, _ := tup.Get("orgId"); org != int64(1) {
		t.Fatalf("expected orgId 1, got %v", org)
	}
	if _, err := it.Next(context.Background()); err == nil {
		t.Fatal("expected exactly one match")
	}
}
