package progress

import (
	"errors"
	"testing"
)

func newTestQueue(t *testing.T) *Queue {
	t.Helper()
	q, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func mustPush(t *testing.T, q *Queue, content string, importance int, tags []string) *PushReceipt {
	t.Helper()
	r, err := q.Push(content, importance, tags)
	if err != nil {
		t.Fatalf("Push(%q): %v", content, err)
	}
	return r
}

// ─── Push ────────────────────────────────────────────────────────────

func TestPushReceipt(t *testing.T) {
	q := newTestQueue(t)

	first := mustPush(t, q, "first task", 0, nil)
	if first.Position != 0 || first.QueueSize != 1 {
		t.Fatalf("first receipt = %+v, want position 0 size 1", first)
	}

	second := mustPush(t, q, "second task", 0, []string{"infra"})
	if second.Position != 1 || second.QueueSize != 2 {
		t.Fatalf("second receipt = %+v, want position 1 size 2", second)
	}
	if second.ID == first.ID {
		t.Fatal("ids not unique")
	}
}

// ─── Pop ─────────────────────────────────────────────────────────────

func TestPopFIFOOrder(t *testing.T) {
	q := newTestQueue(t)
	mustPush(t, q, "oldest", 0, nil)
	mustPush(t, q, "newer", 0, nil)

	item, err := q.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if item.Content != "oldest" {
		t.Fatalf("popped %q, want oldest", item.Content)
	}
	if item.CompletedAt == "" {
		t.Fatal("popped item not marked completed")
	}

	item, err = q.Pop()
	if err != nil {
		t.Fatal(err)
	}
	if item.Content != "newer" {
		t.Fatalf("popped %q, want newer", item.Content)
	}
}

func TestPopSkipsSticky(t *testing.T) {
	q := newTestQueue(t)
	mustPush(t, q, "sticky reminder", 2, nil)
	mustPush(t, q, "normal task", 0, nil)

	item, err := q.Pop()
	if err != nil {
		t.Fatal(err)
	}
	if item.Content != "normal task" {
		t.Fatalf("popped %q, want the non-sticky item", item.Content)
	}

	// Only the sticky item remains; the queue reports empty to Pop.
	if _, err := q.Pop(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Pop with only sticky items = %v, want ErrEmpty", err)
	}
}

func TestPopEmpty(t *testing.T) {
	q := newTestQueue(t)
	if _, err := q.Pop(); !errors.Is(err, ErrEmpty) {
		t.Fatalf("Pop on empty queue = %v, want ErrEmpty", err)
	}
}

// ─── List ────────────────────────────────────────────────────────────

func TestListDefaults(t *testing.T) {
	q := newTestQueue(t)
	mustPush(t, q, "a", 0, nil)
	mustPush(t, q, "b", 1, nil)
	popped := mustPush(t, q, "done", 0, nil)
	if _, err := q.Complete(popped.ID); err != nil {
		t.Fatal(err)
	}

	listing, err := q.List(ListParams{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if listing.Total != 2 {
		t.Fatalf("total = %d, want 2 incomplete", listing.Total)
	}
	if listing.StickyCount != 1 {
		t.Fatalf("sticky count = %d, want 1", listing.StickyCount)
	}
	// Higher importance sorts first among incomplete items.
	if listing.Items[0].Content != "b" {
		t.Fatalf("first listed = %q, want the sticky item", listing.Items[0].Content)
	}
}

func TestListIncludeCompleted(t *testing.T) {
	q := newTestQueue(t)
	r := mustPush(t, q, "done", 0, nil)
	if _, err := q.Complete(r.ID); err != nil {
		t.Fatal(err)
	}
	mustPush(t, q, "open", 0, nil)

	listing, err := q.List(ListParams{IncludeCompleted: true})
	if err != nil {
		t.Fatal(err)
	}
	if listing.Total != 2 {
		t.Fatalf("total = %d, want 2", listing.Total)
	}
	// Incomplete before completed regardless of insertion order.
	if listing.Items[0].Content != "open" || listing.Items[1].Content != "done" {
		t.Fatalf("order = [%q, %q]", listing.Items[0].Content, listing.Items[1].Content)
	}
}

func TestListTagFilter(t *testing.T) {
	q := newTestQueue(t)
	mustPush(t, q, "tagged", 0, []string{"infra", "urgent"})
	mustPush(t, q, "untagged", 0, nil)

	listing, err := q.List(ListParams{TagFilter: "infra"})
	if err != nil {
		t.Fatal(err)
	}
	if listing.Total != 1 || listing.Items[0].Content != "tagged" {
		t.Fatalf("tag filter returned %+v", listing.Items)
	}
}

func TestListLimit(t *testing.T) {
	q := newTestQueue(t)
	for i := 0; i < 5; i++ {
		mustPush(t, q, "task", 0, nil)
	}
	listing, err := q.List(ListParams{Limit: 3})
	if err != nil {
		t.Fatal(err)
	}
	if len(listing.Items) != 3 {
		t.Fatalf("items = %d, want limit 3", len(listing.Items))
	}
	if listing.Total != 5 {
		t.Fatalf("total = %d, want 5", listing.Total)
	}
}

// ─── Complete ────────────────────────────────────────────────────────

func TestCompleteErrors(t *testing.T) {
	q := newTestQueue(t)
	r := mustPush(t, q, "task", 0, nil)

	if _, err := q.Complete(9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Complete(unknown) = %v, want ErrNotFound", err)
	}

	completedAt, err := q.Complete(r.ID)
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if completedAt == "" {
		t.Fatal("empty completion timestamp")
	}

	if _, err := q.Complete(r.ID); !errors.Is(err, ErrAlreadyCompleted) {
		t.Fatalf("repeat Complete = %v, want ErrAlreadyCompleted", err)
	}
}

func TestCompleteStickyItem(t *testing.T) {
	q := newTestQueue(t)
	r := mustPush(t, q, "sticky", 3, nil)

	if _, err := q.Complete(r.ID); err != nil {
		t.Fatalf("Complete sticky: %v", err)
	}
	listing, err := q.List(ListParams{})
	if err != nil {
		t.Fatal(err)
	}
	if listing.StickyCount != 0 {
		t.Fatalf("sticky count after completion = %d, want 0", listing.StickyCount)
	}
}
