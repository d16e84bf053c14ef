package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/opencode-ai/taskutils/internal/models"
)

type fakeRepo struct {
	events []*models.Event
}

func (r *fakeRepo) Create(ctx context.Context, event *models.Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *fakeRepo) last() *models.Event {
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

func TestLogRunStarted(t *testing.T) {
	repo := &fakeRepo{}

	if err := LogRunStarted(context.Background(), repo, "run-1", "demo", 4); err != nil {
		t.Fatalf("LogRunStarted failed: %v", err)
	}

	event := repo.last()
	if event == nil {
		t.Fatal("expected event to be created")
	}
	if event.Type != models.EventTypeRunStarted {
		t.Fatalf("unexpected event type: %q", event.Type)
	}
	if event.EntityType != models.EntityTypeSequence || event.EntityID != "run-1" {
		t.Fatalf("unexpected entity: %s/%s", event.EntityType, event.EntityID)
	}
	if event.Metadata["sequence"] != "demo" {
		t.Fatalf("unexpected metadata: %v", event.Metadata)
	}

	var payload models.RunStartedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Instructions != 4 {
		t.Fatalf("unexpected instruction count: %d", payload.Instructions)
	}
}

func TestLogRunFailed(t *testing.T) {
	repo := &fakeRepo{}

	if err := LogRunFailed(context.Background(), repo, "run-1", 3, errors.New("boom")); err != nil {
		t.Fatalf("LogRunFailed failed: %v", err)
	}

	var payload models.RunFailedPayload
	if err := json.Unmarshal(repo.last().Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Error != "boom" || payload.Index != 3 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestLogLoopLifecycle(t *testing.T) {
	repo := &fakeRepo{}
	ctx := context.Background()

	if err := LogLoopStarted(ctx, repo, "loop-1", "print", 2, 50*time.Millisecond, true); err != nil {
		t.Fatalf("LogLoopStarted failed: %v", err)
	}
	if err := LogLoopIteration(ctx, repo, "loop-1", 1, 1); err != nil {
		t.Fatalf("LogLoopIteration failed: %v", err)
	}
	if err := LogLoopCompleted(ctx, repo, "loop-1"); err != nil {
		t.Fatalf("LogLoopCompleted failed: %v", err)
	}

	want := []models.EventType{models.EventTypeLoopStarted, models.EventTypeLoopIteration, models.EventTypeLoopCompleted}
	if len(repo.events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(repo.events))
	}
	for i, event := range repo.events {
		if event.Type != want[i] {
			t.Fatalf("event %d: expected %s, got %s", i, want[i], event.Type)
		}
		if event.EntityType != models.EntityTypeLoop {
			t.Fatalf("event %d: unexpected entity type %s", i, event.EntityType)
		}
	}
	if repo.events[2].Payload != nil {
		t.Fatalf("expected no payload on completion, got %s", repo.events[2].Payload)
	}
}

func TestLogRequiresRepoAndRunID(t *testing.T) {
	if err := LogRunCompleted(context.Background(), nil, "run-1"); err == nil {
		t.Fatal("expected error for nil repository")
	}
	if err := LogRunCancelled(context.Background(), &fakeRepo{}, ""); err == nil {
		t.Fatal("expected error for empty run id")
	}
}

func TestLogEarlyEndings(t *testing.T) {
	repo := &fakeRepo{}
	ctx := context.Background()

	if err := LogRunStopped(ctx, repo, "run-1"); err != nil {
		t.Fatalf("LogRunStopped failed: %v", err)
	}
	if err := LogLoopCancelled(ctx, repo, "loop-1"); err != nil {
		t.Fatalf("LogLoopCancelled failed: %v", err)
	}
	if err := LogLoopStopped(ctx, repo, "loop-1"); err != nil {
		t.Fatalf("LogLoopStopped failed: %v", err)
	}

	want := []struct {
		eventType  models.EventType
		entityType models.EntityType
	}{
		{models.EventTypeRunStopped, models.EntityTypeSequence},
		{models.EventTypeLoopCancelled, models.EntityTypeLoop},
		{models.EventTypeLoopStopped, models.EntityTypeLoop},
	}
	for i, event := range repo.events {
		if event.Type != want[i].eventType || event.EntityType != want[i].entityType {
			t.Fatalf("event %d: expected %s/%s, got %s/%s", i, want[i].eventType, want[i].entityType, event.Type, event.EntityType)
		}
	}
}
