package domain

import (
	"encoding/json"
	"testing"
)

func TestEditTaskPayloadExcludesOldContent(t *testing.T) {
	ev, err := NewEditTask("t1", "new text")
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(ev.Data, &raw); err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if len(raw) != 2 || raw["id"] != "t1" || raw["newContent"] != "new text" {
		t.Fatalf("unexpected payload %v", raw)
	}
}

func TestAddTaskOmitsOwner(t *testing.T) {
	ev, err := NewAddTask(Task{ID: "t1", Content: "buy milk", Owner: "a@b.c"})
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(ev.Data, &raw); err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if _, ok := raw["owner"]; ok {
		t.Fatalf("owner leaked into wire payload: %v", raw)
	}
	got, err := ev.AddedTask()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != "t1" || got.Content != "buy milk" || got.Done {
		t.Fatalf("unexpected task %+v", got)
	}
}

func TestValidRejectsUnknownKind(t *testing.T) {
	ev := Event{Kind: "renameList", Data: json.RawMessage(`{}`)}
	if err := ev.Valid(); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}

func TestDecodeKindMismatch(t *testing.T) {
	ev, err := NewDeleteTask("t1")
	if err != nil {
		t.Fatalf("build event: %v", err)
	}
	if _, err := ev.EditedTask(); err == nil {
		t.Fatal("expected kind mismatch error")
	}
	d, err := ev.DeletedTask()
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.ID != "t1" {
		t.Fatalf("unexpected id %q", d.ID)
	}
}
