package domain

import (
	"encoding/json"
	"fmt"
)

// Event kinds carried over the sync channel. The payload under Data depends on
// the kind; see the typed payload structs below.
const (
	AddTask    = "addTask"
	DeleteTask = "deleteTask"
	EditTask   = "editTask"
	ToggleDone = "toggleDone"
)

// Event is one sync message between sessions of the same user.
type Event struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Envelope wraps an event for the inter-instance relay channel. Origin is the
// session handle that produced the event so receivers can exclude it.
type Envelope struct {
	UserID string `json:"userId"`
	Origin string `json:"origin"`
	Event  Event  `json:"event"`
}

// DeleteTaskData carries only the id of the removed task.
type DeleteTaskData struct {
	ID string `json:"id"`
}

// EditTaskData carries the new content of an edited task. The old content is
// never included.
type EditTaskData struct {
	ID         string `json:"id"`
	NewContent string `json:"newContent"`
}

// ToggleDoneData carries the new done value, not a flip instruction, so
// re-ordered deliveries converge on the origin's value.
type ToggleDoneData struct {
	ID   string `json:"id"`
	Done bool   `json:"done"`
}

func newEvent(kind string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", kind, err)
	}
	return Event{Kind: kind, Data: data}, nil
}

// NewAddTask builds an addTask event carrying the full task.
func NewAddTask(t Task) (Event, error) {
	return newEvent(AddTask, t)
}

// NewDeleteTask builds a deleteTask event.
func NewDeleteTask(taskID string) (Event, error) {
	return newEvent(DeleteTask, DeleteTaskData{ID: taskID})
}

// NewEditTask builds an editTask event.
func NewEditTask(taskID, newContent string) (Event, error) {
	return newEvent(EditTask, EditTaskData{ID: taskID, NewContent: newContent})
}

// NewToggleDone builds a toggleDone event.
func NewToggleDone(taskID string, done bool) (Event, error) {
	return newEvent(ToggleDone, ToggleDoneData{ID: taskID, Done: done})
}

// Valid reports whether the event has a known kind and a decodable payload.
func (e Event) Valid() error {
	switch e.Kind {
	case AddTask:
		var t Task
		return json.Unmarshal(e.Data, &t)
	case DeleteTask:
		var d DeleteTaskData
		return json.Unmarshal(e.Data, &d)
	case EditTask:
		var d EditTaskData
		return json.Unmarshal(e.Data, &d)
	case ToggleDone:
		var d ToggleDoneData
		return json.Unmarshal(e.Data, &d)
	default:
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
}

// AddedTask decodes an addTask payload.
func (e Event) AddedTask() (Task, error) {
	var t Task
	if e.Kind != AddTask {
		return t, fmt.Errorf("expected %s event, got %s", AddTask, e.Kind)
	}
	if err := json.Unmarshal(e.Data, &t); err != nil {
		return t, fmt.Errorf("parse %s payload: %w", AddTask, err)
	}
	return t, nil
}

// DeletedTask decodes a deleteTask payload.
func (e Event) DeletedTask() (DeleteTaskData, error) {
	var d DeleteTaskData
	if e.Kind != DeleteTask {
		return d, fmt.Errorf("expected %s event, got %s", DeleteTask, e.Kind)
	}
	if err := json.Unmarshal(e.Data, &d); err != nil {
		return d, fmt.Errorf("parse %s payload: %w", DeleteTask, err)
	}
	return d, nil
}

// EditedTask decodes an editTask payload.
func (e Event) EditedTask() (EditTaskData, error) {
	var d EditTaskData
	if e.Kind != EditTask {
		return d, fmt.Errorf("expected %s event, got %s", EditTask, e.Kind)
	}
	if err := json.Unmarshal(e.Data, &d); err != nil {
		return d, fmt.Errorf("parse %s payload: %w", EditTask, err)
	}
	return d, nil
}

// ToggledDone decodes a toggleDone payload.
func (e Event) ToggledDone() (ToggleDoneData, error) {
	var d ToggleDoneData
	if e.Kind != ToggleDone {
		return d, fmt.Errorf("expected %s event, got %s", ToggleDone, e.Kind)
	}
	if err := json.Unmarshal(e.Data, &d); err != nil {
		return d, fmt.Errorf("parse %s payload: %w", ToggleDone, err)
	}
	return d, nil
}
