package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"todosync/domain"
)

// User-visible failure messages, one per mutation class.
const (
	msgAddFailed    = "Failed to upload new task"
	msgDeleteFailed = "Failed to delete task on server"
	msgUpdateFailed = "Failed to update task on server"
)

const defaultCallTimeout = 10 * time.Second

// Store is the persistence capability the controller confirms mutations
// against. The durable server is the owner of record.
type Store interface {
	Create(ctx context.Context, t domain.Task) error
	Delete(ctx context.Context, taskID string) error
	UpdateContent(ctx context.Context, taskID, content string) error
	UpdateDone(ctx context.Context, taskID string, done bool) error
	ListByOwner(ctx context.Context, owner string) ([]domain.Task, error)
}

// Publisher emits change events to sibling sessions after persistence
// succeeds. Delivery is best-effort; failures are logged and dropped.
type Publisher interface {
	Publish(ctx context.Context, ev domain.Event) error
}

// Controller is the single source of truth for one session's task list. Every
// mutation applies locally first, then confirms against the store, and
// compensates by restoring the prior snapshot when the store call fails.
type Controller struct {
	owner   string
	store   Store
	pub     Publisher
	list    *TaskList
	alert   func(msg string)
	timeout time.Duration
	log     *log.Logger
}

// NewController creates a controller for one authenticated session. pub may be
// nil when the session has no sync channel; alert may be nil to discard
// failure messages.
func NewController(owner string, store Store, pub Publisher, alert func(msg string)) *Controller {
	if alert == nil {
		alert = func(string) {}
	}
	return &Controller{
		owner:   owner,
		store:   store,
		pub:     pub,
		list:    NewTaskList(),
		alert:   alert,
		timeout: defaultCallTimeout,
		log:     log.StandardLogger(),
	}
}

// Tasks exposes the observable list for interface layers.
func (c *Controller) Tasks() *TaskList {
	return c.list
}

func (c *Controller) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// emit broadcasts ev to sibling sessions. Called only after the store
// confirmed the mutation; a failed emit never rolls anything back.
func (c *Controller) emit(ctx context.Context, ev domain.Event, err error) {
	if c.pub == nil {
		return
	}
	if err != nil {
		c.log.Errorf("build %s event: %v", ev.Kind, err)
		return
	}
	if err := c.pub.Publish(ctx, ev); err != nil {
		c.log.Errorf("publish %s event: %v", ev.Kind, err)
	}
}

// Add creates a task from content and persists it. Empty content is a silent
// no-op. The task is visible locally before the store confirms; on store
// failure it is removed again and the failure is surfaced.
func (c *Controller) Add(ctx context.Context, content string) {
	if content == "" {
		return
	}
	task := domain.Task{ID: uuid.NewString(), Content: content, Owner: c.owner}
	c.list.insert(task)

	callCtx, cancel := c.callCtx(ctx)
	err := c.store.Create(callCtx, task)
	cancel()
	if err != nil {
		c.list.remove(task.ID)
		c.alert(msgAddFailed)
		return
	}
	ev, evErr := domain.NewAddTask(task)
	c.emit(ctx, ev, evErr)
}

// Remove deletes the task with the given id. The full snapshot is kept for
// rollback; on store failure the task is re-inserted.
func (c *Controller) Remove(ctx context.Context, taskID string) {
	backup, ok := c.list.get(taskID)
	if !ok {
		return
	}
	c.list.remove(taskID)

	callCtx, cancel := c.callCtx(ctx)
	err := c.store.Delete(callCtx, taskID)
	cancel()
	if err != nil {
		c.list.insert(backup)
		c.alert(msgDeleteFailed)
		return
	}
	ev, evErr := domain.NewDeleteTask(taskID)
	c.emit(ctx, ev, evErr)
}

// EditContent replaces the task's content. On store failure the previous
// content is restored.
func (c *Controller) EditContent(ctx context.Context, taskID, newContent string) {
	backup, ok := c.list.get(taskID)
	if !ok {
		return
	}
	c.list.setContent(taskID, newContent)

	callCtx, cancel := c.callCtx(ctx)
	err := c.store.UpdateContent(callCtx, taskID, newContent)
	cancel()
	if err != nil {
		c.list.setContent(taskID, backup.Content)
		c.alert(msgUpdateFailed)
		return
	}
	ev, evErr := domain.NewEditTask(taskID, newContent)
	c.emit(ctx, ev, evErr)
}

// ToggleDone flips the task's done flag. On store failure the previous value
// is restored.
func (c *Controller) ToggleDone(ctx context.Context, taskID string) {
	backup, ok := c.list.get(taskID)
	if !ok {
		return
	}
	newDone := !backup.Done
	c.list.setDone(taskID, newDone)

	callCtx, cancel := c.callCtx(ctx)
	err := c.store.UpdateDone(callCtx, taskID, newDone)
	cancel()
	if err != nil {
		c.list.setDone(taskID, backup.Done)
		c.alert(msgUpdateFailed)
		return
	}
	ev, evErr := domain.NewToggleDone(taskID, newDone)
	c.emit(ctx, ev, evErr)
}

// ApplyRemote merges an event broadcast by a sibling session into local state.
// No persistence call is made and nothing is re-published, so events never
// loop between siblings. A delete for an absent id is a no-op.
func (c *Controller) ApplyRemote(ev domain.Event) {
	switch ev.Kind {
	case domain.AddTask:
		task, err := ev.AddedTask()
		if err != nil {
			c.log.Errorf("apply remote add: %v", err)
			return
		}
		task.Owner = c.owner
		c.list.upsert(task)
	case domain.DeleteTask:
		data, err := ev.DeletedTask()
		if err != nil {
			c.log.Errorf("apply remote delete: %v", err)
			return
		}
		c.list.remove(data.ID)
	case domain.EditTask:
		data, err := ev.EditedTask()
		if err != nil {
			c.log.Errorf("apply remote edit: %v", err)
			return
		}
		c.list.setContent(data.ID, data.NewContent)
	case domain.ToggleDone:
		data, err := ev.ToggledDone()
		if err != nil {
			c.log.Errorf("apply remote toggle: %v", err)
			return
		}
		c.list.setDone(data.ID, data.Done)
	default:
		c.log.Warnf("ignoring remote event of unknown kind %q", ev.Kind)
	}
}

// LoadAll replaces local state wholesale with the store's rows for this
// session's account. This is the only point that corrects drift from missed
// or duplicated broadcasts; it runs at session start, not automatically.
func (c *Controller) LoadAll(ctx context.Context) error {
	callCtx, cancel := c.callCtx(ctx)
	tasks, err := c.store.ListByOwner(callCtx, c.owner)
	cancel()
	if err != nil {
		return err
	}
	c.list.replace(tasks)
	return nil
}
