package client

import (
	"sync"

	"todosync/domain"
)

// TaskList is an observable container for the task list shown to one session.
// Interface layers subscribe for snapshots instead of reaching into shared
// state; every mutation publishes a fresh copy to all subscribers.
type TaskList struct {
	mu    sync.RWMutex
	tasks []domain.Task
	subs  map[chan []domain.Task]struct{}
}

// NewTaskList creates an empty list.
func NewTaskList() *TaskList {
	return &TaskList{subs: make(map[chan []domain.Task]struct{})}
}

// Snapshot returns a copy of the current list.
func (l *TaskList) Snapshot() []domain.Task {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Task, len(l.tasks))
	copy(out, l.tasks)
	return out
}

// Subscribe registers an observer. The channel holds the latest snapshot;
// an unread one is replaced rather than blocking a mutation. The returned
// function cancels the subscription.
func (l *TaskList) Subscribe() (<-chan []domain.Task, func()) {
	ch := make(chan []domain.Task, 1)
	l.mu.Lock()
	l.subs[ch] = struct{}{}
	l.mu.Unlock()
	cancel := func() {
		l.mu.Lock()
		delete(l.subs, ch)
		l.mu.Unlock()
	}
	return ch, cancel
}

// notifyLocked publishes the current list to all subscribers. Callers hold mu.
func (l *TaskList) notifyLocked() {
	for ch := range l.subs {
		snap := make([]domain.Task, len(l.tasks))
		copy(snap, l.tasks)
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (l *TaskList) get(taskID string) (domain.Task, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.tasks {
		if t.ID == taskID {
			return t, true
		}
	}
	return domain.Task{}, false
}

func (l *TaskList) insert(t domain.Task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = append(l.tasks, t)
	l.notifyLocked()
}

// upsert inserts the task or replaces the row with the same id, so a
// re-delivered add event cannot duplicate a task.
func (l *TaskList) upsert(t domain.Task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.tasks {
		if l.tasks[i].ID == t.ID {
			l.tasks[i] = t
			l.notifyLocked()
			return
		}
	}
	l.tasks = append(l.tasks, t)
	l.notifyLocked()
}

func (l *TaskList) remove(taskID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.tasks {
		if l.tasks[i].ID == taskID {
			l.tasks = append(l.tasks[:i], l.tasks[i+1:]...)
			l.notifyLocked()
			return
		}
	}
}

func (l *TaskList) setContent(taskID, content string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.tasks {
		if l.tasks[i].ID == taskID {
			l.tasks[i].Content = content
			l.notifyLocked()
			return
		}
	}
}

func (l *TaskList) setDone(taskID string, done bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.tasks {
		if l.tasks[i].ID == taskID {
			l.tasks[i].Done = done
			l.notifyLocked()
			return
		}
	}
}

func (l *TaskList) replace(tasks []domain.Task) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tasks = make([]domain.Task, len(tasks))
	copy(l.tasks, tasks)
	l.notifyLocked()
}
