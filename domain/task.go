package domain

// Task is a single to-do item. Owner is the account the row belongs to; it is
// never sent over the sync channel because a session only receives events for
// its own account.
type Task struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Done    bool   `json:"done"`
	Owner   string `json:"-"`
}
