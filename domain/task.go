package domain

// Task represents a single to-do item in the collection.
type Task struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Due       string `json:"due,omitempty"`
	Completed bool   `json:"completed"`
	CreatedAt string `json:"createdAt"`
	Order     int    `json:"order"`
}

// HasDue reports whether the task carries a due date.
func (t Task) HasDue() bool { return t.Due != "" }

// TaskPatch carries a partial update for a task. Nil fields are left
// unchanged; a Due pointing at the empty string clears the due date.
type TaskPatch struct {
	Title     *string `json:"title,omitempty"`
	Due       *string `json:"due,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}
