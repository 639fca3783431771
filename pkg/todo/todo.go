package todo

import (
	"context"
	"time"
)

// Todo is one task record. Date fields (DueDate, PlannedDate) are
// zero-padded YYYY-MM-DD strings with no time component; the recurrence
// engine deduplicates instances by string equality on DueDate, so the
// format must be preserved exactly across every boundary. An empty
// string means the date is unset.
type Todo struct {
	ID           string     `json:"id"`
	Content      string     `json:"content"`
	Notes        string     `json:"notes,omitempty"`
	CategoryID   string     `json:"category_id,omitempty"` // empty = uncategorized / inbox
	DueDate      string     `json:"due_date,omitempty"`
	PlannedDate  string     `json:"planned_date,omitempty"`
	Completed    bool       `json:"completed"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	Deleted      bool       `json:"deleted"` // soft delete / trash marker
	Recurring    bool       `json:"recurring"`
	RecurringDay int        `json:"recurring_day,omitempty"` // 1..31, or 99 = last day of month
	OwnerID      string     `json:"owner_id"`
	CreatedAt    time.Time  `json:"created_at"`
}

// Category groups todos. A todo with no category lives in the inbox.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Store is the contract for todo persistence.
//
// FetchAll returns every record for the owner, soft-deleted ones
// included: the recurrence engine's existence check spans all lifecycle
// states. CreateBatch is all-or-nothing; on error no record was written.
type Store interface {
	FetchAll(ctx context.Context, ownerID string) ([]Todo, error)
	Get(ctx context.Context, id string) (*Todo, error)
	Create(ctx context.Context, t *Todo) (*Todo, error)
	CreateBatch(ctx context.Context, ts []Todo) ([]Todo, error)
	Update(ctx context.Context, id string, updates map[string]any) (*Todo, error)
	SetCompleted(ctx context.Context, id string, completed bool) (*Todo, error)
	SetPlannedDate(ctx context.Context, id, date string) error
	SetDeleted(ctx context.Context, id string, deleted bool) error
	Delete(ctx context.Context, id string) error
	EmptyTrash(ctx context.Context, ownerID string) error
	TrashByCategory(ctx context.Context, categoryID string) error
	DueOn(ctx context.Context, date string) ([]Todo, error)
	EnsureTables(ctx context.Context) error
}

// CategoryStore is the contract for category persistence. Both backends
// implement it on the same store value as Store, so the method names
// stay distinct from the todo ones.
type CategoryStore interface {
	List(ctx context.Context, ownerID string) ([]Category, error)
	CreateCategory(ctx context.Context, c *Category) (*Category, error)
	Rename(ctx context.Context, id, name string) (*Category, error)
	DeleteCategory(ctx context.Context, id string) error
}
