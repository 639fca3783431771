package recur

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"whattodo/pkg/todo"
)

// windowMonths is the rolling generation window: the anchor month plus
// three following months.
const windowMonths = 4

// Engine reconciles the live todo set against the implied recurrence
// schedule. It is safe for concurrent use; Sync and Advance serialize
// per owner so overlapping invocations cannot both pass the existence
// check and double-create instances.
type Engine struct {
	store todo.Store
	now   func() time.Time

	mu     sync.Mutex
	owners map[string]*sync.Mutex
}

// NewEngine creates an Engine over the given store.
func NewEngine(store todo.Store) *Engine {
	return &Engine{
		store:  store,
		now:    time.Now,
		owners: make(map[string]*sync.Mutex),
	}
}

func (e *Engine) ownerLock(ownerID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.owners[ownerID]
	if !ok {
		l = &sync.Mutex{}
		e.owners[ownerID] = l
	}
	return l
}

// Sync ensures instances exist for every derived rule across the
// rolling window anchored at base (the caller passes the wall clock, or
// a calendar view's visible date). Missing instances are created in a
// single all-or-nothing batch; on failure the error is logged, nothing
// is written, and nothing is returned. Invoking Sync again with no
// intervening change creates nothing: the existence check sees the
// previous call's writes.
func (e *Engine) Sync(ctx context.Context, ownerID string, base time.Time) ([]todo.Todo, error) {
	l := e.ownerLock(ownerID)
	l.Lock()
	defer l.Unlock()

	snapshot, err := e.store.FetchAll(ctx, ownerID)
	if err != nil {
		log.Printf("recur: fetch todos for %s: %v", ownerID, err)
		return nil, fmt.Errorf("fetch todos: %w", err)
	}

	staged, err := Plan(snapshot, ownerID, base)
	if err != nil {
		return nil, err
	}
	if len(staged) == 0 {
		return nil, nil
	}

	created, err := e.store.CreateBatch(ctx, staged)
	if err != nil {
		log.Printf("recur: sync batch create for %s: %v", ownerID, err)
		return nil, fmt.Errorf("sync batch create: %w", err)
	}
	return created, nil
}

// Plan computes the instances missing from the rolling window: for each
// rule and each month offset, the month-clamped candidate date, skipped
// when it precedes the rule's minimum date or when any todo in the
// snapshot, whatever its completed or deleted state, already carries
// the rule's content and category with that due date. Dedup is by value
// identity, not lifecycle state: an instance the user trashed this
// cycle is not recreated.
func Plan(snapshot []todo.Todo, ownerID string, base time.Time) ([]todo.Todo, error) {
	rules := DeriveRules(snapshot)
	anchorYear, anchorMonth := base.Year(), int(base.Month())

	var staged []todo.Todo
	for _, r := range rules {
		if !ValidDay(r.Day) {
			return nil, fmt.Errorf("rule %q: day %d: %w", r.Content, r.Day, ErrInvalidDay)
		}
		for offset := 0; offset < windowMonths; offset++ {
			year, month := anchorYear, anchorMonth+offset
			if month > 12 {
				month -= 12
				year++
			}
			due := DateForMonth(year, month, r.Day)

			if r.MinDate != "" && due < r.MinDate {
				continue
			}
			if hasInstance(snapshot, r.Content, r.CategoryID, due) {
				continue
			}
			staged = append(staged, todo.Todo{
				Content:      r.Content,
				CategoryID:   r.CategoryID,
				Notes:        r.Notes,
				DueDate:      due,
				Recurring:    true,
				RecurringDay: r.Day,
				OwnerID:      ownerID,
			})
		}
	}
	return staged, nil
}

func hasInstance(snapshot []todo.Todo, content, categoryID, due string) bool {
	for _, t := range snapshot {
		if t.Content == content && t.CategoryID == categoryID && t.DueDate == due {
			return true
		}
	}
	return false
}

// Advance runs when a recurring todo's completed flag flips from false
// to true: it guarantees the rule's next instance exists right away,
// even if no sync pass has run since. The next date is computed from
// the later of today and the completed instance's own due date, so
// completing this month's instance early still yields next month's
// date rather than re-finding the instance just closed out. At most one
// todo is created; if one with the same content, due date and recurring
// flag already exists this is a no-op. Un-completing never retracts an
// advancement.
func (e *Engine) Advance(ctx context.Context, t todo.Todo) (*todo.Todo, error) {
	if !t.Recurring || t.RecurringDay == 0 {
		return nil, nil
	}
	if !ValidDay(t.RecurringDay) {
		return nil, fmt.Errorf("todo %s: day %d: %w", t.ID, t.RecurringDay, ErrInvalidDay)
	}

	l := e.ownerLock(t.OwnerID)
	l.Lock()
	defer l.Unlock()

	anchor := e.now()
	if due, err := time.Parse("2006-01-02", t.DueDate); err == nil && due.After(anchor) {
		anchor = due
	}
	next := NextOccurrence(anchor, t.RecurringDay)

	snapshot, err := e.store.FetchAll(ctx, t.OwnerID)
	if err != nil {
		log.Printf("recur: fetch todos for %s: %v", t.OwnerID, err)
		return nil, fmt.Errorf("fetch todos: %w", err)
	}
	for _, existing := range snapshot {
		if existing.Content == t.Content && existing.DueDate == next && existing.Recurring {
			return nil, nil
		}
	}

	created, err := e.store.Create(ctx, &todo.Todo{
		Content:      t.Content,
		CategoryID:   t.CategoryID,
		DueDate:      next,
		Recurring:    true,
		RecurringDay: t.RecurringDay,
		OwnerID:      t.OwnerID,
	})
	if err != nil {
		log.Printf("recur: advance create for %s: %v", t.OwnerID, err)
		return nil, fmt.Errorf("advance create: %w", err)
	}
	return created, nil
}
