package recur

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"whattodo/pkg/todo"
)

// TestDeriveRulesGrouping verifies that todos sharing content, category
// and recurring day collapse into one rule, in first-seen order.
func TestDeriveRulesGrouping(t *testing.T) {
	todos := []todo.Todo{
		{Content: "Pay rent", Recurring: true, RecurringDay: 1, DueDate: "2024-06-01"},
		{Content: "Backup", CategoryID: "work", Recurring: true, RecurringDay: LastDay, DueDate: "2024-06-30", Notes: "external drive"},
		{Content: "Pay rent", Recurring: true, RecurringDay: 1, DueDate: "2024-07-01"},
	}

	want := []Rule{
		{Content: "Pay rent", Day: 1, MinDate: "2024-06-01"},
		{Content: "Backup", CategoryID: "work", Day: LastDay, MinDate: "2024-06-30", Notes: "external drive"},
	}
	got := DeriveRules(todos)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

// TestDeriveRulesMinDate verifies the rule floor is the earliest due
// date among matching todos, whichever order they appear in.
func TestDeriveRulesMinDate(t *testing.T) {
	todos := []todo.Todo{
		{Content: "Pay rent", Recurring: true, RecurringDay: 1, DueDate: "2024-08-01"},
		{Content: "Pay rent", Recurring: true, RecurringDay: 1, DueDate: "2024-06-01"},
		{Content: "Pay rent", Recurring: true, RecurringDay: 1, DueDate: "2024-07-01"},
	}
	rules := DeriveRules(todos)
	if len(rules) != 1 {
		t.Fatalf("want 1 rule, got %d", len(rules))
	}
	if rules[0].MinDate != "2024-06-01" {
		t.Errorf("MinDate: want 2024-06-01, got %s", rules[0].MinDate)
	}
}

// TestDeriveRulesNotesLastWins: the notes carried on the rule come from
// the last matching todo.
func TestDeriveRulesNotesLastWins(t *testing.T) {
	todos := []todo.Todo{
		{Content: "Backup", Recurring: true, RecurringDay: 5, Notes: "old notes"},
		{Content: "Backup", Recurring: true, RecurringDay: 5, Notes: "new notes"},
	}
	rules := DeriveRules(todos)
	if len(rules) != 1 {
		t.Fatalf("want 1 rule, got %d", len(rules))
	}
	if rules[0].Notes != "new notes" {
		t.Errorf("Notes: want %q, got %q", "new notes", rules[0].Notes)
	}
}

// TestDeriveRulesSkipsDeletedAndNonRecurring: deleted instances never
// define rules (they only count during the existence check), and
// non-recurring or day-less todos don't either.
func TestDeriveRulesSkipsDeletedAndNonRecurring(t *testing.T) {
	todos := []todo.Todo{
		{Content: "Trashed", Recurring: true, RecurringDay: 1, Deleted: true},
		{Content: "Plain", Recurring: false},
		{Content: "No day", Recurring: true, RecurringDay: 0},
	}
	if rules := DeriveRules(todos); len(rules) != 0 {
		t.Errorf("want 0 rules, got %d: %+v", len(rules), rules)
	}
}

// TestDeriveRulesDistinctCategories: same content under different
// categories is two distinct rules.
func TestDeriveRulesDistinctCategories(t *testing.T) {
	todos := []todo.Todo{
		{Content: "Review", CategoryID: "work", Recurring: true, RecurringDay: 10},
		{Content: "Review", CategoryID: "home", Recurring: true, RecurringDay: 10},
	}
	if rules := DeriveRules(todos); len(rules) != 2 {
		t.Errorf("want 2 rules, got %d", len(rules))
	}
}
