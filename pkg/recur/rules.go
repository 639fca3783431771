package recur

import (
	"fmt"

	"whattodo/pkg/todo"
)

// Rule is the implicit recurrence definition derived from grouping
// todos by (content, category, recurring day). Rules are not persisted;
// they are recomputed from the full task snapshot on every sync pass.
type Rule struct {
	Content    string
	CategoryID string
	Day        int

	// MinDate is the earliest due date seen among the non-deleted todos
	// matching the key. Instances dated before it are never created.
	// Empty means no floor.
	MinDate string

	// Notes carried onto generated instances; last matching todo wins.
	Notes string
}

// DeriveRules collects the distinct recurrence rules in effect from the
// full todo snapshot. Only non-deleted recurring todos with a recurring
// day contribute; deleted instances still matter later, during the
// existence check, but they do not define rules. Rules come back in
// first-seen order.
func DeriveRules(todos []todo.Todo) []Rule {
	var rules []Rule
	index := make(map[string]int)
	for _, t := range todos {
		if !t.Recurring || t.RecurringDay == 0 || t.Deleted {
			continue
		}
		key := fmt.Sprintf("%s\x00%s\x00%d", t.Content, t.CategoryID, t.RecurringDay)
		i, ok := index[key]
		if !ok {
			index[key] = len(rules)
			rules = append(rules, Rule{
				Content:    t.Content,
				CategoryID: t.CategoryID,
				Day:        t.RecurringDay,
				MinDate:    t.DueDate,
				Notes:      t.Notes,
			})
			continue
		}
		if t.DueDate != "" && rules[i].MinDate != "" && t.DueDate < rules[i].MinDate {
			rules[i].MinDate = t.DueDate
		}
		rules[i].Notes = t.Notes
	}
	return rules
}
