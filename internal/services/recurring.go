package services

import (
	"time"

	"sismobi/internal/core"
)

// InstanceID is the id of the occurrence of a recurrence chain on a given date.
func InstanceID(templateID string, on time.Time) string {
	return templateID + "@" + on.Format("2006-01-02")
}

type chain struct {
	root     string
	template *core.Transaction
	latest   *core.Transaction
}

// ProjectRecurring returns the next due occurrence of every recurrence chain.
//
// A chain is a transaction flagged recurring plus every instance whose
// TemplateID points at it. The chain's latest dated member is advanced by one
// period; the result is emitted when it falls on or before the day of now.
// Emitted ids are deterministic, and an id already present in transactions is
// never emitted again, so calling this repeatedly on merged output is safe.
// The input slice is not modified.
func ProjectRecurring(now time.Time, transactions []core.Transaction) ([]core.Transaction, core.Diagnostics) {
	var diag core.Diagnostics

	existing := make(map[string]bool, len(transactions))
	for _, t := range transactions {
		existing[t.ID] = true
	}

	var order []string
	chains := make(map[string]*chain)
	for i := range transactions {
		t := &transactions[i]
		if !t.Recurring && t.TemplateID == "" {
			continue
		}
		if t.ID == "" {
			diag.SkippedRecords++
			continue
		}
		root := t.Root()
		c, ok := chains[root]
		if !ok {
			c = &chain{root: root}
			chains[root] = c
			order = append(order, root)
		}
		if t.ID == root {
			c.template = t
		}
		if !t.Date.Valid() {
			diag.InvalidDates++
			continue
		}
		if c.latest == nil || t.Date.After(c.latest.Date.Time) {
			c.latest = t
		}
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var projected []core.Transaction
	for _, root := range order {
		c := chains[root]
		if c.latest == nil {
			continue
		}
		tmpl := c.template
		if tmpl == nil || !tmpl.Date.Valid() {
			tmpl = c.latest
		}

		advancer, err := GetPeriodAdvancer(tmpl.Frequency())
		if err != nil {
			diag.SkippedRecords++
			continue
		}

		next := advancer.Next(c.latest.Date.Time, tmpl.Date.Day())
		if core.DateOf(next).Civil(now.Location()).After(today) {
			continue
		}

		id := InstanceID(root, next)
		if existing[id] {
			continue
		}
		existing[id] = true

		projected = append(projected, core.Transaction{
			ID:          id,
			PropertyID:  tmpl.PropertyID,
			Type:        tmpl.Type,
			Amount:      tmpl.Amount,
			Date:        core.DateOf(next),
			Description: tmpl.Description,
			Category:    tmpl.Category,
			Recurring:   true,
			Recurrence:  tmpl.Recurrence,
			TemplateID:  root,
		})
	}
	return projected, diag
}
