package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"sismobi/internal/storage"
)

const maxListLimit = 500

// listQuery holds the filters and paging accepted by the list endpoints.
// Empty filters match everything; a zero limit returns every match.
type listQuery struct {
	Skip       int
	Limit      int
	PropertyID string
	TenantID   string
	GroupID    string
	Type       string
	Resolved   *bool
}

func (q listQuery) filtered() bool {
	return q.PropertyID != "" || q.TenantID != "" || q.GroupID != "" || q.Type != "" || q.Resolved != nil
}

func parseListQuery(v url.Values) (listQuery, error) {
	q := listQuery{
		PropertyID: v.Get("property_id"),
		TenantID:   v.Get("tenant_id"),
		GroupID:    v.Get("group_id"),
		Type:       v.Get("type"),
	}

	var err error
	if q.Skip, err = intParam(v, "skip", 0, -1); err != nil {
		return q, err
	}
	if q.Limit, err = intParam(v, "limit", 1, maxListLimit); err != nil {
		return q, err
	}
	if raw := v.Get("resolved"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return q, errors.New("resolved must be true or false")
		}
		q.Resolved = &b
	}
	return q, nil
}

// intParam reads an optional integer in [lo, hi]; hi < 0 means unbounded.
// A missing parameter yields zero.
func intParam(v url.Values, name string, lo, hi int) (int, error) {
	raw := v.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || (hi >= 0 && n > hi) {
		if hi < 0 {
			return 0, fmt.Errorf("%s must be an integer >= %d", name, lo)
		}
		return 0, fmt.Errorf("%s must be an integer between %d and %d", name, lo, hi)
	}
	return n, nil
}

// recordHead is the subset of fields the list filters look at.
type recordHead struct {
	PropertyID string `json:"propertyId"`
	TenantID   string `json:"tenantId"`
	GroupID    string `json:"groupId"`
	Type       string `json:"type"`
	Resolved   bool   `json:"resolved"`
}

func (q listQuery) match(h recordHead) bool {
	switch {
	case q.PropertyID != "" && h.PropertyID != q.PropertyID:
		return false
	case q.TenantID != "" && h.TenantID != q.TenantID:
		return false
	case q.GroupID != "" && h.GroupID != q.GroupID:
		return false
	case q.Type != "" && h.Type != q.Type:
		return false
	case q.Resolved != nil && h.Resolved != *q.Resolved:
		return false
	}
	return true
}

// apply filters docs, orders alerts unresolved first and pages the result.
// It returns the page and the number of matches before paging. Records that
// cannot be read are dropped once any filter is set.
func (q listQuery) apply(collection string, docs []storage.Document) ([]json.RawMessage, int) {
	type row struct {
		body json.RawMessage
		head recordHead
	}
	rows := make([]row, 0, len(docs))
	for _, d := range docs {
		var h recordHead
		if err := json.Unmarshal(d.Body, &h); err != nil {
			if q.filtered() {
				continue
			}
		} else if !q.match(h) {
			continue
		}
		rows = append(rows, row{body: d.Body, head: h})
	}

	if collection == storage.Alerts {
		sort.SliceStable(rows, func(i, j int) bool {
			return !rows[i].head.Resolved && rows[j].head.Resolved
		})
	}

	total := len(rows)
	start := min(q.Skip, total)
	end := total
	if q.Limit > 0 {
		end = min(start+q.Limit, total)
	}

	out := make([]json.RawMessage, 0, end-start)
	for _, r := range rows[start:end] {
		out = append(out, r.body)
	}
	return out, total
}
