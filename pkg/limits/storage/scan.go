package storage

import (
	"database/sql"
	"time"

	"github.com/mercator-hq/quota-gate/pkg/limits/plans"
)

// row is satisfied by both *sql.Row and *sql.Rows, letting the scan helpers
// below serve single-record and list queries alike.
type row interface {
	Scan(dest ...any) error
}

func scanPlanRow(r row) (*plans.SubscriptionPlan, error) {
	var (
		p            plans.SubscriptionPlan
		windowLimit  sql.NullInt64
		windowSecs   sql.NullInt64
		activeInt    int64
		expiresAt    sql.NullString
		createdAtStr string
	)
	if err := r.Scan(&p.ID, &p.Name, &p.MonthlyLimit, &windowLimit, &windowSecs,
		&activeInt, &expiresAt, &createdAtStr); err != nil {
		return nil, err
	}
	p.WindowLimit = windowLimit.Int64
	p.WindowSeconds = windowSecs.Int64
	p.Active = activeInt != 0
	if expiresAt.Valid {
		t, err := time.Parse(time.RFC3339, expiresAt.String)
		if err != nil {
			return nil, err
		}
		p.ExpiresAt = &t
	}
	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, err
	}
	p.CreatedAt = createdAt
	return &p, nil
}

// scanPlan wraps scanPlanRow for queries expected to return exactly zero or
// one row (sql.ErrNoRows maps to (nil, nil)).
func scanPlan(r *sql.Row) (*plans.SubscriptionPlan, error) {
	p, err := scanPlanRow(r)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanClientRow(r row) (*plans.Client, error) {
	var (
		c            plans.Client
		activeInt    int64
		createdAtStr string
	)
	if err := r.Scan(&c.ID, &c.Name, &c.APIKey, &c.PlanID, &activeInt, &createdAtStr); err != nil {
		return nil, err
	}
	c.Active = activeInt != 0
	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = createdAt
	return &c, nil
}

func scanClient(r *sql.Row) (*plans.Client, error) {
	c, err := scanClientRow(r)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanRuleRow(r row) (*plans.RateLimitRule, error) {
	var (
		rule         plans.RateLimitRule
		kind         string
		windowSecs   sql.NullInt64
		activeInt    int64
		createdAtStr string
	)
	if err := r.Scan(&rule.ID, &kind, &rule.LimitValue, &windowSecs, &activeInt, &createdAtStr); err != nil {
		return nil, err
	}
	rule.Kind = plans.RuleKind(kind)
	rule.GlobalWindowSeconds = windowSecs.Int64
	rule.Active = activeInt != 0
	createdAt, err := time.Parse(time.RFC3339, createdAtStr)
	if err != nil {
		return nil, err
	}
	rule.CreatedAt = createdAt
	return &rule, nil
}

func scanRule(r *sql.Row) (*plans.RateLimitRule, error) {
	rule, err := scanRuleRow(r)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func nullableInt(v int64) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
