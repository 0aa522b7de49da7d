// Package storage implements the two external stores the admission
// pipeline depends on: a durable relational store for plans, clients, and
// global rate limit rules, and a shared counter store used for atomic
// check-and-increment and subscription caching.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/mercator-hq/quota-gate/pkg/limits/plans"
)

// DurableStore persists subscription plans, clients, and global rate limit
// rules in SQLite. It is the single writer for these tables; the admission
// hot path only reads from it (on subscription-cache miss and when
// assembling global rules).
type DurableStore struct {
	db        *sql.DB
	closeOnce sync.Once

	insertPlanStmt     *sql.Stmt
	getPlanStmt        *sql.Stmt
	listPlansStmt      *sql.Stmt
	updatePlanStmt     *sql.Stmt
	insertClientStmt   *sql.Stmt
	getClientByKey     *sql.Stmt
	getClientByID      *sql.Stmt
	listClientsStmt    *sql.Stmt
	updateClientActive *sql.Stmt
	insertRuleStmt     *sql.Stmt
	listRulesStmt      *sql.Stmt
	listActiveRules    *sql.Stmt
	getRuleStmt        *sql.Stmt
	updateRuleActive   *sql.Stmt
}

// DurableStoreConfig configures the SQLite-backed durable store.
type DurableStoreConfig struct {
	Path         string
	MaxOpenConns int
	MaxIdleConns int
	WALMode      bool
	BusyTimeout  time.Duration
}

// NewDurableStore opens (creating if necessary) the SQLite database at
// cfg.Path and initializes its schema. WAL checkpointing is the
// Housekeeper's job, on the operator's cron schedule.
func NewDurableStore(cfg DurableStoreConfig) (*DurableStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("durable store: path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	journalMode := "DELETE"
	if cfg.WALMode {
		journalMode = "WAL"
	}
	dsn := fmt.Sprintf("%s?_journal_mode=%s&_busy_timeout=%d&_synchronous=NORMAL",
		cfg.Path, journalMode, cfg.BusyTimeout.Milliseconds())

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("durable store: open: %w", err)
	}

	// SQLite only supports a single writer; mirror that in the pool.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	store := &DurableStore{db: db}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("durable store: schema: %w", err)
	}
	if err := store.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("durable store: prepare: %w", err)
	}

	return store, nil
}

func (s *DurableStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS plans (
		id TEXT PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		monthly_limit INTEGER NOT NULL,
		window_limit INTEGER,
		window_seconds INTEGER,
		active INTEGER NOT NULL,
		expires_at TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		api_key TEXT UNIQUE NOT NULL,
		plan_id TEXT NOT NULL REFERENCES plans(id),
		active INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_clients_plan_id ON clients(plan_id);

	CREATE TABLE IF NOT EXISTS rate_limit_rules (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL CHECK (kind = 'GLOBAL'),
		limit_value INTEGER NOT NULL,
		global_window_seconds INTEGER,
		active INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *DurableStore) prepareStatements() error {
	var err error

	if s.insertPlanStmt, err = s.db.Prepare(`
		INSERT INTO plans (id, name, monthly_limit, window_limit, window_seconds, active, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`); err != nil {
		return err
	}
	if s.getPlanStmt, err = s.db.Prepare(`
		SELECT id, name, monthly_limit, window_limit, window_seconds, active, expires_at, created_at
		FROM plans WHERE id = ?`); err != nil {
		return err
	}
	if s.listPlansStmt, err = s.db.Prepare(`
		SELECT id, name, monthly_limit, window_limit, window_seconds, active, expires_at, created_at
		FROM plans ORDER BY created_at`); err != nil {
		return err
	}
	if s.updatePlanStmt, err = s.db.Prepare(`
		UPDATE plans SET name = ?, monthly_limit = ?, window_limit = ?, window_seconds = ?, active = ?, expires_at = ?
		WHERE id = ?`); err != nil {
		return err
	}
	if s.insertClientStmt, err = s.db.Prepare(`
		INSERT INTO clients (id, name, api_key, plan_id, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`); err != nil {
		return err
	}
	if s.getClientByKey, err = s.db.Prepare(`
		SELECT id, name, api_key, plan_id, active, created_at FROM clients WHERE api_key = ?`); err != nil {
		return err
	}
	if s.getClientByID, err = s.db.Prepare(`
		SELECT id, name, api_key, plan_id, active, created_at FROM clients WHERE id = ?`); err != nil {
		return err
	}
	if s.listClientsStmt, err = s.db.Prepare(`
		SELECT id, name, api_key, plan_id, active, created_at FROM clients ORDER BY created_at`); err != nil {
		return err
	}
	if s.updateClientActive, err = s.db.Prepare(`
		UPDATE clients SET active = ? WHERE id = ?`); err != nil {
		return err
	}
	if s.insertRuleStmt, err = s.db.Prepare(`
		INSERT INTO rate_limit_rules (id, kind, limit_value, global_window_seconds, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`); err != nil {
		return err
	}
	if s.listRulesStmt, err = s.db.Prepare(`
		SELECT id, kind, limit_value, global_window_seconds, active, created_at
		FROM rate_limit_rules ORDER BY created_at`); err != nil {
		return err
	}
	if s.listActiveRules, err = s.db.Prepare(`
		SELECT id, kind, limit_value, global_window_seconds, active, created_at
		FROM rate_limit_rules WHERE active = 1 ORDER BY created_at`); err != nil {
		return err
	}
	if s.getRuleStmt, err = s.db.Prepare(`
		SELECT id, kind, limit_value, global_window_seconds, active, created_at
		FROM rate_limit_rules WHERE id = ?`); err != nil {
		return err
	}
	if s.updateRuleActive, err = s.db.Prepare(`
		UPDATE rate_limit_rules SET active = ? WHERE id = ?`); err != nil {
		return err
	}
	return nil
}

// CreatePlan inserts a new subscription plan, assigning it a fresh id.
func (s *DurableStore) CreatePlan(ctx context.Context, p *plans.SubscriptionPlan) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := s.insertPlanStmt.ExecContext(ctx,
		p.ID, p.Name, p.MonthlyLimit, nullableInt(p.WindowLimit), nullableInt(p.WindowSeconds),
		boolToInt(p.Active), nullableTime(p.ExpiresAt), p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("durable store: create plan: %w", err)
	}
	return nil
}

// GetPlan fetches a plan by id, returning (nil, nil) if it does not exist.
func (s *DurableStore) GetPlan(ctx context.Context, id string) (*plans.SubscriptionPlan, error) {
	return scanPlan(s.getPlanStmt.QueryRowContext(ctx, id))
}

// ListPlans returns every plan in creation order.
func (s *DurableStore) ListPlans(ctx context.Context) ([]*plans.SubscriptionPlan, error) {
	rows, err := s.listPlansStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("durable store: list plans: %w", err)
	}
	defer rows.Close()

	var out []*plans.SubscriptionPlan
	for rows.Next() {
		p, err := scanPlanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePlan overwrites a plan's mutable fields. Callers are responsible
// for invalidating the subscription cache and counters of affected clients
// afterwards.
func (s *DurableStore) UpdatePlan(ctx context.Context, p *plans.SubscriptionPlan) error {
	res, err := s.updatePlanStmt.ExecContext(ctx,
		p.Name, p.MonthlyLimit, nullableInt(p.WindowLimit), nullableInt(p.WindowSeconds),
		boolToInt(p.Active), nullableTime(p.ExpiresAt), p.ID)
	if err != nil {
		return fmt.Errorf("durable store: update plan: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateClient inserts a new client, assigning it a fresh id.
func (s *DurableStore) CreateClient(ctx context.Context, c *plans.Client) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := s.insertClientStmt.ExecContext(ctx,
		c.ID, c.Name, c.APIKey, c.PlanID, boolToInt(c.Active), c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("durable store: create client: %w", err)
	}
	return nil
}

// GetClientByAPIKey resolves a client by its API key, returning (nil, nil)
// if no client has that key.
func (s *DurableStore) GetClientByAPIKey(ctx context.Context, apiKey string) (*plans.Client, error) {
	return scanClient(s.getClientByKey.QueryRowContext(ctx, apiKey))
}

// GetClientByID fetches a client by id, returning (nil, nil) if absent.
func (s *DurableStore) GetClientByID(ctx context.Context, id string) (*plans.Client, error) {
	return scanClient(s.getClientByID.QueryRowContext(ctx, id))
}

// ListClients returns every client in creation order.
func (s *DurableStore) ListClients(ctx context.Context) ([]*plans.Client, error) {
	rows, err := s.listClientsStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("durable store: list clients: %w", err)
	}
	defer rows.Close()

	var out []*plans.Client
	for rows.Next() {
		c, err := scanClientRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetClientActive flips a client's active flag. Callers invalidate the
// client's subscription cache entry afterwards.
func (s *DurableStore) SetClientActive(ctx context.Context, id string, active bool) error {
	res, err := s.updateClientActive.ExecContext(ctx, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("durable store: set client active: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CreateRule inserts a new global rate limit rule, assigning it a fresh id.
func (s *DurableStore) CreateRule(ctx context.Context, r *plans.RateLimitRule) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.Kind == "" {
		r.Kind = plans.GlobalRuleKind
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.insertRuleStmt.ExecContext(ctx,
		r.ID, string(r.Kind), r.LimitValue, nullableInt(r.GlobalWindowSeconds),
		boolToInt(r.Active), r.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("durable store: create rule: %w", err)
	}
	return nil
}

// ListActiveRules returns every active GLOBAL rule, used by
// effective-limit assembly.
func (s *DurableStore) ListActiveRules(ctx context.Context) ([]*plans.RateLimitRule, error) {
	rows, err := s.listActiveRules.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("durable store: list active rules: %w", err)
	}
	defer rows.Close()

	var out []*plans.RateLimitRule
	for rows.Next() {
		r, err := scanRuleRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListRules returns every rule, active or not, in creation order.
func (s *DurableStore) ListRules(ctx context.Context) ([]*plans.RateLimitRule, error) {
	rows, err := s.listRulesStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("durable store: list rules: %w", err)
	}
	defer rows.Close()

	var out []*plans.RateLimitRule
	for rows.Next() {
		r, err := scanRuleRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRule fetches a rule by id, returning (nil, nil) if absent.
func (s *DurableStore) GetRule(ctx context.Context, id string) (*plans.RateLimitRule, error) {
	return scanRule(s.getRuleStmt.QueryRowContext(ctx, id))
}

// SetRuleActive flips a rule's active flag, used by the admin surface's
// PUT /api/limits/{id}.
func (s *DurableStore) SetRuleActive(ctx context.Context, id string, active bool) error {
	_, err := s.updateRuleActive.ExecContext(ctx, boolToInt(active), id)
	if err != nil {
		return fmt.Errorf("durable store: set rule active: %w", err)
	}
	return nil
}

// Close releases the database handle. Close is idempotent.
func (s *DurableStore) Close() error {
	var closeErr error
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{
			s.insertPlanStmt, s.getPlanStmt, s.listPlansStmt, s.updatePlanStmt,
			s.insertClientStmt, s.getClientByKey, s.getClientByID, s.listClientsStmt, s.updateClientActive,
			s.insertRuleStmt, s.listRulesStmt, s.listActiveRules, s.getRuleStmt, s.updateRuleActive,
		} {
			if stmt != nil {
				stmt.Close()
			}
		}
		if s.db != nil {
			_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			closeErr = s.db.Close()
		}
	})
	return closeErr
}

// Checkpoint runs a single passive WAL checkpoint, driven by the
// cron-scheduled Housekeeper.
func (s *DurableStore) Checkpoint() error {
	_, err := s.db.Exec("PRAGMA wal_checkpoint(PASSIVE)")
	return err
}

// Ping verifies the database connection is alive, used by the readiness
// check.
func (s *DurableStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
