package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"financas/internal/core"

	_ "modernc.org/sqlite"
)

// Repository is the SQLite-backed store for cards, movements and their
// allocations. Mutating calls run inside immediate write transactions so a
// movement update and the full replacement of its allocation set are atomic.
type Repository struct {
	db *sql.DB
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// _txlock=immediate makes write transactions take the lock at BEGIN,
	// serializing concurrent writers instead of failing mid-transaction.
	dsn := dbPath + "?_pragma=foreign_keys(1)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListCards returns all cards ordered by bank then holder.
func (r *Repository) ListCards(ctx context.Context) ([]core.Card, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, bank, holder, last4, default_tag, active, created_at, updated_at
		FROM cards ORDER BY bank, holder, id`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []core.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

// GetCard returns one card by id.
func (r *Repository) GetCard(ctx context.Context, id int64) (core.Card, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, bank, holder, last4, default_tag, active, created_at, updated_at
		FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Card{}, fmt.Errorf("get card %d: %w", id, core.ErrCardNotFound)
	}
	if err != nil {
		return core.Card{}, fmt.Errorf("get card %d: %w", id, err)
	}
	return c, nil
}

// SaveCard inserts the card when ID is zero, otherwise updates it.
func (r *Repository) SaveCard(ctx context.Context, c core.Card) (core.Card, error) {
	if err := c.Validate(); err != nil {
		return core.Card{}, fmt.Errorf("validate card: %w", err)
	}
	now := time.Now().UTC()

	if c.ID == 0 {
		c.CreatedAt = now
		c.UpdatedAt = now
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO cards (bank, holder, last4, default_tag, active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			c.Bank, c.Holder, c.Last4, string(c.DefaultTag), boolToInt(c.Active),
			formatTime(now), formatTime(now))
		if err != nil {
			return core.Card{}, fmt.Errorf("insert card: %w", err)
		}
		c.ID, err = res.LastInsertId()
		if err != nil {
			return core.Card{}, fmt.Errorf("insert card id: %w", err)
		}
		slog.InfoContext(ctx, "Card saved", "id", c.ID, "bank", c.Bank, "holder", c.Holder)
		return c, nil
	}

	c.UpdatedAt = now
	res, err := r.db.ExecContext(ctx, `
		UPDATE cards SET bank = ?, holder = ?, last4 = ?, default_tag = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		c.Bank, c.Holder, c.Last4, string(c.DefaultTag), boolToInt(c.Active),
		formatTime(now), c.ID)
	if err != nil {
		return core.Card{}, fmt.Errorf("update card %d: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Card{}, fmt.Errorf("update card %d: %w", c.ID, core.ErrRowNotFound)
	}
	return c, nil
}

// DeleteCard removes a card; movements and allocations cascade.
func (r *Repository) DeleteCard(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete card %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete card %d: %w", id, core.ErrRowNotFound)
	}
	slog.InfoContext(ctx, "Card deleted", "id", id)
	return nil
}

// ListMovements returns all movements joined with their card and
// allocations, most recent first.
func (r *Repository) ListMovements(ctx context.Context) ([]core.Movement, error) {
	return r.listMovements(ctx, "", nil)
}

// ListMovementsByCard returns one card's movements, most recent first.
func (r *Repository) ListMovementsByCard(ctx context.Context, cardID int64) ([]core.Movement, error) {
	return r.listMovements(ctx, "WHERE m.card_id = ?", []any{cardID})
}

func (r *Repository) listMovements(ctx context.Context, where string, args []any) ([]core.Movement, error) {
	query := fmt.Sprintf(`
		SELECT m.id, m.card_id, m.tx_date, m.description, m.amount_cents,
		       m.installment_total, m.installment_num, m.tx_key, m.origin,
		       m.status, m.month_ref, m.note, m.created_at, m.updated_at,
		       c.id, c.bank, c.holder, c.last4, c.default_tag, c.active, c.created_at, c.updated_at
		FROM movements m
		JOIN cards c ON c.id = m.card_id
		%s
		ORDER BY m.tx_date DESC, m.created_at DESC, m.id DESC`, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	var movements []core.Movement
	index := map[int64]int{}
	for rows.Next() {
		var (
			m                 core.Movement
			c                 core.Card
			txDate            string
			mCreated, mUpdate string
			cCreated, cUpdate string
			active            int64
		)
		err := rows.Scan(&m.ID, &m.CardID, &txDate, &m.Description, &m.Amount.Cents,
			&m.InstallmentTotal, &m.InstallmentNum, &m.TxKey, &m.Origin,
			&m.Status, &m.MonthRef, &m.Note, &mCreated, &mUpdate,
			&c.ID, &c.Bank, &c.Holder, &c.Last4, &c.DefaultTag, &active, &cCreated, &cUpdate)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Date, _ = core.ParseDate(txDate)
		m.CreatedAt = parseTime(mCreated)
		m.UpdatedAt = parseTime(mUpdate)
		c.Active = active != 0
		c.CreatedAt = parseTime(cCreated)
		c.UpdatedAt = parseTime(cUpdate)
		m.Card = &c
		index[m.ID] = len(movements)
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate movements: %w", err)
	}
	if len(movements) == 0 {
		return movements, nil
	}

	if err := r.attachAllocations(ctx, movements, index); err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *Repository) attachAllocations(ctx context.Context, movements []core.Movement, index map[int64]int) error {
	ids := make([]any, 0, len(movements))
	placeholders := make([]string, 0, len(movements))
	for _, m := range movements {
		ids = append(ids, m.ID)
		placeholders = append(placeholders, "?")
	}

	query := fmt.Sprintf(`
		SELECT id, movement_id, tag, amount_cents
		FROM allocations WHERE movement_id IN (%s) ORDER BY id`,
		strings.Join(placeholders, ","))
	rows, err := r.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a core.Allocation
		if err := rows.Scan(&a.ID, &a.MovementID, &a.Tag, &a.Amount.Cents); err != nil {
			return fmt.Errorf("scan allocation: %w", err)
		}
		if i, ok := index[a.MovementID]; ok {
			movements[i].Allocations = append(movements[i].Allocations, a)
		}
	}
	return rows.Err()
}

// SaveMovement inserts or updates a movement and replaces its allocation
// set, atomically. A missing card is core.ErrCardNotFound; an update of a
// missing movement is core.ErrRowNotFound.
func (r *Repository) SaveMovement(ctx context.Context, m core.Movement) (core.Movement, error) {
	if err := m.Validate(); err != nil {
		return core.Movement{}, fmt.Errorf("validate movement: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Movement{}, fmt.Errorf("begin save movement: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM cards WHERE id = ?`, m.CardID).Scan(&exists); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Movement{}, fmt.Errorf("save movement for card %d: %w", m.CardID, core.ErrCardNotFound)
		}
		return core.Movement{}, fmt.Errorf("check card %d: %w", m.CardID, err)
	}

	now := time.Now().UTC()
	m.UpdatedAt = now
	if m.TxKey == "" {
		m.TxKey = core.TxKey(m.CardID, m.Date, m.Description, m.Amount, m.InstallmentTotal, m.InstallmentNum)
	}
	if m.MonthRef == "" {
		m.MonthRef = m.Date.MonthRef()
	}

	if m.ID == 0 {
		m.CreatedAt = now
		res, err := tx.ExecContext(ctx, `
			INSERT INTO movements (card_id, tx_date, description, amount_cents,
				installment_total, installment_num, tx_key, origin, status,
				month_ref, note, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.CardID, m.Date.String(), m.Description, m.Amount.Cents,
			normInstallment(m.InstallmentTotal), normInstallment(m.InstallmentNum),
			m.TxKey, string(m.Origin), string(m.Status),
			m.MonthRef, m.Note, formatTime(now), formatTime(now))
		if err != nil {
			return core.Movement{}, fmt.Errorf("insert movement: %w", err)
		}
		m.ID, err = res.LastInsertId()
		if err != nil {
			return core.Movement{}, fmt.Errorf("insert movement id: %w", err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			UPDATE movements SET card_id = ?, tx_date = ?, description = ?,
				amount_cents = ?, installment_total = ?, installment_num = ?,
				tx_key = ?, origin = ?, status = ?, month_ref = ?, note = ?,
				updated_at = ?
			WHERE id = ?`,
			m.CardID, m.Date.String(), m.Description,
			m.Amount.Cents, normInstallment(m.InstallmentTotal), normInstallment(m.InstallmentNum),
			m.TxKey, string(m.Origin), string(m.Status), m.MonthRef, m.Note,
			formatTime(now), m.ID)
		if err != nil {
			return core.Movement{}, fmt.Errorf("update movement %d: %w", m.ID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return core.Movement{}, fmt.Errorf("update movement %d: %w", m.ID, core.ErrRowNotFound)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM allocations WHERE movement_id = ?`, m.ID); err != nil {
			return core.Movement{}, fmt.Errorf("clear allocations for movement %d: %w", m.ID, err)
		}
	}

	for i := range m.Allocations {
		a := &m.Allocations[i]
		a.MovementID = m.ID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO allocations (movement_id, tag, amount_cents) VALUES (?, ?, ?)`,
			a.MovementID, string(a.Tag), a.Amount.Cents)
		if err != nil {
			return core.Movement{}, fmt.Errorf("insert allocation for movement %d: %w", m.ID, err)
		}
		a.ID, _ = res.LastInsertId()
	}

	if err := tx.Commit(); err != nil {
		return core.Movement{}, fmt.Errorf("commit save movement: %w", err)
	}

	slog.InfoContext(ctx, "Movement saved",
		"id", m.ID,
		"card_id", m.CardID,
		"description", m.Description,
		"amount_cents", m.Amount.Cents,
		"status", string(m.Status))
	return m, nil
}

// DeleteMovement removes a movement; its allocations cascade.
func (r *Repository) DeleteMovement(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM movements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete movement %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("delete movement %d: %w", id, core.ErrRowNotFound)
	}
	slog.InfoContext(ctx, "Movement deleted", "id", id)
	return nil
}

// RealignMonthRef moves the given movements to a new billing-month bucket.
// Returns how many rows changed.
func (r *Repository) RealignMonthRef(ctx context.Context, ids []int64, monthRef string) (int64, error) {
	if _, _, err := core.ParseMonthRef(monthRef); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	args := make([]any, 0, len(ids)+2)
	args = append(args, monthRef, formatTime(time.Now().UTC()))
	placeholders := make([]string, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
		placeholders = append(placeholders, "?")
	}

	query := fmt.Sprintf(`UPDATE movements SET month_ref = ?, updated_at = ? WHERE id IN (%s)`,
		strings.Join(placeholders, ","))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("realign month ref: %w", err)
	}
	n, _ := res.RowsAffected()
	slog.InfoContext(ctx, "Month ref realigned", "month_ref", monthRef, "requested", len(ids), "changed", n)
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCard(row rowScanner) (core.Card, error) {
	var (
		c                core.Card
		active           int64
		created, updated string
	)
	err := row.Scan(&c.ID, &c.Bank, &c.Holder, &c.Last4, &c.DefaultTag, &active, &created, &updated)
	if err != nil {
		return core.Card{}, err
	}
	c.Active = active != 0
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return c, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func normInstallment(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
