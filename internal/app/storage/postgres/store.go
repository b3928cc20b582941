// Package postgres implements the storage interfaces backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/matka-platform/result-engine/internal/app/domain/bet"
	"github.com/matka-platform/result-engine/internal/app/domain/market"
	"github.com/matka-platform/result-engine/internal/app/domain/result"
	"github.com/matka-platform/result-engine/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ storage.MarketStore = (*Store)(nil)
var _ storage.ResultStore = (*Store)(nil)
var _ storage.BetStore = (*Store)(nil)

// New creates a Store using the provided database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to the database and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// --- MarketStore ------------------------------------------------------------

func (s *Store) CreateMarket(ctx context.Context, m market.Market) (market.Market, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO markets (id, name, open_time, close_time, timezone, off_days, active, auto_declare, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, m.ID, m.Name, m.OpenTime, m.CloseTime, m.Timezone, pq.Array(m.OffDays), m.Active, m.AutoDeclare, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return market.Market{}, err
	}
	return m, nil
}

func (s *Store) UpdateMarket(ctx context.Context, m market.Market) (market.Market, error) {
	existing, err := s.GetMarket(ctx, m.ID)
	if err != nil {
		return market.Market{}, err
	}

	m.CreatedAt = existing.CreatedAt
	m.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE markets
		SET name = $2, open_time = $3, close_time = $4, timezone = $5, off_days = $6, active = $7, auto_declare = $8, updated_at = $9
		WHERE id = $1
	`, m.ID, m.Name, m.OpenTime, m.CloseTime, m.Timezone, pq.Array(m.OffDays), m.Active, m.AutoDeclare, m.UpdatedAt)
	if err != nil {
		return market.Market{}, err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return market.Market{}, fmt.Errorf("market %s: %w", m.ID, storage.ErrNotFound)
	}
	return m, nil
}

func (s *Store) GetMarket(ctx context.Context, id string) (market.Market, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, open_time, close_time, timezone, off_days, active, auto_declare, created_at, updated_at
		FROM markets
		WHERE id = $1
	`, id)

	m, err := scanMarket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return market.Market{}, fmt.Errorf("market %s: %w", id, storage.ErrNotFound)
	}
	return m, err
}

func (s *Store) ListMarkets(ctx context.Context) ([]market.Market, error) {
	return s.listMarkets(ctx, `
		SELECT id, name, open_time, close_time, timezone, off_days, active, auto_declare, created_at, updated_at
		FROM markets
		ORDER BY created_at
	`)
}

func (s *Store) ListAutoDeclareMarkets(ctx context.Context) ([]market.Market, error) {
	return s.listMarkets(ctx, `
		SELECT id, name, open_time, close_time, timezone, off_days, active, auto_declare, created_at, updated_at
		FROM markets
		WHERE active AND auto_declare
		ORDER BY created_at
	`)
}

func (s *Store) listMarkets(ctx context.Context, query string) ([]market.Market, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []market.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMarket(row rowScanner) (market.Market, error) {
	var m market.Market
	if err := row.Scan(&m.ID, &m.Name, &m.OpenTime, &m.CloseTime, &m.Timezone,
		pq.Array(&m.OffDays), &m.Active, &m.AutoDeclare, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return market.Market{}, err
	}
	return m, nil
}

// --- ResultStore ------------------------------------------------------------

// EnsureDayResult inserts the (market, day) row if missing and returns the
// current row either way. ON CONFLICT DO NOTHING keeps the first-writer row
// when two ticks race; the loser falls through to the fetch.
func (s *Store) EnsureDayResult(ctx context.Context, marketID, day string) (result.MarketDayResult, error) {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO market_day_results (id, market_id, day, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (market_id, day) DO NOTHING
	`, uuid.NewString(), marketID, day, now, now)
	if err != nil {
		return result.MarketDayResult{}, err
	}
	return s.GetDayResult(ctx, marketID, day)
}

func (s *Store) GetDayResult(ctx context.Context, marketID, day string) (result.MarketDayResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, market_id, day, open_number, main_number, close_number, open_declared_at, close_declared_at, created_at, updated_at
		FROM market_day_results
		WHERE market_id = $1 AND day = $2
	`, marketID, day)

	r, err := scanDayResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return result.MarketDayResult{}, fmt.Errorf("result for market %s on %s: %w", marketID, day, storage.ErrNotFound)
	}
	return r, err
}

// UpdateDayResult writes a declaration with a phase guard in the WHERE
// clause: an open write lands only while open_number is NULL, a close write
// only while open_number is set and close_number is NULL. A declared number
// is never overwritten, so two racing declarers cannot lose updates; the
// loser gets the stored row back via the re-fetch.
func (s *Store) UpdateDayResult(ctx context.Context, r result.MarketDayResult) (result.MarketDayResult, error) {
	r.UpdatedAt = time.Now().UTC()

	var (
		res sql.Result
		err error
	)
	if r.Close == "" {
		res, err = s.db.ExecContext(ctx, `
			UPDATE market_day_results
			SET open_number = NULLIF($3, ''), main_number = NULLIF($4, ''),
			    open_declared_at = $5, updated_at = $6
			WHERE market_id = $1 AND day = $2 AND open_number IS NULL
		`, r.MarketID, r.Day, r.Open, r.Main, r.OpenDeclaredAt, r.UpdatedAt)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE market_day_results
			SET main_number = NULLIF($3, ''), close_number = NULLIF($4, ''),
			    close_declared_at = $5, updated_at = $6
			WHERE market_id = $1 AND day = $2 AND open_number IS NOT NULL AND close_number IS NULL
		`, r.MarketID, r.Day, r.Main, r.Close, r.CloseDeclaredAt, r.UpdatedAt)
	}
	if err != nil {
		return result.MarketDayResult{}, err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return s.GetDayResult(ctx, r.MarketID, r.Day)
	}
	return r, nil
}

func (s *Store) ListDayResults(ctx context.Context, marketID string, limit int) ([]result.MarketDayResult, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market_id, day, open_number, main_number, close_number, open_declared_at, close_declared_at, created_at, updated_at
		FROM market_day_results
		WHERE market_id = $1
		ORDER BY day DESC
		LIMIT $2
	`, marketID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []result.MarketDayResult
	for rows.Next() {
		r, err := scanDayResult(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanDayResult(row rowScanner) (result.MarketDayResult, error) {
	var (
		r                    result.MarketDayResult
		open, main, closeNum sql.NullString
	)
	if err := row.Scan(&r.ID, &r.MarketID, &r.Day, &open, &main, &closeNum,
		&r.OpenDeclaredAt, &r.CloseDeclaredAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return result.MarketDayResult{}, err
	}
	r.Open = open.String
	r.Main = main.String
	r.Close = closeNum.String
	return r, nil
}

// --- BetStore ---------------------------------------------------------------

func (s *Store) CreateBet(ctx context.Context, b bet.Bet) (bet.Bet, error) {
	if b.MarketID == "" {
		return bet.Bet{}, errors.New("market_id required")
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Outcome == "" {
		b.Outcome = bet.OutcomeUnsettled
	}

	selectionsJSON, err := json.Marshal(b.Selections)
	if err != nil {
		return bet.Bet{}, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bets (id, player_id, market_id, day, bet_type, selections, outcome, win_amount, placed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, b.ID, b.PlayerID, b.MarketID, b.Day, b.Type, selectionsJSON, b.Outcome, b.WinAmount, b.PlacedAt, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return bet.Bet{}, err
	}
	return b, nil
}

func (s *Store) UpdateBet(ctx context.Context, b bet.Bet) (bet.Bet, error) {
	b.UpdatedAt = time.Now().UTC()

	selectionsJSON, err := json.Marshal(b.Selections)
	if err != nil {
		return bet.Bet{}, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE bets
		SET selections = $2, outcome = $3, win_amount = $4, settled_at = $5, updated_at = $6
		WHERE id = $1
	`, b.ID, selectionsJSON, b.Outcome, b.WinAmount, b.SettledAt, b.UpdatedAt)
	if err != nil {
		return bet.Bet{}, err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return bet.Bet{}, fmt.Errorf("bet %s: %w", b.ID, storage.ErrNotFound)
	}
	return b, nil
}

func (s *Store) GetBet(ctx context.Context, id string) (bet.Bet, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, player_id, market_id, day, bet_type, selections, outcome, win_amount, placed_at, settled_at, created_at, updated_at
		FROM bets
		WHERE id = $1
	`, id)

	b, err := scanBet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return bet.Bet{}, fmt.Errorf("bet %s: %w", id, storage.ErrNotFound)
	}
	return b, err
}

func (s *Store) ListUnsettledBets(ctx context.Context, marketID, day string, types []bet.Type) ([]bet.Bet, error) {
	typeStrings := make([]string, len(types))
	for i, t := range types {
		typeStrings[i] = string(t)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, market_id, day, bet_type, selections, outcome, win_amount, placed_at, settled_at, created_at, updated_at
		FROM bets
		WHERE market_id = $1 AND day = $2 AND outcome = $3 AND bet_type = ANY($4)
		ORDER BY placed_at
	`, marketID, day, bet.OutcomeUnsettled, pq.Array(typeStrings))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBets(rows)
}

func (s *Store) ListBetsByMarketDay(ctx context.Context, marketID, day string) ([]bet.Bet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, market_id, day, bet_type, selections, outcome, win_amount, placed_at, settled_at, created_at, updated_at
		FROM bets
		WHERE market_id = $1 AND day = $2
		ORDER BY placed_at
	`, marketID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBets(rows)
}

func (s *Store) ListBetsByPlayer(ctx context.Context, playerID string, limit int) ([]bet.Bet, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, player_id, market_id, day, bet_type, selections, outcome, win_amount, placed_at, settled_at, created_at, updated_at
		FROM bets
		WHERE player_id = $1
		ORDER BY placed_at DESC
		LIMIT $2
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectBets(rows)
}

func collectBets(rows *sql.Rows) ([]bet.Bet, error) {
	var out []bet.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBet(row rowScanner) (bet.Bet, error) {
	var (
		b             bet.Bet
		selectionsRaw []byte
	)
	if err := row.Scan(&b.ID, &b.PlayerID, &b.MarketID, &b.Day, &b.Type, &selectionsRaw,
		&b.Outcome, &b.WinAmount, &b.PlacedAt, &b.SettledAt, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return bet.Bet{}, err
	}
	if len(selectionsRaw) > 0 {
		if err := json.Unmarshal(selectionsRaw, &b.Selections); err != nil {
			return bet.Bet{}, fmt.Errorf("decode selections for bet %s: %w", b.ID, err)
		}
	}
	return b, nil
}
