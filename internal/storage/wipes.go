package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

type ActiveSeed struct {
	Seed         string
	MapSize      int
	NextWipeDate time.Time
	WipeType     string
	UpdatedAt    time.Time
}

type VoteOutcome struct {
	WinnerSeed string
	MapSize    int
	WipeDate   time.Time
	Seeds      []string
	Tallies    []int
	TotalVotes int
}

type VoteHistoryRow struct {
	ID         int64
	WipeDate   time.Time
	WinnerSeed string
	Seeds      []string
	Tallies    []int
	TotalVotes int
	CreatedAt  time.Time
}

// RecordVoteOutcome overwrites the single active-seed row and appends one
// history row in the same transaction, so the ledger and the advisory
// current-seed row cannot diverge.
func (s *Store) RecordVoteOutcome(ctx context.Context, outcome VoteOutcome) error {
	if len(outcome.Seeds) < 3 || len(outcome.Seeds) > 4 || len(outcome.Seeds) != len(outcome.Tallies) {
		return fmt.Errorf("outcome needs 3 or 4 candidates, got %d seeds and %d tallies", len(outcome.Seeds), len(outcome.Tallies))
	}

	seeds := make([]string, 4)
	tallies := make([]int, 4)
	copy(seeds, outcome.Seeds)
	copy(tallies, outcome.Tallies)

	now := time.Now()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO active_seed (id, current_seed, map_size, next_wipe_date, wipe_type, updated_at)
		VALUES (1, ?, ?, ?, 'biweekly', ?)
		ON CONFLICT(id) DO UPDATE SET
			current_seed = excluded.current_seed,
			map_size = excluded.map_size,
			next_wipe_date = excluded.next_wipe_date,
			updated_at = excluded.updated_at
	`, outcome.WinnerSeed, outcome.MapSize, outcome.WipeDate.Unix(), now.Unix())
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO vote_history
			(wipe_date, wipe_type, winner_seed, seed1, seed2, seed3, seed4, votes1, votes2, votes3, votes4, total_votes, created_at)
		VALUES (?, 'biweekly', ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, outcome.WipeDate.Unix(), outcome.WinnerSeed,
		seeds[0], seeds[1], seeds[2], seeds[3],
		tallies[0], tallies[1], tallies[2], tallies[3],
		outcome.TotalVotes, now.Unix())
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *Store) GetActiveSeed(ctx context.Context) (ActiveSeed, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT current_seed, map_size, next_wipe_date, wipe_type, updated_at
		FROM active_seed WHERE id = 1
	`)

	var seed ActiveSeed
	var wipeDate, updatedAt int64
	err := row.Scan(&seed.Seed, &seed.MapSize, &wipeDate, &seed.WipeType, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ActiveSeed{}, nil
		}
		return ActiveSeed{}, err
	}
	seed.NextWipeDate = time.Unix(wipeDate, 0)
	seed.UpdatedAt = time.Unix(updatedAt, 0)
	return seed, nil
}

func (s *Store) ListVoteHistory(ctx context.Context, limit int) ([]VoteHistoryRow, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wipe_date, winner_seed, seed1, seed2, seed3, seed4,
			votes1, votes2, votes3, votes4, total_votes, created_at
		FROM vote_history
		ORDER BY wipe_date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []VoteHistoryRow
	for rows.Next() {
		var entry VoteHistoryRow
		var wipeDate, createdAt int64
		seeds := make([]string, 4)
		tallies := make([]int, 4)
		if err := rows.Scan(&entry.ID, &wipeDate, &entry.WinnerSeed,
			&seeds[0], &seeds[1], &seeds[2], &seeds[3],
			&tallies[0], &tallies[1], &tallies[2], &tallies[3],
			&entry.TotalVotes, &createdAt); err != nil {
			return nil, err
		}
		entry.WipeDate = time.Unix(wipeDate, 0)
		entry.CreatedAt = time.Unix(createdAt, 0)
		if seeds[3] == "" {
			seeds = seeds[:3]
			tallies = tallies[:3]
		}
		entry.Seeds = seeds
		entry.Tallies = tallies
		history = append(history, entry)
	}
	return history, rows.Err()
}
