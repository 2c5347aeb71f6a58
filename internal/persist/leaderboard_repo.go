package persist

import (
	"context"
	"time"
)

// RetiredPlayer is one row of the leaderboard.
type RetiredPlayer struct {
	Name         string
	Score        int
	PlayTimeSecs float64
	RetiredAt    time.Time
}

// maxRecordsPerPage bounds GetPlayers regardless of what the caller asks
// for, so a malicious or buggy client can't force an unbounded scan.
const maxRecordsPerPage = 100

type LeaderboardRepo struct {
	db *DB
}

func NewLeaderboardRepo(db *DB) *LeaderboardRepo {
	return &LeaderboardRepo{db: db}
}

// Save records one retired player. Called once per retirement, synchronously
// from the world's simulation step.
func (r *LeaderboardRepo) Save(ctx context.Context, p RetiredPlayer) error {
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO retired_players (name, score, play_time_secs) VALUES ($1, $2, $3)`,
		p.Name, p.Score, p.PlayTimeSecs,
	)
	return err
}

// GetPlayers returns up to maxItems records starting at offset start,
// ranked by score descending, then play time ascending, then name. maxItems
// is clamped to maxRecordsPerPage.
func (r *LeaderboardRepo) GetPlayers(ctx context.Context, start, maxItems int) ([]RetiredPlayer, error) {
	if maxItems > maxRecordsPerPage || maxItems <= 0 {
		maxItems = maxRecordsPerPage
	}
	rows, err := r.db.Pool.Query(ctx,
		`SELECT name, score, play_time_secs, retired_at
		 FROM retired_players
		 ORDER BY score DESC, play_time_secs ASC, name ASC
		 OFFSET $1 LIMIT $2`,
		start, maxItems,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RetiredPlayer
	for rows.Next() {
		var p RetiredPlayer
		if err := rows.Scan(&p.Name, &p.Score, &p.PlayTimeSecs, &p.RetiredAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
