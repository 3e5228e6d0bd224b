package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Oracle struct {
	Name string
	SQL  string
}

// All lists invariants that must hold at any instant, whatever the interleaving.
func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_window_ordered",
			SQL:  `SELECT id, scheduled_start, scheduled_end FROM meetings WHERE scheduled_end <= scheduled_start`,
		},
		{
			Name: "O2_single_response",
			SQL: `SELECT payload->>'meeting_id', COUNT(*) FROM outbox
                  WHERE topic IN ('meeting.accepted', 'meeting.declined')
                  GROUP BY 1 HAVING COUNT(*) > 1`,
		},
		{
			Name: "O3_accept_persisted",
			SQL: `SELECT m.id, m.status FROM outbox o
                  JOIN meetings m ON m.id = o.payload->>'meeting_id'
                  WHERE o.topic = 'meeting.accepted' AND m.status IN ('pending', 'declined')`,
		},
		{
			Name: "O4_decline_terminal",
			SQL: `SELECT m.id, m.status FROM outbox o
                  JOIN meetings m ON m.id = o.payload->>'meeting_id'
                  WHERE o.topic = 'meeting.declined' AND m.status <> 'declined'`,
		},
		{
			Name: "O5_single_cancel",
			SQL: `SELECT payload->>'meeting_id', COUNT(*) FROM outbox
                  WHERE topic = 'meeting.cancelled'
                  GROUP BY 1 HAVING COUNT(*) > 1`,
		},
		{
			Name: "O6_outbox_drained",
			SQL: `SELECT id FROM outbox
                  WHERE status = 'pending' AND now() - created_at > interval '5 minutes'`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
