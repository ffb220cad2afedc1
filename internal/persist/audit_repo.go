package persist

import (
	"context"

	"github.com/reeflab/reef/internal/plugin"
)

// AuditRepo appends plugin lifecycle transitions. Wired as a registry state
// observer by the daemon.
type AuditRepo struct {
	db *DB
}

func NewAuditRepo(db *DB) *AuditRepo {
	return &AuditRepo{db: db}
}

func (r *AuditRepo) Record(ctx context.Context, sc plugin.StateChange) error {
	detail := ""
	if sc.Err != nil {
		detail = sc.Err.Error()
	}
	_, err := r.db.Pool.Exec(ctx,
		`INSERT INTO plugin_events (at, plugin, from_state, to_state, detail)
		 VALUES ($1, $2, $3, $4, $5)`,
		sc.At, sc.Name, sc.From.String(), sc.To.String(), detail,
	)
	return err
}

// History returns the recorded transitions for one plugin, oldest first.
func (r *AuditRepo) History(ctx context.Context, name string, limit int) ([]plugin.StateChange, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT at, plugin, from_state, to_state, detail
		 FROM plugin_events WHERE plugin = $1 ORDER BY at, id LIMIT $2`,
		name, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []plugin.StateChange
	for rows.Next() {
		var sc plugin.StateChange
		var from, to, detail string
		if err := rows.Scan(&sc.At, &sc.Name, &from, &to, &detail); err != nil {
			return nil, err
		}
		sc.From = parseState(from)
		sc.To = parseState(to)
		out = append(out, sc)
	}
	return out, rows.Err()
}

func parseState(s string) plugin.State {
	for st := plugin.StateUnloaded; st <= plugin.StateUnloading; st++ {
		if st.String() == s {
			return st
		}
	}
	return plugin.StateUnloaded
}
