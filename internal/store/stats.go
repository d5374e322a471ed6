package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

type VisitorMetric struct {
	ID        int       `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type Count struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type Stats struct {
	TotalVisitors    int64           `json:"total_visitors"`
	UniqueVisitors   int64           `json:"unique_visitors"`
	VisitorsToday    int64           `json:"visitors_today"`
	VisitorsThisWeek int64           `json:"visitors_this_week"`
	ModalOpens       int64           `json:"modal_opens"`
	FilterSelections int64           `json:"filter_selections"`
	TopProjects      []Count         `json:"top_projects"`
	TopFilters       []Count         `json:"top_filters"`
	RecentVisitors   []VisitorMetric `json:"recent_visitors"`
}

func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	now := s.now()
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).Unix()
	week := now.Add(-7 * 24 * time.Hour).Unix()

	stats := &Stats{}
	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&stats.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&stats.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&stats.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE ts >= ?`, []any{today}},
		{&stats.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE ts >= ?`, []any{week}},
		{&stats.ModalOpens, `SELECT COUNT(*) FROM interactions WHERE kind = ?`, []any{KindModalOpen}},
		{&stats.FilterSelections, `SELECT COUNT(*) FROM interactions WHERE kind = ?`, []any{KindFilter}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, errors.Wrap(err, "counting")
		}
	}

	var err error
	if stats.TopProjects, err = s.top(ctx, KindModalOpen, "project_id"); err != nil {
		return nil, err
	}
	if stats.TopFilters, err = s.top(ctx, KindFilter, "tag"); err != nil {
		return nil, err
	}
	if stats.RecentVisitors, err = s.RecentVisitors(ctx, 50); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) top(ctx context.Context, kind, column string) ([]Count, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+column+`, COUNT(*) AS n FROM interactions
		WHERE kind = ?
		GROUP BY `+column+`
		ORDER BY n DESC, `+column+` ASC
		LIMIT 10`, kind)
	if err != nil {
		return nil, errors.Wrapf(err, "loading top %s", kind)
	}
	defer rows.Close()

	var out []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, errors.Wrap(err, "scanning count")
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// RecentVisitors returns up to limit visits, newest first.
func (s *Store) RecentVisitors(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), ts
		FROM visitors
		ORDER BY ts DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "loading visitors")
	}
	defer rows.Close()

	var out []VisitorMetric
	for rows.Next() {
		var v VisitorMetric
		var ts int64
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &ts); err != nil {
			return nil, errors.Wrap(err, "scanning visitor")
		}
		v.Timestamp = time.Unix(ts, 0)
		out = append(out, v)
	}
	return out, rows.Err()
}
