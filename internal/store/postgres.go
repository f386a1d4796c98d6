package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pkozlov/trendrank/internal/config"
	"github.com/pkozlov/trendrank/internal/models"
	"github.com/pkozlov/trendrank/internal/scoring"
	"github.com/pkozlov/trendrank/pkg/logger"
)

var (
	storeQueryLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_query_latency_seconds",
			Help:    "Durable store query latency in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		},
		[]string{"operation"},
	)

	storeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_errors_total",
			Help: "Total number of durable store errors",
		},
		[]string{"operation"},
	)
)

// PostgresItemStore implements ItemStore on PostgreSQL
type PostgresItemStore struct {
	db           *sql.DB
	queryTimeout time.Duration
}

// NewPostgresItemStore creates a new PostgreSQL-backed item store
func NewPostgresItemStore(dbConfig config.DatabaseConfig) (*PostgresItemStore, error) {
	// Build connection string
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Database,
		dbConfig.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(dbConfig.MaxConnections)
	db.SetMaxIdleConns(dbConfig.MaxIdleConns)
	db.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to PostgreSQL",
		logger.String("host", dbConfig.Host),
		logger.Int("port", dbConfig.Port),
		logger.String("database", dbConfig.Database),
	)

	return &PostgresItemStore{
		db:           db,
		queryTimeout: dbConfig.QueryTimeout,
	}, nil
}

func (s *PostgresItemStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// GetItem retrieves a single published item by ID
func (s *PostgresItemStore) GetItem(ctx context.Context, itemID string) (*models.RankedItem, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, title, COALESCE(category, ''), vote_count, comment_count,
		       reaction_count, created_at, COALESCE(score, 0)
		FROM items
		WHERE id = $1 AND published
	`

	start := time.Now()
	row := s.db.QueryRowContext(ctx, query, itemID)
	item, err := scanRankedItem(row)
	storeQueryLatency.WithLabelValues("get_item").Observe(time.Since(start).Seconds())

	if err == sql.ErrNoRows {
		return nil, models.ErrItemNotFound
	}
	if err != nil {
		storeErrors.WithLabelValues("get_item").Inc()
		return nil, fmt.Errorf("failed to query item %s: %w", itemID, err)
	}
	return item, nil
}

// QueryTopByEngagement retrieves the top published items for a scope using
// the proxy sort (vote count, then recency)
func (s *PostgresItemStore) QueryTopByEngagement(ctx context.Context, scope models.Scope, limit int) ([]models.RankedItem, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id, title, COALESCE(category, ''), vote_count, comment_count,
		       reaction_count, created_at, COALESCE(score, 0)
		FROM items
		WHERE published AND ($1 = '' OR category = $1)
		ORDER BY vote_count DESC, created_at DESC
		LIMIT $2
	`

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, scope.Category, limit)
	if err != nil {
		storeErrors.WithLabelValues("query_top").Inc()
		return nil, fmt.Errorf("failed to query top items: %w", err)
	}
	defer rows.Close()

	// Typed mapping happens once, here at the query boundary; nothing
	// downstream re-interprets row shapes.
	items := make([]models.RankedItem, 0, limit)
	for rows.Next() {
		item, err := scanRankedItem(rows)
		if err != nil {
			storeErrors.WithLabelValues("query_top").Inc()
			return nil, fmt.Errorf("failed to scan item row: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		storeErrors.WithLabelValues("query_top").Inc()
		return nil, fmt.Errorf("failed to iterate item rows: %w", err)
	}

	storeQueryLatency.WithLabelValues("query_top").Observe(time.Since(start).Seconds())
	return items, nil
}

// QueryRecentlyMutated retrieves IDs of items mutated since the given time
func (s *PostgresItemStore) QueryRecentlyMutated(ctx context.Context, since time.Time) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `
		SELECT id
		FROM items
		WHERE published AND updated_at >= $1
	`

	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query, since)
	if err != nil {
		storeErrors.WithLabelValues("query_recent").Inc()
		return nil, fmt.Errorf("failed to query recently mutated items: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			storeErrors.WithLabelValues("query_recent").Inc()
			return nil, fmt.Errorf("failed to scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		storeErrors.WithLabelValues("query_recent").Inc()
		return nil, fmt.Errorf("failed to iterate item ids: %w", err)
	}

	storeQueryLatency.WithLabelValues("query_recent").Observe(time.Since(start).Seconds())
	return ids, nil
}

// PersistScore writes a recomputed score back to the store
func (s *PostgresItemStore) PersistScore(ctx context.Context, itemID string, score float64) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	query := `UPDATE items SET score = $2 WHERE id = $1`

	start := time.Now()
	result, err := s.db.ExecContext(ctx, query, itemID, score)
	storeQueryLatency.WithLabelValues("persist_score").Observe(time.Since(start).Seconds())

	if err != nil {
		storeErrors.WithLabelValues("persist_score").Inc()
		return fmt.Errorf("failed to persist score for %s: %w", itemID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return models.ErrItemNotFound
	}
	return nil
}

// RecomputeAllScores recomputes every published item's score in one bulk
// UPDATE. The SQL expression mirrors scoring.Engine.Score: log() is base 10
// in PostgreSQL.
func (s *PostgresItemStore) RecomputeAllScores(ctx context.Context, weights scoring.Weights) (int64, error) {
	// Bulk recompute walks the whole table; give it more room than a point
	// query.
	bulkTimeout := 10 * s.queryTimeout
	if s.queryTimeout <= 0 {
		bulkTimeout = 60 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, bulkTimeout)
	defer cancel()

	query := `
		UPDATE items
		SET score = log(greatest(1.0, abs(vote_count)::double precision))
		          + $1 * comment_count
		          + $2 * reaction_count
		          - power(greatest(extract(epoch FROM (now() - created_at)), 0) / 3600.0 / $3, $4)
		WHERE published
	`

	start := time.Now()
	result, err := s.db.ExecContext(ctx, query,
		weights.CommentWeight,
		weights.ReactionWeight,
		weights.GravityHours,
		weights.DecayExponent,
	)
	storeQueryLatency.WithLabelValues("recompute_all").Observe(time.Since(start).Seconds())

	if err != nil {
		storeErrors.WithLabelValues("recompute_all").Inc()
		return 0, fmt.Errorf("failed to recompute scores: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read recompute row count: %w", err)
	}
	return affected, nil
}

// Ping checks database connectivity
func (s *PostgresItemStore) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *PostgresItemStore) Close() error {
	return s.db.Close()
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRankedItem(row rowScanner) (*models.RankedItem, error) {
	var item models.RankedItem
	err := row.Scan(
		&item.ID,
		&item.Title,
		&item.Category,
		&item.VoteCount,
		&item.CommentCount,
		&item.ReactionCount,
		&item.CreatedAt,
		&item.Score,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}
