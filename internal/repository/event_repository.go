package repository

import (
	"context"
	"fmt"

	"github.com/yourusername/match-oracle/internal/database"
	"github.com/yourusername/match-oracle/internal/models"
)

// PostgresEventRepository implements EventRepository for PostgreSQL
type PostgresEventRepository struct {
	db *database.DB
}

// NewPostgresEventRepository creates a new event repository
func NewPostgresEventRepository(db *database.DB) EventRepository {
	return &PostgresEventRepository{db: db}
}

// Append writes one event to the append-only log
func (e *PostgresEventRepository) Append(ctx context.Context, event *models.EngineEvent) error {
	query := `
		INSERT INTO engine_events (id, event_type, market, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := e.db.GetPool().Exec(ctx, query,
		event.ID, event.Type, event.Market, event.Payload, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append engine event: %w", err)
	}

	return nil
}

// GetRecent retrieves the newest events of a type. An empty type matches all.
func (e *PostgresEventRepository) GetRecent(ctx context.Context, eventType string, limit int) ([]*models.EngineEvent, error) {
	query := `
		SELECT id, event_type, market, payload, created_at
		FROM engine_events
		WHERE ($1 = '' OR event_type = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := e.db.GetPool().Query(ctx, query, eventType, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query engine events: %w", err)
	}
	defer rows.Close()

	var events []*models.EngineEvent
	for rows.Next() {
		event := &models.EngineEvent{}
		err := rows.Scan(&event.ID, &event.Type, &event.Market, &event.Payload, &event.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan engine event: %w", err)
		}
		events = append(events, event)
	}

	return events, rows.Err()
}
