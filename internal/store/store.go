package store

import (
	"context"
	"fmt"
	"time"

	"pricing-sync-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// FindActiveHotels retrieves all hotels in ACTIVE status
func (s *Store) FindActiveHotels(ctx context.Context) ([]models.Hotel, error) {
	var hotels []models.Hotel
	err := s.db.SelectContext(ctx, &hotels,
		"SELECT * FROM hotels WHERE status = $1 ORDER BY id", models.HotelStatusActive)
	return hotels, err
}

// FindActiveRooms retrieves a hotel's active rooms
func (s *Store) FindActiveRooms(ctx context.Context, hotelID int64) ([]models.Room, error) {
	var rooms []models.Room
	err := s.db.SelectContext(ctx, &rooms,
		"SELECT * FROM rooms WHERE hotel_id = $1 AND active = TRUE ORDER BY id", hotelID)
	return rooms, err
}

// FindActiveSeasonalRules retrieves active rules whose inclusive date range
// intersects [from, to]
func (s *Store) FindActiveSeasonalRules(ctx context.Context, from, to time.Time) ([]models.SeasonalRule, error) {
	var rules []models.SeasonalRule
	err := s.db.SelectContext(ctx, &rules,
		`SELECT * FROM seasonal_rules
		 WHERE active = TRUE AND start_date <= $2 AND end_date >= $1
		 ORDER BY start_date`, from, to)
	return rules, err
}
