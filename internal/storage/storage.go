// Package storage persists orders, realised trades, and a session-facts
// snapshot across restarts, grounded on the teacher's
// internal/database/database.go (gorm + sqlite/postgres DSN detection,
// AutoMigrate, thin Save/Get methods per model).
package storage

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Store wraps a gorm connection; every exported method is a thin query
// mirroring the teacher's one-method-per-operation style.
type Store struct {
	db *gorm.DB
}

// OrderRecord is the persisted form of domain.Order (spec.md §3), kept as a
// dedicated gorm model rather than tagging domain.Order directly so the
// domain package stays free of storage concerns.
type OrderRecord struct {
	ID           string `gorm:"primaryKey"`
	ItemName     string `gorm:"index"`
	Side         string
	PricePerUnit decimal.Decimal `gorm:"type:decimal(20,6)"`
	AmountTotal  decimal.Decimal `gorm:"type:decimal(20,6)"`
	AmountFilled decimal.Decimal `gorm:"type:decimal(20,6)"`
	State        string          `gorm:"index"`
	PlacedAt     time.Time
	UpdatedAt    time.Time
}

// TradeRecord is the persisted form of a realised domain.Trade
// (spec.md §4.8 Profit Ledger).
type TradeRecord struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	ItemName    string `gorm:"index"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,6)"`
	BuyCost     decimal.Decimal `gorm:"type:decimal(20,6)"`
	SellRevenue decimal.Decimal `gorm:"type:decimal(20,6)"`
	Profit      decimal.Decimal `gorm:"type:decimal(20,6)"`
	ClosedAt    time.Time       `gorm:"index"`
}

// SessionSnapshot is the Session Store's durable checkpoint. cmd/tradebot
// writes one on graceful shutdown; it is not written after Startup
// Reconcile, and nothing reads it back at startup.
type SessionSnapshot struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	Purse          decimal.Decimal `gorm:"type:decimal(20,2)"`
	OpenOrderCount int
	CapturedAt     time.Time `gorm:"index"`
}

// New opens a Store, selecting postgres or sqlite by DSN prefix exactly as
// the teacher's database.New does.
func New(dsn string) (*Store, error) {
	var db *gorm.DB
	var err error

	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("storage connected (PostgreSQL)")
	} else {
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, err
			}
		}
		db, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dsn).Msg("storage initialized (SQLite)")
	}

	if err := db.AutoMigrate(&OrderRecord{}, &TradeRecord{}, &SessionSnapshot{}); err != nil {
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) SaveOrder(rec *OrderRecord) error {
	return s.db.Save(rec).Error
}

func (s *Store) GetOrder(id string) (*OrderRecord, error) {
	var rec OrderRecord
	err := s.db.First(&rec, "id = ?", id).Error
	return &rec, err
}

func (s *Store) OpenOrders() ([]OrderRecord, error) {
	var recs []OrderRecord
	err := s.db.Where("state IN ?", []string{"open", "filled_unclaimed"}).Find(&recs).Error
	return recs, err
}

func (s *Store) SaveTrade(rec *TradeRecord) error {
	return s.db.Create(rec).Error
}

func (s *Store) RecentTrades(limit int) ([]TradeRecord, error) {
	var recs []TradeRecord
	err := s.db.Order("closed_at DESC").Limit(limit).Find(&recs).Error
	return recs, err
}

func (s *Store) SaveSessionSnapshot(snap *SessionSnapshot) error {
	return s.db.Create(snap).Error
}

func (s *Store) LatestSessionSnapshot() (*SessionSnapshot, error) {
	var snap SessionSnapshot
	err := s.db.Order("captured_at DESC").First(&snap).Error
	return &snap, err
}
