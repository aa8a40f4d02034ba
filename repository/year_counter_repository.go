package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/telecall/models"
	"github.com/amirphl/telecall/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const ensureBaselineSQL = `
INSERT INTO year_counters (name, year, seq, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (name) DO UPDATE SET seq = excluded.seq, updated_at = excluded.updated_at
WHERE year_counters.seq < excluded.seq`

const incrementAndGetSQL = `
INSERT INTO year_counters (name, year, seq, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (name) DO UPDATE SET
	seq = CASE WHEN year_counters.seq < ? THEN ? ELSE year_counters.seq END + 1,
	updated_at = excluded.updated_at
RETURNING seq`

// YearCounterRepositoryImpl implements YearCounterRepository on top of gorm
type YearCounterRepositoryImpl struct {
	*BaseRepository[models.YearCounter, any]
	prefix   string
	baseline int64
}

// NewYearCounterRepository creates a counter repository. Counter rows are named "<prefix>:<year>".
func NewYearCounterRepository(db *gorm.DB, prefix string) YearCounterRepository {
	if prefix == "" {
		prefix = utils.AppointmentCounterPrefix
	}
	return &YearCounterRepositoryImpl{
		BaseRepository: NewBaseRepository[models.YearCounter, any](db),
		prefix:         prefix,
		baseline:       utils.AppointmentSeqBaseline,
	}
}

func (r *YearCounterRepositoryImpl) EnsureBaseline(ctx context.Context, year int) error {
	db := r.getDB(ctx)
	now := utils.UTCNow()

	err := db.Exec(ensureBaselineSQL, models.YearCounterName(r.prefix, year), year, r.baseline, now, now).Error
	if err != nil {
		return fmt.Errorf("failed to ensure counter baseline for %d: %w", year, err)
	}
	return nil
}

func (r *YearCounterRepositoryImpl) IncrementAndGet(ctx context.Context, year int) (int64, error) {
	db := r.getDB(ctx)
	now := utils.UTCNow()

	var seqs []int64
	err := db.Raw(incrementAndGetSQL,
		models.YearCounterName(r.prefix, year), year, r.baseline+1, now, now,
		r.baseline, r.baseline,
	).Scan(&seqs).Error
	if err != nil {
		return 0, fmt.Errorf("failed to increment counter for %d: %w", year, err)
	}
	if len(seqs) != 1 {
		return 0, fmt.Errorf("failed to increment counter for %d: expected one row, got %d", year, len(seqs))
	}

	return seqs[0], nil
}

func (r *YearCounterRepositoryImpl) Current(ctx context.Context, year int) (int64, bool, error) {
	db := r.getDB(ctx)

	var counter models.YearCounter
	err := db.Where("name = ?", models.YearCounterName(r.prefix, year)).Take(&counter).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to read counter for %d: %w", year, err)
	}

	return counter.Seq, true, nil
}

func (r *YearCounterRepositoryImpl) Reset(ctx context.Context, year int) error {
	db := r.getDB(ctx)

	counter := models.YearCounter{
		Name: models.YearCounterName(r.prefix, year),
		Year: year,
		Seq:  r.baseline,
	}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"seq", "updated_at"}),
	}).Create(&counter).Error
	if err != nil {
		return fmt.Errorf("failed to reset counter for %d: %w", year, err)
	}

	return nil
}
