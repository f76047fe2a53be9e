// Package resultdb composes dynamic, paginated, filtered and sorted queries
// over one job's result store without callers writing SQL.
package resultdb

import (
	"context"
	"errors"
	"sync"

	"ms-annotation-be/internal/model"

	"gorm.io/gorm"
)

type DB struct {
	orm *gorm.DB

	// Run info is read once and cached for the lifetime of this instance.
	// A concurrently rewritten run row will not be observed; that staleness
	// also avoids hitting a locked store for repeated metadata reads.
	runOnce sync.Once
	run     *model.Run
	runErr  error
}

func New(orm *gorm.DB) *DB {
	return &DB{orm: orm}
}

// Migrate applies the result store schema to an empty store.
func Migrate(orm *gorm.DB) error {
	return orm.AutoMigrate(
		&model.Run{},
		&model.Molecule{},
		&model.Reaction{},
		&model.Scan{},
		&model.Peak{},
		&model.Fragment{},
	)
}

// RunInfo returns the latest run record, or nil when the store has not been
// populated yet.
func (db *DB) RunInfo(ctx context.Context) (*model.Run, error) {
	db.runOnce.Do(func() {
		var run model.Run
		err := db.orm.WithContext(ctx).Order("runid DESC").First(&run).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return
		}
		if err != nil {
			db.runErr = err
			return
		}
		db.run = &run
	})
	return db.run, db.runErr
}

// SetRunInfo updates description and ms_filename on the latest run record.
// Used by the dual-write setters on Job; a no-op when there is no run yet.
func (db *DB) SetRunInfo(ctx context.Context, description, msFilename string) error {
	run, err := db.RunInfo(ctx)
	if err != nil || run == nil {
		return err
	}
	run.Description = description
	run.MsFilename = msFilename
	return db.orm.WithContext(ctx).Save(run).Error
}

// MaxMSLevel returns the deepest ms level present, 0 for an empty store.
func (db *DB) MaxMSLevel(ctx context.Context) (int, error) {
	var level *int
	err := db.orm.WithContext(ctx).Model(&model.Scan{}).
		Select("max(mslevel)").Scan(&level).Error
	if err != nil || level == nil {
		return 0, err
	}
	return *level, nil
}

func (db *DB) HasMolecules(ctx context.Context) (bool, error) {
	return db.hasAny(ctx, &model.Molecule{})
}

func (db *DB) HasPeaks(ctx context.Context) (bool, error) {
	return db.hasAny(ctx, &model.Peak{})
}

func (db *DB) HasFragments(ctx context.Context) (bool, error) {
	return db.hasAny(ctx, &model.Fragment{})
}

func (db *DB) hasAny(ctx context.Context, m interface{}) (bool, error) {
	var count int64
	if err := db.orm.WithContext(ctx).Model(m).Limit(1).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// MoleculesTotalCount returns the unfiltered, unpaged molecule count.
func (db *DB) MoleculesTotalCount(ctx context.Context) (int64, error) {
	var count int64
	err := db.orm.WithContext(ctx).Model(&model.Molecule{}).Count(&count).Error
	return count, err
}

// Close releases the store connection.
func (db *DB) Close() error {
	sqlDB, err := db.orm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
