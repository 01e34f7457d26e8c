//go:build !tinygo

package settings

import (
	"errors"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// settingsRow is the single row of the settings table.
type settingsRow struct {
	ID        uint `gorm:"primaryKey"`
	Raw       `gorm:"embedded"`
	UpdatedAt time.Time
}

func (settingsRow) TableName() string { return "settings" }

const rowID = 1

// DBStore keeps settings in a sqlite database.
type DBStore struct {
	db *gorm.DB
}

func OpenDBStore(path string) (*DBStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&settingsRow{}); err != nil {
		return nil, err
	}
	return &DBStore{db: db}, nil
}

func (d *DBStore) Load() (*Raw, error) {
	var row settingsRow
	err := d.db.First(&row, rowID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row.Raw, nil
}

func (d *DBStore) Save(r Raw) error {
	row := settingsRow{ID: rowID, Raw: r}
	return d.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (d *DBStore) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ Store = (*DBStore)(nil)
