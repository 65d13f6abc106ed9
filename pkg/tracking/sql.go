package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// RunTable is one row per run.
type RunTable struct {
	ID         string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	Experiment string    `gorm:"type:varchar(255);not null;index" json:"experiment"`
	Name       string    `gorm:"type:varchar(255);not null" json:"name"`
	Status     string    `gorm:"type:varchar(50);not null" json:"status"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (RunTable) TableName() string { return "tracking_runs" }

// ParamTable holds one run parameter.
type ParamTable struct {
	RunID string `gorm:"type:varchar(64);primaryKey" json:"run_id"`
	Key   string `gorm:"type:varchar(255);primaryKey" json:"key"`
	Value string `gorm:"type:text" json:"value"`
}

func (ParamTable) TableName() string { return "tracking_params" }

// MetricTable holds one run metric. Non-finite values are not stored.
type MetricTable struct {
	RunID string  `gorm:"type:varchar(64);primaryKey" json:"run_id"`
	Key   string  `gorm:"type:varchar(255);primaryKey" json:"key"`
	Value float64 `gorm:"not null" json:"value"`
}

func (MetricTable) TableName() string { return "tracking_metrics" }

// ArtifactTable holds a small run artifact such as a plot.
type ArtifactTable struct {
	RunID   string `gorm:"type:varchar(64);primaryKey" json:"run_id"`
	Path    string `gorm:"type:varchar(255);primaryKey" json:"path"`
	Content []byte `gorm:"type:mediumblob" json:"-"`
}

func (ArtifactTable) TableName() string { return "tracking_artifacts" }

// SQLStore writes runs to MySQL.
type SQLStore struct {
	db *gorm.DB
}

// OpenSQLStore connects with a go-sql-driver DSN such as
// user:pass@tcp(host:3306)/mlops?parseTime=True and migrates the tables.
func OpenSQLStore(dsn string) (*SQLStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("tracking: open mysql: %w", err)
	}
	return NewSQLStore(db)
}

// NewSQLStore uses an open connection and migrates the tables.
func NewSQLStore(db *gorm.DB) (*SQLStore, error) {
	if err := db.AutoMigrate(&RunTable{}, &ParamTable{}, &MetricTable{}, &ArtifactTable{}); err != nil {
		return nil, fmt.Errorf("failed to migrate tracking tables: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// LogRun inserts the run and its children in one transaction.
func (s *SQLStore) LogRun(ctx context.Context, run Run) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := RunTable{
			ID:         run.ID,
			Experiment: run.Experiment,
			Name:       run.Name,
			Status:     "FINISHED",
			StartTime:  run.StartTime,
			EndTime:    run.EndTime,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}
		for _, k := range sortedKeys(run.Params) {
			if err := tx.Create(&ParamTable{RunID: run.ID, Key: k, Value: run.Params[k]}).Error; err != nil {
				return err
			}
		}
		finite := finiteMetrics(run.Metrics)
		for _, k := range sortedKeys(finite) {
			if err := tx.Create(&MetricTable{RunID: run.ID, Key: k, Value: finite[k]}).Error; err != nil {
				return err
			}
		}
		for _, k := range sortedKeys(run.Artifacts) {
			if err := tx.Create(&ArtifactTable{RunID: run.ID, Path: k, Content: run.Artifacts[k]}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tracking: log run %s: %w", run.Name, err)
	}
	log.Debug().Str("run_id", run.ID).Msg("Logged run to mysql")
	return nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
