package dbmysql

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"contentflow/internal/config"
	"contentflow/internal/logger"
)

// NewMySQL returns a GORM DB instance connected to MySQL
func NewMySQL(cnf *config.Config) (*gorm.DB, error) {
	dsn := cnf.DSN()
	if cnf.Database.DatabaseName == "" {
		return nil, fmt.Errorf("MYSQL_DATABASE is not set")
	}

	level := gormlogger.Warn
	if cnf.Logging.Level == "debug" {
		level = gormlogger.Info
	}

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(logger.GetLogger("sql"), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		PrepareStmt: true,
		NowFunc: func() time.Time {
			return time.Now().UTC().Truncate(time.Millisecond)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("cannot connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sql.DB error: %w", err)
	}
	sqlDB.SetMaxOpenConns(cnf.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cnf.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cnf.Database.ConnMaxLifetime)

	if cnf.Database.AutoMigrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
	}

	logger.App().WithField("host", cnf.Database.Host).Info("connected to MySQL")

	return db, nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Item{}, &ScopeVersion{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
