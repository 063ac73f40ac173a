package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"crew-connect/internal/config"
	"crew-connect/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	maxAttempts  = 10
	retryBackoff = 2 * time.Second
)

// Open opens a gorm handle for the given driver without retrying.
func Open(driver, dsn string) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	switch driver {
	case config.DriverPostgres:
		return gorm.Open(postgres.Open(dsn), gormCfg)
	case config.DriverSQLite:
		db, err := gorm.Open(sqlite.Open(dsn), gormCfg)
		if err != nil {
			return nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// single writer; also keeps in-memory databases on one connection
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// Connect opens the database, retrying while it comes up, and migrates the schema.
func Connect(ctx context.Context, cfg *config.Config, log *zap.Logger) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	for i := 1; i <= maxAttempts; i++ {
		log.Info("connecting to database", zap.Int("attempt", i), zap.Int("max_attempts", maxAttempts))

		db, err = Open(cfg.DBDriver, cfg.DBDSN)
		if err == nil {
			log.Info("connected to database", zap.String("driver", cfg.DBDriver))
			break
		}

		log.Warn("failed to connect to database", zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
	if err != nil {
		return nil, fmt.Errorf("connect after %d attempts: %w", maxAttempts, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Project{},
		&models.ProjectBudgetItem{},
		&models.WorkOrder{},
		&models.ChangeOrder{},
		&models.ChangeOrderItem{},
		&models.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// SeedDefaultAdmin creates the admin account from ADMIN_USERNAME/ADMIN_PASSWORD
// unless an admin already exists.
func SeedDefaultAdmin(db *gorm.DB, log *zap.Logger) error {
	username := os.Getenv("ADMIN_USERNAME")
	if username == "" {
		username = "admin@crew.local"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "Admin123!"
	}

	var count int64
	if err := db.Model(&models.User{}).
		Where("role = ?", models.RoleAdmin).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check admin user: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := CreateUser(db, username, password, models.RoleAdmin); err != nil {
		return fmt.Errorf("create default admin: %w", err)
	}

	log.Info("created default admin user", zap.String("username", username))
	return nil
}

// CreateUser stores a user with a bcrypt hash of password.
func CreateUser(db *gorm.DB, username, password string, role models.UserRole) (models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}
