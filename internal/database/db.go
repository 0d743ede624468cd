package database

import (
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"apr-manager/internal/models"
)

// Open connects to the database, runs migrations and returns the handle.
// An empty DSN falls back to a local sqlite file for development; a
// postgres DSN gets a short retry loop since the container usually comes
// up alongside the database.
func Open(dsn string) (*gorm.DB, error) {
	var (
		db  *gorm.DB
		err error
	)

	if dsn == "" || strings.HasSuffix(dsn, ".db") {
		path := dsn
		if path == "" {
			path = "apr.db"
		}
		db, err = gorm.Open(sqlite.Open(path), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		})
		if err != nil {
			return nil, err
		}
	} else {
		const maxAttempts = 10
		for i := 1; i <= maxAttempts; i++ {
			log.Printf("trying to connect to DB (attempt %d/%d)...", i, maxAttempts)

			db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
				Logger: logger.Default.LogMode(logger.Warn),
			})
			if err == nil {
				log.Println("connected to DB successfully")
				break
			}

			log.Printf("failed to connect to DB: %v", err)
			time.Sleep(2 * time.Second)
		}
		if err != nil {
			return nil, err
		}
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Company{},
		&models.CompanyAdminEmail{},
		&models.User{},
		&models.Apr{},
		&models.AprImage{},
		&models.AprResponse{},
		&models.DigitalSignature{},
		&models.AuditLog{},
	)
}

// SeedSuperadmin creates the global admin account once, from config.
// Skipped silently when a superadmin already exists or no credentials
// were configured.
func SeedSuperadmin(db *gorm.DB, email, password string) {
	if email == "" || password == "" {
		return
	}

	var count int64
	if err := db.Model(&models.User{}).
		Where("role = ?", models.RoleSuperadmin).
		Count(&count).Error; err != nil {
		log.Printf("failed to check superadmin user: %v", err)
		return
	}
	if count > 0 {
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("failed to hash superadmin password: %v", err)
		return
	}

	admin := models.User{
		Email:        email,
		Name:         "Superadmin",
		PasswordHash: string(hash),
		Role:         models.RoleSuperadmin,
		IsActive:     true,
	}

	if err := db.Create(&admin).Error; err != nil {
		log.Printf("failed to create superadmin: %v", err)
		return
	}

	log.Printf("created superadmin user: %s", email)
}
