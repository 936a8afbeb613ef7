package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/inboxkit/mailsort/interfaces"
	"github.com/inboxkit/mailsort/internal/database"
	"github.com/inboxkit/mailsort/internal/models"
)

type Repositories struct {
	UserRepository                 interfaces.UserRepository
	ThreadClassificationRepository interfaces.ThreadClassificationRepository
}

func InitRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		UserRepository:                 NewUserRepository(db),
		ThreadClassificationRepository: NewThreadClassificationRepository(db),
	}
}

func MigrateDB(dbConfig *database.DatabaseConfig, gormDB *gorm.DB) error {
	db, err := gormDB.DB()
	if err != nil {
		return err
	}

	db.SetMaxOpenConns(5)

	err = gormDB.AutoMigrate(
		&models.User{},
		&models.ThreadClassification{},
	)

	db.Close()

	db, _ = gormDB.DB()
	db.SetMaxIdleConns(dbConfig.MaxIdleConn)
	db.SetMaxOpenConns(dbConfig.MaxConn)
	db.SetConnMaxLifetime(time.Duration(dbConfig.ConnMaxLifetime) * time.Minute)

	return err
}
