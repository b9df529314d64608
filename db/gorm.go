package db

import (
	"fmt"
	"log"
	"time"

	"RoomFM/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// GormDB is the GORM connection instance. It coexists with DB (*sql.DB)
// and is used for the purchase archive models.
var GormDB *gorm.DB

// ConnectGormDB establishes the GORM database connection.
func ConnectGormDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	GormDB, err = gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect database with GORM: %w", err)
	}

	sqlDB, err := GormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Println("Successfully connected to the database with GORM.")
	return nil
}

// CloseGormDB closes the GORM database connection.
func CloseGormDB() error {
	if GormDB == nil {
		return nil
	}

	sqlDB, err := GormDB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// AutoMigrateModels migrates the given model pointers.
func AutoMigrateModels(models ...interface{}) error {
	if GormDB == nil {
		return fmt.Errorf("GORM database not initialized")
	}

	if err := GormDB.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to auto migrate models: %w", err)
	}

	log.Println("Models migrated successfully with GORM.")
	return nil
}
