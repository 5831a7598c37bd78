package models

import (
	"log"

	"github.com/GrainArc/ShpToAPI/config"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var DB *gorm.DB

// InitDB connects to the spatial database and migrates the resource table.
// The same connection serves the PostGIS vector tables and the resource
// catalog.
func InitDB(cfg config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: true,
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&Resource{}); err != nil {
		log.Printf("Failed to migrate tables: %v", err)
		return nil, err
	}

	DB = db
	return db, nil
}
