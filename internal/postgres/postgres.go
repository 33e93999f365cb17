package postgres

import (
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hexatlas/internal/model"
)

// DB holds the global database connection
var DB *gorm.DB

// Init initializes the database connection and sets the global DB variable
func Init(url string) *gorm.DB {
	gormLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold: time.Millisecond * 500,
		},
	)

	db, err := gorm.Open(postgres.Open(url), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalln(err)
	}

	// AutoMigrate models
	err = db.AutoMigrate(&model.SegmentMetadataPG{}, &model.SamplingRunPG{})
	if err != nil {
		log.Fatalln("Failed to migrate project models:", err)
	}

	DB = db
	return db
}

// GetDB returns the global database connection
func GetDB() *gorm.DB {
	return DB
}

// SaveSegmentMetadata upserts the queryable mirror of one metadata record.
func SaveSegmentMetadata(key string, meta model.SegmentMetadata) error {
	pg, err := model.MetadataToPG(key, meta)
	if err != nil {
		return err
	}
	pg.UpdatedAt = time.Now()
	return DB.Save(&pg).Error
}

// DeleteSegmentMetadata removes the mirror row for an AOI key.
func DeleteSegmentMetadata(key string) error {
	return DB.Delete(&model.SegmentMetadataPG{}, "key = ?", key).Error
}

// RecordSamplingRun appends one sampling run summary.
func RecordSamplingRun(run *model.SamplingRunPG) error {
	return DB.Create(run).Error
}
