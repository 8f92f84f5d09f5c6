package database

import (
	"fmt"
	"log"

	"github.com/aidoc/backend-go/internal/config"
	"github.com/aidoc/backend-go/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB() (*gorm.DB, error) {
	cfg := config.AppConfig
	if cfg == nil {
		return nil, fmt.Errorf("config not loaded")
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
		// 唯一索引冲突翻译成gorm.ErrDuplicatedKey，去重逻辑依赖它
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 获取底层的sql.DB设置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	if err := autoMigrate(db); err != nil {
		log.Printf("⚠️  Database migration warning: %v", err)
	}

	DB = db
	log.Println("✅ Database connected successfully")
	return db, nil
}

// autoMigrate 开发环境兜底迁移。生产环境使用cmd/migrate跑SQL迁移，
// 这里只保证pgvector扩展和表存在。
func autoMigrate(db *gorm.DB) error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		log.Printf("⚠️  Failed to create vector extension (may lack privileges): %v", err)
	}

	if err := db.AutoMigrate(&models.Document{}); err != nil {
		return fmt.Errorf("migrate documents: %w", err)
	}
	if err := db.AutoMigrate(&models.DocumentChunk{}); err != nil {
		return fmt.Errorf("migrate document_chunks: %w", err)
	}

	// AutoMigrate不会生成ON DELETE CASCADE到已存在的约束上，手动补齐
	db.Exec(`
		ALTER TABLE document_chunks
		DROP CONSTRAINT IF EXISTS fk_documents_chunks,
		ADD CONSTRAINT fk_documents_chunks
		FOREIGN KEY (document_id) REFERENCES documents(document_id) ON DELETE CASCADE
	`)

	return nil
}

func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
