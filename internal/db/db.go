package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Strongman1380/myassistant/internal/memory"
)

func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return gdb, nil
}

func AutoMigrateAndIndexes(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(&memory.Memory{}); err != nil {
		return err
	}

	if gdb.Dialector.Name() != "postgres" {
		return nil
	}

	// List and the frequency maps always scan active rows newest-first.
	stmts := []string{
		`create index if not exists idx_memories_active_created on memories(is_active, created_at desc);`,
		`create index if not exists idx_memories_active_category on memories(is_active, category);`,
	}
	for _, s := range stmts {
		if err := gdb.Exec(s).Error; err != nil {
			return fmt.Errorf("index exec failed: %w (sql=%s)", err, s)
		}
	}
	return nil
}
