// Package repotest opens isolated in-memory SQLite databases carrying the
// listings, profiles and claims schema for repository tests.
package repotest

import (
	"fmt"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS profiles (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL,
  full_name TEXT,
  subscription_plan TEXT,
  billing_cycle TEXT,
  stripe_customer_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS profiles_email_lower_key ON profiles (lower(email));`,
	`CREATE TABLE IF NOT EXISTS listings (
  id TEXT PRIMARY KEY,
  listing_name TEXT NOT NULL DEFAULT '',
  owner_id TEXT,
  plan TEXT,
  is_claimed INTEGER NOT NULL DEFAULT 0,
  pending_claim_email TEXT,
  stripe_session_id TEXT,
  created_at DATETIME,
  updated_at DATETIME,
  CHECK ((owner_id IS NULL) = (is_claimed = 0))
);`,
	`CREATE TABLE IF NOT EXISTS claims (
  id TEXT PRIMARY KEY,
  listing_id TEXT NOT NULL,
  vendor_id TEXT NOT NULL,
  message TEXT NOT NULL,
  approved INTEGER NOT NULL DEFAULT 0,
  stripe_session_id TEXT,
  created_at DATETIME
);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS claims_stripe_session_id_key ON claims (stripe_session_id) WHERE stripe_session_id IS NOT NULL;`,
}

// Open returns a database private to t with the schema applied.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// the in-memory database lives as long as its single connection
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}
