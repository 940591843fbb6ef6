package db

import (
	"fmt"

	"github.com/vieilles-charrues/mintauction/internal/models"
	"gorm.io/gorm"
)

// Migrate runs database migrations for the current dialect.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	switch DialectName(conn) {
	case DialectSQLite:
		return migrateSQLite(conn)
	case DialectPostgres, "":
		return migratePostgres(conn)
	default:
		return fmt.Errorf("db: unsupported dialect: %s", DialectName(conn))
	}
}

// AllModels lists every table managed by the service.
func AllModels() []any {
	return []any{
		&models.NativeAccount{},
		&models.Mint{},
		&models.HoldingAccount{},
		&models.TokenMetadata{},
		&models.AuctionRecord{},
		&models.Bid{},
		&models.Settlement{},
		&models.WalletChallenge{},
	}
}

// migratePostgres applies PostgreSQL-specific schema updates and indexes.
func migratePostgres(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(AllModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	if errChecks := ensureNonNegativeChecks(conn); errChecks != nil {
		return errChecks
	}
	return ensureUnclaimedIndex(conn)
}

// migrateSQLite applies SQLite-specific schema updates and indexes.
func migrateSQLite(conn *gorm.DB) error {
	if errAutoMigrate := conn.AutoMigrate(AllModels()...); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}
	return ensureUnclaimedIndex(conn)
}

// ensureUnclaimedIndex speeds up the expiry scan over open auctions.
func ensureUnclaimedIndex(conn *gorm.DB) error {
	stmt := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS idx_auction_records_unclaimed_end
		ON auction_records (end_time)
		WHERE claimed = %s
	`, BoolLiteral(conn, false))
	if errIndex := conn.Exec(stmt).Error; errIndex != nil {
		return fmt.Errorf("db: create unclaimed auction index: %w", errIndex)
	}
	return nil
}

// ensureNonNegativeChecks guards balance columns that map to unsigned values.
func ensureNonNegativeChecks(conn *gorm.DB) error {
	checks := []struct {
		table  string
		name   string
		column string
	}{
		{table: "native_accounts", name: "chk_native_accounts_lamports", column: "lamports"},
		{table: "holding_accounts", name: "chk_holding_accounts_amount", column: "amount"},
		{table: "mints", name: "chk_mints_supply", column: "supply"},
		{table: "auction_records", name: "chk_auction_records_highest_bid", column: "highest_bid"},
	}
	for _, check := range checks {
		stmt := fmt.Sprintf(`
			DO $$
			BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
					ALTER TABLE %s ADD CONSTRAINT %s CHECK (%s >= 0);
				END IF;
			END $$;
		`, check.name, check.table, check.name, check.column)
		if errCheck := conn.Exec(stmt).Error; errCheck != nil {
			return fmt.Errorf("db: add check %s: %w", check.name, errCheck)
		}
	}
	return nil
}
