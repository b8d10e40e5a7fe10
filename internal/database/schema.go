package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema lists the statements Migrate runs, in dependency order.  Owned
// tables carry a position column so collections read back in the order
// they were written.  Coordinates are nullable: legacy rows without them
// are never search candidates.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS properties (
		id                  BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		host_id             BIGINT UNSIGNED NOT NULL,
		name                VARCHAR(255) NOT NULL,
		description         TEXT NULL,
		street              VARCHAR(255) NOT NULL,
		city                VARCHAR(100) NOT NULL,
		state               VARCHAR(100) NULL,
		country             VARCHAR(100) NOT NULL,
		postal_code         VARCHAR(20) NULL,
		latitude            DECIMAL(9,6) NULL,
		longitude           DECIMAL(9,6) NULL,
		geohash             CHAR(12) NULL,
		property_type       VARCHAR(32) NOT NULL,
		guest_capacity      INT NOT NULL DEFAULT 0,
		bedroom_count       INT NOT NULL DEFAULT 0,
		bed_count           INT NOT NULL DEFAULT 0,
		bathroom_count      INT NOT NULL DEFAULT 0,
		check_in_time       TIME NULL,
		check_out_time      TIME NULL,
		cancellation_policy TEXT NULL,
		pet_policy          TEXT NULL,
		event_policy        TEXT NULL,
		star_rating         DECIMAL(2,1) NULL,
		created_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at          DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_properties_host (host_id),
		KEY idx_properties_geohash (geohash)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS rooms (
		id               BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		property_id      BIGINT UNSIGNED NOT NULL,
		position         INT NOT NULL,
		name             VARCHAR(255) NOT NULL,
		room_type        VARCHAR(64) NOT NULL,
		beds             JSON NULL,
		max_occupancy    INT NOT NULL DEFAULT 0,
		base_price       DECIMAL(10,2) NOT NULL,
		cleaning_fee     DECIMAL(10,2) NOT NULL DEFAULT 0,
		service_fee      DECIMAL(10,2) NOT NULL DEFAULT 0,
		tax_rate         DECIMAL(5,2) NOT NULL DEFAULT 0,
		security_deposit DECIMAL(10,2) NULL,
		description      TEXT NULL,
		KEY idx_rooms_property (property_id, position),
		CONSTRAINT fk_rooms_property FOREIGN KEY (property_id) REFERENCES properties(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS property_amenities (
		property_id BIGINT UNSIGNED NOT NULL,
		position    INT NOT NULL,
		category    VARCHAR(32) NOT NULL,
		name        VARCHAR(100) NOT NULL,
		PRIMARY KEY (property_id, position),
		CONSTRAINT fk_amenities_property FOREIGN KEY (property_id) REFERENCES properties(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS property_images (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		property_id BIGINT UNSIGNED NOT NULL,
		position    INT NOT NULL,
		url         VARCHAR(2048) NOT NULL,
		caption     VARCHAR(255) NULL,
		KEY idx_images_property (property_id, position),
		CONSTRAINT fk_images_property FOREIGN KEY (property_id) REFERENCES properties(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS property_rules (
		property_id BIGINT UNSIGNED NOT NULL,
		position    INT NOT NULL,
		rule        VARCHAR(255) NOT NULL,
		PRIMARY KEY (property_id, position),
		CONSTRAINT fk_rules_property FOREIGN KEY (property_id) REFERENCES properties(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing tables.  It is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
