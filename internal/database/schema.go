package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates every table the API uses.  Statements are idempotent so
// Migrate can run on each start.  Child rows are removed by the
// repositories before their parents, so foreign keys never cascade.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		username      VARCHAR(64)  NOT NULL,
		email         VARCHAR(255) NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		is_admin      TINYINT(1)   NOT NULL DEFAULT 0,
		created_at    DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_users_username (username),
		UNIQUE KEY uq_users_email (email)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		token_hash CHAR(64) NOT NULL,
		expires_at DATETIME NOT NULL,
		revoked_at DATETIME NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_refresh_hash (token_hash),
		KEY idx_refresh_user (user_id),
		CONSTRAINT fk_refresh_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS products (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(255)  NOT NULL,
		description TEXT          NULL,
		price       DECIMAL(10,2) NOT NULL,
		stock       INT           NOT NULL DEFAULT 0,
		category    VARCHAR(100)  NULL,
		brand       VARCHAR(100)  NULL,
		tags        VARCHAR(500)  NULL,
		image_url   VARCHAR(500)  NULL,
		featured    TINYINT(1)    NOT NULL DEFAULT 0,
		created_at  DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_products_category (category),
		KEY idx_products_brand (brand),
		CONSTRAINT chk_products_price CHECK (price >= 0),
		CONSTRAINT chk_products_stock CHECK (stock >= 0)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS cart_items (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		product_id BIGINT UNSIGNED NOT NULL,
		quantity   INT NOT NULL,
		UNIQUE KEY uq_cart_user_product (user_id, product_id),
		CONSTRAINT chk_cart_quantity CHECK (quantity > 0),
		CONSTRAINT fk_cart_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_cart_product FOREIGN KEY (product_id) REFERENCES products (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS orders (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id      BIGINT UNSIGNED NOT NULL,
		total_amount DECIMAL(12,2) NOT NULL,
		status       VARCHAR(20)   NOT NULL DEFAULT 'pending',
		created_at   DATETIME      NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_orders_user (user_id),
		CONSTRAINT fk_orders_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS order_items (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		order_id   BIGINT UNSIGNED NOT NULL,
		product_id BIGINT UNSIGNED NOT NULL,
		quantity   INT NOT NULL,
		price      DECIMAL(10,2) NOT NULL,
		KEY idx_order_items_order (order_id),
		KEY idx_order_items_product (product_id),
		CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders (id),
		CONSTRAINT fk_order_items_product FOREIGN KEY (product_id) REFERENCES products (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS wishlist (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		product_id BIGINT UNSIGNED NOT NULL,
		added_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_wishlist_user_product (user_id, product_id),
		CONSTRAINT fk_wishlist_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_wishlist_product FOREIGN KEY (product_id) REFERENCES products (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS reviews (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		product_id BIGINT UNSIGNED NOT NULL,
		rating     TINYINT NOT NULL,
		comment    TEXT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_reviews_user_product (user_id, product_id),
		KEY idx_reviews_product (product_id),
		CONSTRAINT chk_reviews_rating CHECK (rating BETWEEN 1 AND 5),
		CONSTRAINT fk_reviews_user FOREIGN KEY (user_id) REFERENCES users (id),
		CONSTRAINT fk_reviews_product FOREIGN KEY (product_id) REFERENCES products (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,

	`CREATE TABLE IF NOT EXISTS notifications (
		id         BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		user_id    BIGINT UNSIGNED NOT NULL,
		title      VARCHAR(255) NOT NULL,
		message    TEXT NOT NULL,
		type       VARCHAR(20) NOT NULL DEFAULT 'info',
		is_read    TINYINT(1) NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		KEY idx_notifications_user (user_id, is_read),
		CONSTRAINT fk_notifications_user FOREIGN KEY (user_id) REFERENCES users (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates any missing table.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i+1, err)
		}
	}
	return nil
}

// SeedAdmin creates the bootstrap admin account unless a user with that
// name already exists.  It reports whether a row was inserted.
func SeedAdmin(ctx context.Context, db *sql.DB, username, email, passwordHash string) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE username = ?", username).Scan(&n); err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, is_admin) VALUES (?, ?, ?, 1)",
		username, email, passwordHash)
	return err == nil, err
}

type sampleProduct struct {
	name, description, price string
	stock                    int
	category, brand          string
	featured                 bool
}

var sampleProducts = []sampleProduct{
	{"Laptop", "High performance laptop", "999.99", 10, "Electronics", "Apex", true},
	{"Mouse", "Wireless mouse", "29.99", 50, "Electronics", "Apex", false},
	{"Keyboard", "Mechanical keyboard", "79.99", 25, "Electronics", "Keyforge", false},
	{"T-Shirt", "Cotton t-shirt", "19.99", 100, "Clothing", "Basics", false},
	{"Jeans", "Denim jeans", "49.99", 75, "Clothing", "Basics", true},
}

// SeedSampleProducts fills an empty catalog with a few demo products and
// returns how many were inserted.
func SeedSampleProducts(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&n); err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	for _, p := range sampleProducts {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO products (name, description, price, stock, category, brand, featured) VALUES (?, ?, ?, ?, ?, ?, ?)",
			p.name, p.description, p.price, p.stock, p.category, p.brand, p.featured); err != nil {
			return 0, err
		}
	}
	return len(sampleProducts), nil
}
