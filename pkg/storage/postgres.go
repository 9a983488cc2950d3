// Copyright 2023 Paolo Fabio Zaino
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	cfg "marketgrab/pkg/config"
	"marketgrab/pkg/models"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS products (
	seq             BIGSERIAL PRIMARY KEY,
	id              TEXT,
	name            TEXT NOT NULL,
	brand           TEXT,
	price           DOUBLE PRECISION,
	price_guessed   BOOLEAN NOT NULL DEFAULT FALSE,
	rating          DOUBLE PRECISION,
	reviews_count   INTEGER,
	url             TEXT NOT NULL,
	url_synthetic   BOOLEAN NOT NULL DEFAULT FALSE,
	image_url       TEXT,
	description     TEXT,
	characteristics JSONB NOT NULL DEFAULT '{}',
	source          TEXT NOT NULL,
	parsed_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_products_source ON products (source);
CREATE INDEX IF NOT EXISTS idx_products_id ON products (id);

CREATE TABLE IF NOT EXISTS places (
	seq           BIGSERIAL PRIMARY KEY,
	id            TEXT,
	name          TEXT NOT NULL,
	address       TEXT,
	phones        JSONB NOT NULL DEFAULT '[]',
	emails        JSONB NOT NULL DEFAULT '[]',
	websites      JSONB NOT NULL DEFAULT '[]',
	category      TEXT,
	rating        DOUBLE PRECISION,
	reviews_count INTEGER,
	lat           DOUBLE PRECISION,
	lon           DOUBLE PRECISION,
	url           TEXT,
	url_synthetic BOOLEAN NOT NULL DEFAULT FALSE,
	description   TEXT,
	working_hours JSONB NOT NULL DEFAULT '{}',
	photos        JSONB NOT NULL DEFAULT '[]',
	source        TEXT NOT NULL,
	parsed_at     TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_places_source ON places (source);
CREATE INDEX IF NOT EXISTS idx_places_id ON places (id);
`

// filterColumns whitelists the fields a query filter may address, keyed by
// the record's JSON field name.
var filterColumns = map[string]string{
	"id":     "id",
	"name":   "name",
	"brand":  "brand",
	"source": "source",
	"url":    "url",
}

// PostgresStore is the shared-deployment backend.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects and ensures the schema exists.
func NewPostgresStore(c cfg.StorageConfig) (*PostgresStore, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := db.Exec(pgSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensuring schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// AppendProducts implements Store.
func (s *PostgresStore) AppendProducts(ctx context.Context, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `INSERT INTO products
		(id, name, brand, price, price_guessed, rating, reviews_count,
		 url, url_synthetic, image_url, description, characteristics, source, parsed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`
	for _, p := range products {
		chars, err := json.Marshal(p.Characteristics)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, q,
			p.ID, p.Name, p.Brand, p.Price, p.PriceGuessed, p.Rating, p.ReviewsCount,
			p.URL, p.SyntheticURL, p.ImageURL, p.Description, chars, p.Source, p.ParsedAt); err != nil {
			return fmt.Errorf("inserting product %q: %w", p.Name, err)
		}
	}
	return tx.Commit()
}

// AppendPlaces implements Store.
func (s *PostgresStore) AppendPlaces(ctx context.Context, places []models.Place) error {
	if len(places) == 0 {
		return nil
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const q = `INSERT INTO places
		(id, name, address, phones, emails, websites, category, rating, reviews_count,
		 lat, lon, url, url_synthetic, description, working_hours, photos, source, parsed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`
	for _, pl := range places {
		phones, _ := json.Marshal(emptySlice(pl.Phones))
		emails, _ := json.Marshal(emptySlice(pl.Emails))
		websites, _ := json.Marshal(emptySlice(pl.Websites))
		hours, _ := json.Marshal(pl.WorkingHours)
		photos, _ := json.Marshal(emptySlice(pl.Photos))

		var lat, lon interface{}
		if pl.Coordinates != nil {
			lat, lon = pl.Coordinates.Lat, pl.Coordinates.Lon
		}
		if _, err := tx.ExecContext(ctx, q,
			pl.ID, pl.Name, pl.Address, phones, emails, websites, pl.Category,
			pl.Rating, pl.ReviewsCount, lat, lon, pl.URL, pl.SyntheticURL,
			pl.Description, hours, photos, pl.Source, pl.ParsedAt); err != nil {
			return fmt.Errorf("inserting place %q: %w", pl.Name, err)
		}
	}
	return tx.Commit()
}

// QueryProducts implements Store.
func (s *PostgresStore) QueryProducts(ctx context.Context, filter map[string]string) ([]models.Product, error) {
	where, args, err := buildWhere(filter)
	if err != nil {
		return nil, err
	}
	q := `SELECT id, name, brand, price, price_guessed, rating, reviews_count,
		url, url_synthetic, image_url, description, characteristics, source, parsed_at
		FROM products` + where + ` ORDER BY seq`

	rows, err := s.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Product
	for rows.Next() {
		var p models.Product
		var chars []byte
		if err := rows.Scan(&p.ID, &p.Name, &p.Brand, &p.Price, &p.PriceGuessed,
			&p.Rating, &p.ReviewsCount, &p.URL, &p.SyntheticURL, &p.ImageURL,
			&p.Description, &chars, &p.Source, &p.ParsedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(chars, &p.Characteristics); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// QueryPlaces implements Store.
func (s *PostgresStore) QueryPlaces(ctx context.Context, filter map[string]string) ([]models.Place, error) {
	where, args, err := buildWhere(filter)
	if err != nil {
		return nil, err
	}
	q := `SELECT id, name, address, phones, emails, websites, category, rating,
		reviews_count, lat, lon, url, url_synthetic, description, working_hours,
		photos, source, parsed_at FROM places` + where + ` ORDER BY seq`

	rows, err := s.db.QueryxContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Place
	for rows.Next() {
		var pl models.Place
		var phones, emails, websites, hours, photos []byte
		var lat, lon *float64
		if err := rows.Scan(&pl.ID, &pl.Name, &pl.Address, &phones, &emails,
			&websites, &pl.Category, &pl.Rating, &pl.ReviewsCount, &lat, &lon,
			&pl.URL, &pl.SyntheticURL, &pl.Description, &hours, &photos,
			&pl.Source, &pl.ParsedAt); err != nil {
			return nil, err
		}
		json.Unmarshal(phones, &pl.Phones)
		json.Unmarshal(emails, &pl.Emails)
		json.Unmarshal(websites, &pl.Websites)
		json.Unmarshal(hours, &pl.WorkingHours)
		json.Unmarshal(photos, &pl.Photos)
		if lat != nil && lon != nil {
			pl.Coordinates = &models.Coordinates{Lat: *lat, Lon: *lon}
		}
		out = append(out, pl)
	}
	return out, rows.Err()
}

// Clear implements Store.
func (s *PostgresStore) Clear(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "TRUNCATE products, places")
	return err
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// buildWhere turns an exact-match filter into a WHERE clause over the
// whitelisted columns.
func buildWhere(filter map[string]string) (string, []interface{}, error) {
	if len(filter) == 0 {
		return "", nil, nil
	}
	var clauses []string
	var args []interface{}
	i := 1
	for key, value := range filter {
		col, ok := filterColumns[key]
		if !ok {
			return "", nil, fmt.Errorf("unsupported filter field %q", key)
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", col, i))
		args = append(args, value)
		i++
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
