package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"Qoyllur-Map/internal/domain/model"
	"Qoyllur-Map/internal/domain/repository"
	"Qoyllur-Map/internal/infrastructure/database"
)

// PostgresPlacesRepository PostGISを使用した場所スナップショットリポジトリ
type PostgresPlacesRepository struct {
	client *database.PostgreSQLClient
}

// NewPostgresPlacesRepository 新しいPostgresPlacesRepositoryインスタンスを作成
func NewPostgresPlacesRepository(client *database.PostgreSQLClient) *PostgresPlacesRepository {
	return &PostgresPlacesRepository{
		client: client,
	}
}

var _ repository.PlaceSnapshotRepository = (*PostgresPlacesRepository)(nil)

// PlaceResult PostGIS関数の結果を受け取るための構造体
type PlaceResult struct {
	URI            string
	Name           string
	Category       string
	SpecificType   sql.NullString
	Description    string
	Tier           string
	LocatedIn      sql.NullString
	Location       sql.NullString
	DistanceMeters float64
}

// ToPlace PlaceResultをmodel.Placeに変換
func (pr *PlaceResult) ToPlace() (*model.Place, error) {
	place := &model.Place{
		URI:         pr.URI,
		Name:        pr.Name,
		Category:    model.Category(pr.Category),
		Description: pr.Description,
		Tier:        model.ParseTier(pr.Tier),
	}

	if pr.Location.Valid {
		var geoPoint GeoPoint
		if err := json.Unmarshal([]byte(pr.Location.String), &geoPoint); err != nil {
			return nil, fmt.Errorf("location GeoJSONパースエラー: %w", err)
		}
		place.Location = GeoPointToLocation(&geoPoint)
	}
	if pr.SpecificType.Valid {
		place.SpecificType = &pr.SpecificType.String
	}
	if pr.LocatedIn.Valid {
		place.LocatedIn = &pr.LocatedIn.String
	}

	return place, nil
}

// ReplaceSnapshot 読み込み元URLの場所一覧をトランザクション内で置き換える
func (r *PostgresPlacesRepository) ReplaceSnapshot(ctx context.Context, sourceURL string, places []*model.Place) error {
	tx, err := r.client.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始失敗: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM places WHERE source_url = $1`, sourceURL); err != nil {
		return fmt.Errorf("既存スナップショットの削除失敗: %w", err)
	}

	insert := `
		INSERT INTO places (
			uri, source_url, name, category, specific_type, description, tier, located_in, location
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8,
			CASE WHEN $9::text IS NULL THEN NULL ELSE ST_SetSRID(ST_GeomFromGeoJSON($9::text), 4326) END
		)
	`
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("INSERT文の準備失敗: %w", err)
	}
	defer stmt.Close()

	for _, place := range places {
		row, err := PlaceToPlaceDB(place, sourceURL)
		if err != nil {
			return fmt.Errorf("場所 %s の変換失敗: %w", place.URI, err)
		}
		if _, err := stmt.ExecContext(ctx,
			row.URI, row.SourceURL, row.Name, row.Category, row.SpecificType,
			row.Description, row.Tier, row.LocatedIn, row.Location,
		); err != nil {
			return fmt.Errorf("場所 %s の保存失敗: %w", place.URI, err)
		}
	}

	var bounds *string
	if polygon := CreateBoundingBoxPolygon(places); polygon != nil {
		b, err := json.Marshal(polygon)
		if err != nil {
			return fmt.Errorf("境界ボックスJSONマーシャルエラー: %w", err)
		}
		s := string(b)
		bounds = &s
	}

	upsertSource := `
		INSERT INTO place_sources (source_url, place_count, bounds, loaded_at)
		VALUES ($1, $2, CASE WHEN $3::text IS NULL THEN NULL ELSE ST_SetSRID(ST_GeomFromGeoJSON($3::text), 4326) END, NOW())
		ON CONFLICT (source_url) DO UPDATE
		SET place_count = EXCLUDED.place_count, bounds = EXCLUDED.bounds, loaded_at = EXCLUDED.loaded_at
	`
	if _, err := tx.ExecContext(ctx, upsertSource, sourceURL, len(places), bounds); err != nil {
		return fmt.Errorf("読み込み元情報の保存失敗: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミット失敗: %w", err)
	}
	return nil
}

// FindNearby 指定座標の周辺にある保存済みの場所を距離順に取得する
func (r *PostgresPlacesRepository) FindNearby(ctx context.Context, location model.LatLng, radiusMeters int, limit int) ([]*model.Place, error) {
	query := `
		SELECT
			p.uri, p.name, p.category, p.specific_type, p.description, p.tier, p.located_in,
			ST_AsGeoJSON(p.location) as location,
			ST_Distance(
				ST_GeogFromText('POINT(' || $2 || ' ' || $1 || ')'),
				p.location::geography
			) as distance_meters
		FROM places p
		WHERE p.location IS NOT NULL
		AND ST_DWithin(
			ST_GeogFromText('POINT(' || $2 || ' ' || $1 || ')'),
			p.location::geography,
			$3
		)
		ORDER BY distance_meters
		LIMIT $4
	`

	rows, err := r.client.DB.QueryContext(ctx, query, location.Lat, location.Lng, radiusMeters, limit)
	if err != nil {
		return nil, fmt.Errorf("周辺の場所検索失敗: %w", err)
	}
	defer rows.Close()

	var places []*model.Place
	for rows.Next() {
		var result PlaceResult
		err := rows.Scan(&result.URI, &result.Name, &result.Category, &result.SpecificType,
			&result.Description, &result.Tier, &result.LocatedIn, &result.Location, &result.DistanceMeters)
		if err != nil {
			return nil, fmt.Errorf("場所データスキャンエラー: %w", err)
		}

		place, err := result.ToPlace()
		if err != nil {
			return nil, err
		}
		places = append(places, place)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("行イテレーション中のエラー: %w", err)
	}

	return places, nil
}

// Schema スナップショット用テーブルのDDL
const Schema = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS places (
	uri           TEXT NOT NULL,
	source_url    TEXT NOT NULL,
	name          TEXT NOT NULL,
	category      TEXT NOT NULL,
	specific_type TEXT,
	description   TEXT NOT NULL,
	tier          TEXT NOT NULL,
	located_in    TEXT,
	location      GEOMETRY(Point, 4326),
	PRIMARY KEY (source_url, uri)
);

CREATE INDEX IF NOT EXISTS places_location_idx ON places USING GIST (location);

CREATE TABLE IF NOT EXISTS place_sources (
	source_url  TEXT PRIMARY KEY,
	place_count INTEGER NOT NULL,
	bounds      GEOMETRY(Polygon, 4326),
	loaded_at   TIMESTAMPTZ NOT NULL
);
`

// EnsureSchema スナップショット用テーブルを作成する
func (r *PostgresPlacesRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.client.DB.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("スキーマ作成失敗: %w", err)
	}
	return nil
}
