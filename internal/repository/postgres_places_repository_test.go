package repository

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Qoyllur-Map/internal/domain/model"
	"Qoyllur-Map/internal/infrastructure/database"
	"Qoyllur-Map/internal/testutil"
)

func TestPlaceToPlaceDB(t *testing.T) {
	t.Run("座標はGeoJSONのPointになる", func(t *testing.T) {
		place := &model.Place{
			URI:      testutil.MahuayaniURI,
			Name:     "Mahuayani",
			Location: &model.LatLng{Lat: -13.6, Lng: -71.23},
			Category: model.CategorySettlement,
			Tier:     model.TierA,
		}

		row, err := PlaceToPlaceDB(place, "http://example.org/grafo.ttl")
		require.NoError(t, err)
		require.NotNil(t, row.Location)

		var point GeoPoint
		require.NoError(t, json.Unmarshal([]byte(*row.Location), &point))
		assert.Equal(t, "Point", point.Type)
		assert.Equal(t, []float64{-71.23, -13.6}, point.Coordinates)
		assert.Equal(t, "settlement", row.Category)
		assert.Equal(t, "A", row.Tier)

		loc := GeoPointToLocation(&point)
		assert.Equal(t, place.Location, loc)
	})

	t.Run("座標なしはNULL", func(t *testing.T) {
		row, err := PlaceToPlaceDB(&model.Place{URI: testutil.ValleSinakaraURI}, "src")
		require.NoError(t, err)
		assert.Nil(t, row.Location)
	})
}

func TestCreateBoundingBoxPolygon(t *testing.T) {
	t.Run("座標のある場所を余白付きで囲む", func(t *testing.T) {
		polygon := CreateBoundingBoxPolygon([]*model.Place{
			{Location: &model.LatLng{Lat: -13.6, Lng: -71.23}},
			{Location: &model.LatLng{Lat: -13.55, Lng: -71.18}},
			{},
		})
		require.NotNil(t, polygon)
		require.Len(t, polygon.Coordinates, 1)

		ring := polygon.Coordinates[0]
		require.Len(t, ring, 5)
		assert.Equal(t, ring[0], ring[4])
		assert.InDelta(t, -71.231, ring[0][0], 1e-9)
		assert.InDelta(t, -13.601, ring[0][1], 1e-9)
		assert.InDelta(t, -71.179, ring[2][0], 1e-9)
		assert.InDelta(t, -13.549, ring[2][1], 1e-9)
	})

	t.Run("座標のある場所がなければnil", func(t *testing.T) {
		assert.Nil(t, CreateBoundingBoxPolygon([]*model.Place{{}}))
	})
}

// DATABASE_URL が設定されている場合のみ実行する（PostGISが必要）
func TestPostgresPlacesRepository_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URLが設定されていないためスキップ")
	}

	client, err := database.NewPostgreSQLClientWithRetry(dsn, 3, time.Second)
	require.NoError(t, err)

	ctx := context.Background()
	repo := NewPostgresPlacesRepository(client)
	require.NoError(t, repo.EnsureSchema(ctx))

	source := "test://qoyllur/" + t.Name()
	t.Cleanup(func() {
		_, _ = client.DB.Exec(`DELETE FROM places WHERE source_url = $1`, source)
		_, _ = client.DB.Exec(`DELETE FROM place_sources WHERE source_url = $1`, source)
		client.Close()
	})

	places := []*model.Place{
		{
			URI:         testutil.MahuayaniURI,
			Name:        "Mahuayani",
			Location:    &model.LatLng{Lat: -13.6, Lng: -71.23},
			Category:    model.CategorySettlement,
			Description: model.DefaultDescription,
			Tier:        model.TierA,
		},
		{
			URI:          testutil.ApachetaURI,
			Name:         "Apacheta de Mahuayani",
			Location:     &model.LatLng{Lat: -13.6001, Lng: -71.2301},
			Category:     model.CategoryPlace,
			SpecificType: testutil.Ptr("Apacheta"),
			Description:  model.DefaultDescription,
			Tier:         model.TierUnspecified,
		},
		{
			URI:         testutil.ValleSinakaraURI,
			Name:        "Valle de Sinakara",
			Category:    model.CategoryPlace,
			Description: model.DefaultDescription,
			Tier:        model.TierA,
		},
	}

	t.Run("スナップショットを置き換えて周辺検索できる", func(t *testing.T) {
		require.NoError(t, repo.ReplaceSnapshot(ctx, source, places))
		// 2回目も同じ結果になる
		require.NoError(t, repo.ReplaceSnapshot(ctx, source, places))

		found, err := repo.FindNearby(ctx, model.LatLng{Lat: -13.6, Lng: -71.23}, 100, 10)
		require.NoError(t, err)

		uris := make([]string, 0, len(found))
		for _, p := range found {
			uris = append(uris, p.URI)
		}
		assert.Contains(t, uris, testutil.MahuayaniURI)
		assert.Contains(t, uris, testutil.ApachetaURI)
		assert.NotContains(t, uris, testutil.ValleSinakaraURI)
	})
}
