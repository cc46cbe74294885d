package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Qoyllur-Map/internal/domain/model"
)

func TestPlaceReportService_Stats(t *testing.T) {
	svc := NewPlaceReportService()

	t.Run("件数とカテゴリ分布", func(t *testing.T) {
		places := []*model.Place{
			{URI: "1", Category: model.CategorySettlement, Location: &model.LatLng{}},
			{URI: "2", Category: model.CategorySettlement, Location: &model.LatLng{}},
			{URI: "3", Category: model.CategoryShrine},
			{URI: "4", Category: model.CategoryChurch, Location: &model.LatLng{}},
		}

		stats := svc.Stats(places)
		assert.Equal(t, 4, stats.Total)
		assert.Equal(t, 3, stats.WithCoordinates)
		assert.Equal(t, 1, stats.WithoutCoordinates)
		assert.Equal(t, "Localidad", stats.MostCommon)

		require.Len(t, stats.Distribution, 3)
		assert.Equal(t, model.CategorySettlement, stats.Distribution[0].Category)
		assert.Equal(t, 2, stats.Distribution[0].Count)
		assert.Equal(t, 50.0, stats.Distribution[0].Percentage)
		// 同数はカテゴリ名順
		assert.Equal(t, "Iglesia", stats.Distribution[1].Label)
		assert.Equal(t, "Santuario", stats.Distribution[2].Label)
		assert.Equal(t, 25.0, stats.Distribution[2].Percentage)
	})

	t.Run("場所がない場合", func(t *testing.T) {
		stats := svc.Stats(nil)
		assert.Zero(t, stats.Total)
		assert.Equal(t, MostCommonUnavailable, stats.MostCommon)
		assert.NotNil(t, stats.Distribution)
	})
}

func TestPlaceReportService_MissingCoordinates(t *testing.T) {
	svc := NewPlaceReportService()
	capilla := "Capilla"
	lugarRitual := "LugarRitual de altura"

	t.Run("優先度ごとに分類する", func(t *testing.T) {
		places := []*model.Place{
			{URI: "con-coords", Name: "Con coordenadas", Category: model.CategoryShrine, Location: &model.LatLng{}},
			{URI: "s", Name: "Santuario sin coords", Category: model.CategoryShrine, Tier: model.TierA},
			{URI: "g", Name: "Glaciar sin coords", Category: model.CategoryGlacier, Tier: model.TierB},
			{URI: "r", Name: "Apacheta", Category: model.CategoryPlace, SpecificType: &lugarRitual},
			{URI: "c", Name: "Capilla", Category: model.CategoryPlace, SpecificType: &capilla, Tier: model.TierA},
			{URI: "x", Name: "Sin prioridad", Category: model.CategoryRoute},
		}

		report := svc.MissingCoordinates(places)
		assert.Equal(t, 6, report.Total)
		assert.Equal(t, 5, report.Missing)
		assert.False(t, report.AllHaveCoords)

		require.Len(t, report.Groups, 3)
		assert.Equal(t, model.PriorityHigh, report.Groups[0].Priority)
		assert.Equal(t, "s", report.Groups[0].Places[0].URI)
		assert.Equal(t, model.PriorityMedium, report.Groups[1].Priority)
		require.Len(t, report.Groups[1].Places, 2)
		assert.Equal(t, "g", report.Groups[1].Places[0].URI)
		assert.Equal(t, "r", report.Groups[1].Places[1].URI)
		assert.Equal(t, model.PriorityLow, report.Groups[2].Priority)
		assert.Equal(t, "c", report.Groups[2].Places[0].URI)

		require.Len(t, report.TierAMissing, 2)
		assert.Equal(t, "s", report.TierAMissing[0].URI)
		assert.Equal(t, "c", report.TierAMissing[1].URI)
	})

	t.Run("各グループは5件まで表示して残りを数える", func(t *testing.T) {
		var places []*model.Place
		for i := 0; i < 8; i++ {
			places = append(places, &model.Place{URI: fmt.Sprintf("loc-%d", i), Category: model.CategorySettlement})
		}

		report := svc.MissingCoordinates(places)
		require.Len(t, report.Groups, 1)
		assert.Len(t, report.Groups[0].Places, MissingCoordinatesShown)
		assert.Equal(t, 3, report.Groups[0].Remaining)
	})

	t.Run("全件に座標があれば空のレポート", func(t *testing.T) {
		report := svc.MissingCoordinates([]*model.Place{
			{URI: "1", Category: model.CategoryShrine, Location: &model.LatLng{}},
		})
		assert.True(t, report.AllHaveCoords)
		assert.Empty(t, report.Groups)
		assert.Empty(t, report.TierAMissing)
	})
}
