package service

import (
	"math"
	"sort"
	"strings"

	"Qoyllur-Map/internal/domain/helper"
	"Qoyllur-Map/internal/domain/model"
)

// MissingCoordinatesShown 優先度グループごとに表示する件数
const MissingCoordinatesShown = 5

// MostCommonUnavailable 場所が1件もない場合の最多カテゴリ表示
const MostCommonUnavailable = "N/A"

// coordinatePriorityTypes 座標補完の優先度とその対象となる型名
// カテゴリ名の完全一致、またはサブタイプへの部分一致で判定する
var coordinatePriorityTypes = []struct {
	priority model.CoordinatePriority
	types    []string
}{
	{model.PriorityHigh, []string{"Santuario", "Localidad", "Iglesia"}},
	{model.PriorityMedium, []string{"LugarRitual", "Glaciar"}},
	{model.PriorityLow, []string{"Capilla", "Cementerio", "Plaza"}},
}

// PlaceReportService は読み込んだ場所の統計とデータ品質レポートを作成する
type PlaceReportService struct{}

// NewPlaceReportService は新しいPlaceReportServiceインスタンスを作成
func NewPlaceReportService() *PlaceReportService {
	return &PlaceReportService{}
}

// Stats 件数、座標の有無、カテゴリ分布を集計する
// 分布は件数の多い順（同数はカテゴリ名順）
func (s *PlaceReportService) Stats(places []*model.Place) *model.PlaceStats {
	withCoords := len(helper.WithLocation(places))
	stats := &model.PlaceStats{
		Total:              len(places),
		WithCoordinates:    withCoords,
		WithoutCoordinates: len(places) - withCoords,
		MostCommon:         MostCommonUnavailable,
		Distribution:       []model.CategoryCount{},
	}
	if len(places) == 0 {
		return stats
	}

	for category, count := range helper.CountByCategory(places) {
		stats.Distribution = append(stats.Distribution, model.CategoryCount{
			Category:   category,
			Label:      category.Label(),
			Count:      count,
			Percentage: roundTo(float64(count)/float64(len(places))*100, 1),
		})
	}
	sort.Slice(stats.Distribution, func(i, j int) bool {
		di, dj := stats.Distribution[i], stats.Distribution[j]
		if di.Count != dj.Count {
			return di.Count > dj.Count
		}
		return di.Label < dj.Label
	})
	stats.MostCommon = stats.Distribution[0].Label

	return stats
}

// MissingCoordinates 座標のない場所を補完の優先度ごとにまとめる
// 1つの場所が複数の優先度に該当する場合はそれぞれに含める
func (s *PlaceReportService) MissingCoordinates(places []*model.Place) *model.MissingCoordinatesReport {
	missing := helper.WithoutLocation(places)
	report := &model.MissingCoordinatesReport{
		Total:         len(places),
		Missing:       len(missing),
		Groups:        []model.MissingCoordinatesGroup{},
		TierAMissing:  []*model.Place{},
		AllHaveCoords: len(missing) == 0,
	}
	if report.AllHaveCoords {
		return report
	}

	for _, pt := range coordinatePriorityTypes {
		var matched []*model.Place
		for _, p := range missing {
			if matchesAnyType(p, pt.types) {
				matched = append(matched, p)
			}
		}
		if len(matched) == 0 {
			continue
		}

		group := model.MissingCoordinatesGroup{Priority: pt.priority, Places: matched}
		if len(matched) > MissingCoordinatesShown {
			group.Places = matched[:MissingCoordinatesShown]
			group.Remaining = len(matched) - MissingCoordinatesShown
		}
		report.Groups = append(report.Groups, group)
	}

	for _, p := range missing {
		if p.Tier == model.TierA {
			report.TierAMissing = append(report.TierAMissing, p)
		}
	}

	return report
}

func matchesAnyType(p *model.Place, types []string) bool {
	label := p.Category.Label()
	specific := p.GetSpecificType()
	for _, t := range types {
		if label == t {
			return true
		}
		if specific != "" && strings.Contains(specific, t) {
			return true
		}
	}
	return false
}

func roundTo(v float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.Round(v*scale) / scale
}
