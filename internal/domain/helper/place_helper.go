package helper

import (
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"Qoyllur-Map/internal/domain/model"
)

// ToPoint LatLngをorb.Pointに変換する（orbは[lon, lat]の順）
func ToPoint(l model.LatLng) orb.Point {
	return orb.Point{l.Lng, l.Lat}
}

// PlanarDistance は度単位の差分に対する平面ユークリッド距離を計算する
// 調査範囲が数十km程度なので測地補正は行わない
func PlanarDistance(p1, p2 model.LatLng) float64 {
	return planar.Distance(ToPoint(p1), ToPoint(p2))
}

// GeodesicDistance は2地点間の距離を計算する (m)
// 表示用のみで、クリック判定には使わない
func GeodesicDistance(p1, p2 model.LatLng) float64 {
	return geo.DistanceHaversine(ToPoint(p1), ToPoint(p2))
}

// WithLocation は座標を持つ場所のみを抽出する
func WithLocation(places []*model.Place) []*model.Place {
	var filtered []*model.Place
	for _, p := range places {
		if p != nil && p.HasLocation() {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// WithoutLocation は座標を持たない場所のみを抽出する
func WithoutLocation(places []*model.Place) []*model.Place {
	var filtered []*model.Place
	for _, p := range places {
		if p != nil && !p.HasLocation() {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// FilterByCategory は指定されたカテゴリの場所のみを抽出する（空なら全件）
func FilterByCategory(places []*model.Place, categories []model.Category) []*model.Place {
	if len(categories) == 0 {
		return places
	}
	catSet := make(map[model.Category]struct{})
	for _, c := range categories {
		catSet[c] = struct{}{}
	}
	var filtered []*model.Place
	for _, p := range places {
		if _, ok := catSet[p.Category]; ok {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// FilterByTier は指定された重要度の場所のみを抽出する
func FilterByTier(places []*model.Place, tier model.Tier) []*model.Place {
	var filtered []*model.Place
	for _, p := range places {
		if p.Tier == tier {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// SortPlaces はカテゴリ名、場所名の順でソートする
func SortPlaces(places []*model.Place) {
	sort.SliceStable(places, func(i, j int) bool {
		ci, cj := places[i].Category.Label(), places[j].Category.Label()
		if ci != cj {
			return ci < cj
		}
		return places[i].Name < places[j].Name
	})
}

// FindByURI はURIに一致する場所を返す
func FindByURI(places []*model.Place, uri string) *model.Place {
	for _, p := range places {
		if p.URI == uri {
			return p
		}
	}
	return nil
}

// CountByCategory はカテゴリごとの件数を数える
func CountByCategory(places []*model.Place) map[model.Category]int {
	counts := make(map[model.Category]int)
	for _, p := range places {
		counts[p.Category]++
	}
	return counts
}

// Bound は座標を持つ場所全体を囲む境界ボックスを返す
func Bound(places []*model.Place) (orb.Bound, bool) {
	var points orb.MultiPoint
	for _, p := range places {
		if p.HasLocation() {
			points = append(points, ToPoint(*p.Location))
		}
	}
	if len(points) == 0 {
		return orb.Bound{}, false
	}
	return points.Bound(), true
}
