package service

import (
	"math"
	"sort"

	"Qoyllur-Map/internal/config"
	"Qoyllur-Map/internal/domain/helper"
	"Qoyllur-Map/internal/domain/model"
)

// ClusterService は場所を丸め座標でまとめ、クリック位置から場所を解決する
type ClusterService struct {
	cfg   config.ClusterConfig
	scale float64
}

// NewClusterService は新しいClusterServiceインスタンスを作成
func NewClusterService(cfg config.ClusterConfig) *ClusterService {
	return &ClusterService{
		cfg:   cfg,
		scale: math.Pow10(cfg.Precision),
	}
}

// Config 使用中の設定
func (s *ClusterService) Config() config.ClusterConfig {
	return s.cfg
}

// KeyFor 座標を設定桁数に丸めたキーを返す
func (s *ClusterService) KeyFor(loc model.LatLng) model.ClusterKey {
	return model.ClusterKey{
		LatE: int64(math.Round(loc.Lat * s.scale)),
		LngE: int64(math.Round(loc.Lng * s.scale)),
	}
}

// KeyLocation キーに対応する丸めた座標
func (s *ClusterService) KeyLocation(key model.ClusterKey) model.LatLng {
	return model.LatLng{
		Lat: float64(key.LatE) / s.scale,
		Lng: float64(key.LngE) / s.scale,
	}
}

// BuildClusters は座標を持つ場所を丸め座標ごとにまとめる
// 出力順はキーが最初に現れた順（入力の並び順を維持）
func (s *ClusterService) BuildClusters(places []*model.Place) []*model.Cluster {
	var clusters []*model.Cluster
	index := make(map[model.ClusterKey]*model.Cluster)

	for _, p := range helper.WithLocation(places) {
		key := s.KeyFor(*p.Location)
		cluster, ok := index[key]
		if !ok {
			cluster = &model.Cluster{
				Key:      key,
				Location: s.KeyLocation(key),
			}
			index[key] = cluster
			clusters = append(clusters, cluster)
		}
		cluster.Places = append(cluster.Places, p)
	}

	return clusters
}

// ResolveClick はクリック位置から許容半径内の場所を距離順に解決する
//   - 0件: none
//   - 1件、または最近傍が次点の NearTieRatio 倍未満: single
//   - それ以外: multiple（最大 MaxCandidates 件）
func (s *ClusterService) ResolveClick(places []*model.Place, click model.LatLng) *model.ClickResolution {
	var candidates []model.ClickCandidate
	for _, p := range helper.WithLocation(places) {
		d := helper.PlanarDistance(*p.Location, click)
		if d < s.cfg.Tolerance {
			candidates = append(candidates, model.ClickCandidate{
				Place:          p,
				Distance:       d,
				DistanceMeters: helper.GeodesicDistance(*p.Location, click),
			})
		}
	}

	resolution := &model.ClickResolution{
		Click:      click,
		Status:     model.ClickNone,
		Candidates: []model.ClickCandidate{},
	}
	if len(candidates) == 0 {
		return resolution
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	if len(candidates) == 1 || candidates[0].Distance < candidates[1].Distance*s.cfg.NearTieRatio {
		resolution.Status = model.ClickSingle
		resolution.Candidates = candidates[:1]
		return resolution
	}

	if len(candidates) > s.cfg.MaxCandidates {
		candidates = candidates[:s.cfg.MaxCandidates]
	}
	resolution.Status = model.ClickMultiple
	resolution.Candidates = candidates
	return resolution
}
