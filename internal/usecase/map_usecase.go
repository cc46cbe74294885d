package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"Qoyllur-Map/internal/application"
	"Qoyllur-Map/internal/config"
	"Qoyllur-Map/internal/domain/helper"
	"Qoyllur-Map/internal/domain/model"
	"Qoyllur-Map/internal/domain/repository"
	"Qoyllur-Map/internal/domain/service"
	"Qoyllur-Map/internal/infrastructure/graph"
	"Qoyllur-Map/internal/metrics"
	repoImpl "Qoyllur-Map/internal/repository"
)

var (
	// ErrGraphNotLoaded セッションにグラフが読み込まれていない
	ErrGraphNotLoaded = repoImpl.ErrGraphNotLoaded
	// ErrPlaceNotFound 読み込んだ場所の中にURIが存在しない
	ErrPlaceNotFound = errors.New("place not found")
	// ErrInvalidInput リクエストの値が不正
	ErrInvalidInput = errors.New("invalid input")
)

// GraphLoader URLからグラフを読み込む
type GraphLoader interface {
	Load(ctx context.Context, url string) *graph.LoadResult
}

// PlacesRepositoryFactory 読み込んだストアから場所リポジトリを作る
type PlacesRepositoryFactory func(store *graph.Store) repository.PlacesRepository

// LegendEntry 凡例の1行
type LegendEntry struct {
	Category    model.Category     `json:"category"`
	Label       string             `json:"label"`
	Description string             `json:"description"`
	Style       config.MarkerStyle `json:"style"`
}

// LayersResponse ベースレイヤー、現在の表示設定、凡例
type LayersResponse struct {
	Layers         []config.TileLayer `json:"layers"`
	View           model.MapView      `json:"view"`
	CategoryFilter []model.Category   `json:"category_filter"`
	Legend         []LegendEntry      `json:"legend"`
}

// MapUseCase 地図アプリケーションの操作
// すべての操作はセッションのAppStateを受け取り、必要なら書き換える
type MapUseCase interface {
	// LoadGraph はグラフを読み込み、場所を抽出して状態を置き換える
	LoadGraph(ctx context.Context, state *application.AppState, url string) *model.LoadGraphResponse

	// ListPlaces は場所の一覧を返す（カテゴリと重要度で絞り込み可能）
	ListPlaces(state *application.AppState, categories []model.Category, tier string) ([]*model.Place, error)

	// Stats は場所の統計を返す
	Stats(state *application.AppState) (*model.PlaceStats, error)

	// MissingCoordinates は座標欠損レポートを返す
	MissingCoordinates(state *application.AppState) (*model.MissingCoordinatesReport, error)

	// Relations は場所の関連情報を返す
	Relations(ctx context.Context, state *application.AppState, uri string) (*model.RelationBundle, error)

	// Markers は地図に表示するマーカーをGeoJSONで返す
	Markers(ctx context.Context, state *application.AppState) (*geojson.FeatureCollection, error)

	// Click はクリック位置の場所を解決し、詳細を返す
	Click(ctx context.Context, state *application.AppState, click model.LatLng) (*model.ClickResponse, error)

	// UpdateView は表示設定とカテゴリフィルタを更新する
	UpdateView(state *application.AppState, req *model.UpdateMapViewRequest) error

	// Layers はベースレイヤーと凡例を返す
	Layers(state *application.AppState) *LayersResponse
}

// mapUseCaseImpl はMapUseCaseの実装
type mapUseCaseImpl struct {
	loader       GraphLoader
	newPlaces    PlacesRepositoryFactory
	snapshotRepo repository.PlaceSnapshotRepository
	clusters     *service.ClusterService
	popups       *service.PopupRenderer
	reports      *service.PlaceReportService
	cfg          *config.Config
}

// NewMapUseCase は新しいMapUseCaseインスタンスを作成
// snapshotRepo は nil の場合スナップショットを保存しない
func NewMapUseCase(
	cfg *config.Config,
	loader GraphLoader,
	newPlaces PlacesRepositoryFactory,
	snapshotRepo repository.PlaceSnapshotRepository,
) MapUseCase {
	if newPlaces == nil {
		newPlaces = repoImpl.NewGraphPlacesRepository
	}
	return &mapUseCaseImpl{
		loader:       loader,
		newPlaces:    newPlaces,
		snapshotRepo: snapshotRepo,
		clusters:     service.NewClusterService(cfg.Cluster),
		popups:       service.NewPopupRenderer(cfg.Layers),
		reports:      service.NewPlaceReportService(),
		cfg:          cfg,
	}
}

// LoadGraph グラフを読み込み、場所を抽出する
// 失敗は読み込み結果として返し、状態は未読み込みに戻す
func (u *mapUseCaseImpl) LoadGraph(ctx context.Context, state *application.AppState, url string) *model.LoadGraphResponse {
	url = strings.TrimSpace(url)
	if url == "" {
		url = u.cfg.GraphURL
	}
	log.Printf("📥 グラフ読み込み開始: %s", url)
	start := time.Now()

	result := u.loader.Load(ctx, url)
	places, err := u.extractPlaces(ctx, result)
	if err != nil {
		metrics.ObserveGraphLoad(false, time.Since(start), 0)
		state.Reset()
		msg := result.Message
		if result.Success {
			msg = fmt.Sprintf("❌ Error: %v", err)
		}
		return &model.LoadGraphResponse{
			Success:   false,
			Message:   msg,
			SourceURL: url,
		}
	}
	metrics.ObserveGraphLoad(true, time.Since(start), len(places))

	state.Loaded = true
	state.SourceURL = url
	state.TripleCount = result.TripleCount
	state.LoadedAt = time.Now()
	state.Places = places
	state.Store = result.Store
	state.LastClicked = nil

	log.Printf("✅ %d件の場所を抽出 (座標あり: %d件)", len(places), len(helper.WithLocation(places)))
	u.saveSnapshot(ctx, url, places)

	return &model.LoadGraphResponse{
		Success:     true,
		Message:     result.Message,
		SourceURL:   url,
		TripleCount: result.TripleCount,
		PlaceCount:  len(places),
		LoadedAt:    state.LoadedAt,
	}
}

func (u *mapUseCaseImpl) extractPlaces(ctx context.Context, result *graph.LoadResult) ([]*model.Place, error) {
	if !result.Success {
		if result.Err != nil {
			return nil, result.Err
		}
		return nil, errors.New(result.Message)
	}
	places, err := u.newPlaces(result.Store).ListPlaces(ctx)
	if err != nil {
		log.Printf("❌ 場所の抽出に失敗: %v", err)
		return nil, fmt.Errorf("場所の抽出に失敗: %w", err)
	}
	if places == nil {
		places = []*model.Place{}
	}
	return places, nil
}

// saveSnapshot は抽出結果を保存する（失敗しても読み込み自体は成功扱い）
func (u *mapUseCaseImpl) saveSnapshot(ctx context.Context, url string, places []*model.Place) {
	if u.snapshotRepo == nil {
		return
	}
	if err := u.snapshotRepo.ReplaceSnapshot(ctx, url, places); err != nil {
		log.Printf("⚠️ スナップショット保存に失敗: %v", err)
		return
	}
	log.Printf("💾 スナップショットを保存: %d件", len(places))
}

// ListPlaces 場所の一覧
func (u *mapUseCaseImpl) ListPlaces(state *application.AppState, categories []model.Category, tier string) ([]*model.Place, error) {
	if !state.Loaded {
		return nil, ErrGraphNotLoaded
	}
	places := helper.FilterByCategory(state.Places, categories)
	if tier != "" {
		places = helper.FilterByTier(places, model.ParseTier(tier))
	}
	if places == nil {
		places = []*model.Place{}
	}
	return places, nil
}

// Stats 場所の統計
func (u *mapUseCaseImpl) Stats(state *application.AppState) (*model.PlaceStats, error) {
	if !state.Loaded {
		return nil, ErrGraphNotLoaded
	}
	return u.reports.Stats(state.Places), nil
}

// MissingCoordinates 座標欠損レポート
func (u *mapUseCaseImpl) MissingCoordinates(state *application.AppState) (*model.MissingCoordinatesReport, error) {
	if !state.Loaded {
		return nil, ErrGraphNotLoaded
	}
	return u.reports.MissingCoordinates(state.Places), nil
}

// Relations 場所の関連情報（取得エラーは空の関連として扱う）
func (u *mapUseCaseImpl) Relations(ctx context.Context, state *application.AppState, uri string) (*model.RelationBundle, error) {
	if !state.Loaded {
		return nil, ErrGraphNotLoaded
	}
	if strings.TrimSpace(uri) == "" {
		return nil, fmt.Errorf("%w: uri is required", ErrInvalidInput)
	}
	if helper.FindByURI(state.Places, uri) == nil {
		return nil, fmt.Errorf("%w: %s", ErrPlaceNotFound, uri)
	}
	return u.relationsOrEmpty(ctx, state, uri), nil
}

func (u *mapUseCaseImpl) relationsOrEmpty(ctx context.Context, state *application.AppState, uri string) *model.RelationBundle {
	bundle, err := u.newPlaces(state.Store).GetRelations(ctx, uri)
	metrics.ObserveRelationLookup(err)
	if err != nil {
		log.Printf("⚠️ 関連情報の取得に失敗 (%s): %v", uri, err)
		return model.NewRelationBundle()
	}
	return bundle
}

// Markers 表示対象の場所をまとめたマーカー
// 単一地点は詳細ポップアップ、複数地点は選択ポップアップを持つ
func (u *mapUseCaseImpl) Markers(ctx context.Context, state *application.AppState) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()
	if !state.Loaded {
		return fc, nil
	}

	visible := helper.FilterByCategory(state.Places, state.CategoryFilter)
	for _, cluster := range u.clusters.BuildClusters(visible) {
		feature, err := u.markerFeature(ctx, state, cluster)
		if err != nil {
			return nil, err
		}
		fc.Append(feature)
	}

	if bound, ok := helper.Bound(visible); ok {
		fc.BBox = geojson.NewBBox(bound)
	}
	return fc, nil
}

func (u *mapUseCaseImpl) markerFeature(ctx context.Context, state *application.AppState, cluster *model.Cluster) (*geojson.Feature, error) {
	uris := make([]string, 0, len(cluster.Places))
	for _, p := range cluster.Places {
		uris = append(uris, p.URI)
	}

	if cluster.IsSingle() {
		place := cluster.Places[0]
		popup, err := u.popups.RenderSingle(place, u.relationsOrEmpty(ctx, state, place.URI))
		if err != nil {
			return nil, err
		}
		style := u.cfg.Layers.StyleFor(place.Category)

		f := geojson.NewFeature(helper.ToPoint(*place.Location))
		f.ID = place.URI
		f.Properties["tooltip"] = place.Name
		f.Properties["popup_html"] = popup
		f.Properties["color"] = style.Color
		f.Properties["marker"] = style.Marker
		f.Properties["icon"] = style.Icon
		f.Properties["category"] = string(place.Category)
		f.Properties["count"] = 1
		f.Properties["uris"] = uris
		return f, nil
	}

	popup, err := u.popups.RenderGroup(cluster)
	if err != nil {
		return nil, err
	}
	f := geojson.NewFeature(orb.Point{cluster.Location.Lng, cluster.Location.Lat})
	f.Properties["tooltip"] = fmt.Sprintf("%d lugares", len(cluster.Places))
	f.Properties["popup_html"] = popup
	f.Properties["color"] = u.cfg.Layers.FallbackStyle.Color
	f.Properties["marker"] = service.GroupMarkerColor
	f.Properties["icon"] = service.GroupMarkerIcon
	f.Properties["count"] = len(cluster.Places)
	f.Properties["uris"] = uris
	return f, nil
}

// Click クリック位置の解決
// 照合対象は現在のカテゴリフィルタで表示されている場所
func (u *mapUseCaseImpl) Click(ctx context.Context, state *application.AppState, click model.LatLng) (*model.ClickResponse, error) {
	if !state.Loaded {
		return nil, ErrGraphNotLoaded
	}
	if err := validateLatLng(click.Lat, click.Lng); err != nil {
		return nil, err
	}

	visible := helper.FilterByCategory(state.Places, state.CategoryFilter)
	resolution := u.clusters.ResolveClick(visible, click)
	state.LastClicked = resolution
	metrics.ObserveClick(string(resolution.Status))

	resp := &model.ClickResponse{
		Status:  resolution.Status,
		Details: make([]model.PlaceDetail, 0, len(resolution.Candidates)),
	}
	switch resolution.Status {
	case model.ClickNone:
		resp.Message = "No se encontró ningún lugar cerca del clic"
	case model.ClickMultiple:
		resp.Message = fmt.Sprintf("Múltiples lugares (%d) en esta ubicación", len(resolution.Candidates))
	}

	for _, c := range resolution.Candidates {
		resp.Details = append(resp.Details, model.PlaceDetail{
			Place:          c.Place,
			Relations:      u.relationsOrEmpty(ctx, state, c.Place.URI),
			DistanceMeters: c.DistanceMeters,
		})
	}
	return resp, nil
}

// UpdateView 表示設定の更新（指定のない項目は変更しない）
func (u *mapUseCaseImpl) UpdateView(state *application.AppState, req *model.UpdateMapViewRequest) error {
	view := state.MapView

	if (req.CenterLat == nil) != (req.CenterLng == nil) {
		return fmt.Errorf("%w: center_lat と center_lng は同時に指定してください", ErrInvalidInput)
	}
	if req.CenterLat != nil {
		if err := validateLatLng(*req.CenterLat, *req.CenterLng); err != nil {
			return err
		}
		view.Center = model.LatLng{Lat: *req.CenterLat, Lng: *req.CenterLng}
	}
	if req.Zoom != nil {
		view.Zoom = model.ClampZoom(*req.Zoom)
	}
	if req.Style != nil {
		if _, ok := u.cfg.Layers.Layer(*req.Style); !ok {
			return fmt.Errorf("%w: 不明な地図スタイル %q", ErrInvalidInput, *req.Style)
		}
		view.Style = *req.Style
	}

	filter := state.CategoryFilter
	if req.Categories != nil {
		parsed, err := ParseCategories(req.Categories)
		if err != nil {
			return err
		}
		filter = parsed
	}

	state.MapView = view
	state.CategoryFilter = filter
	return nil
}

// Layers ベースレイヤーと凡例
func (u *mapUseCaseImpl) Layers(state *application.AppState) *LayersResponse {
	resp := &LayersResponse{
		Layers:         u.cfg.Layers.Layers,
		View:           state.MapView,
		CategoryFilter: state.CategoryFilter,
	}
	for _, c := range model.GetAllCategories() {
		resp.Legend = append(resp.Legend, LegendEntry{
			Category:    c,
			Label:       c.Label(),
			Description: c.Description(),
			Style:       u.cfg.Layers.StyleFor(c),
		})
	}
	return resp
}

// ParseCategories カテゴリIDまたはクラス名の一覧を変換する
func ParseCategories(values []string) ([]model.Category, error) {
	categories := make([]model.Category, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		c, ok := model.ParseCategory(v)
		if !ok {
			return nil, fmt.Errorf("%w: 不明なカテゴリ %q", ErrInvalidInput, v)
		}
		categories = append(categories, c)
	}
	return categories, nil
}

func validateLatLng(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return fmt.Errorf("%w: 緯度は-90から90の範囲で指定してください: %v", ErrInvalidInput, lat)
	}
	if lng < -180 || lng > 180 {
		return fmt.Errorf("%w: 経度は-180から180の範囲で指定してください: %v", ErrInvalidInput, lng)
	}
	return nil
}
