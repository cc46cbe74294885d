package model

import "time"

// LoadGraphRequest はグラフ読み込みAPIのリクエストボディ
type LoadGraphRequest struct {
	URL string `json:"url"` // 空の場合は設定の既定URLを使用
}

// LoadGraphResponse はグラフ読み込みAPIのレスポンス
type LoadGraphResponse struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	SourceURL   string    `json:"source_url"`
	TripleCount int       `json:"triple_count"`
	PlaceCount  int       `json:"place_count"`
	LoadedAt    time.Time `json:"loaded_at,omitempty"`
}

// ClickRequest は地図クリックAPIのリクエストボディ
type ClickRequest struct {
	Lat *float64 `json:"lat"`
	Lng *float64 `json:"lng"`
}

// PlaceDetail 詳細パネル用の場所と関連情報
type PlaceDetail struct {
	Place          *Place          `json:"place"`
	Relations      *RelationBundle `json:"relations"`
	DistanceMeters float64         `json:"distance_meters"`
}

// ClickResponse は地図クリックAPIのレスポンス
type ClickResponse struct {
	Status  ClickStatus   `json:"status"`
	Message string        `json:"message,omitempty"`
	Details []PlaceDetail `json:"details"`
}

// UpdateMapViewRequest は表示設定更新APIのリクエストボディ（nilの項目は変更しない）
type UpdateMapViewRequest struct {
	CenterLat  *float64 `json:"center_lat"`
	CenterLng  *float64 `json:"center_lng"`
	Zoom       *int     `json:"zoom"`
	Style      *string  `json:"style"`
	Categories []string `json:"categories"`
}

// CategoryCount カテゴリごとの件数
type CategoryCount struct {
	Category   Category `json:"category"`
	Label      string   `json:"label"`
	Count      int      `json:"count"`
	Percentage float64  `json:"percentage"`
}

// PlaceStats 読み込んだ場所の統計
type PlaceStats struct {
	Total              int             `json:"total"`
	WithCoordinates    int             `json:"with_coordinates"`
	WithoutCoordinates int             `json:"without_coordinates"`
	MostCommon         string          `json:"most_common"`
	Distribution       []CategoryCount `json:"distribution"`
}

// CoordinatePriority 座標欠損の対応優先度
type CoordinatePriority string

const (
	PriorityHigh   CoordinatePriority = "ALTA"
	PriorityMedium CoordinatePriority = "MEDIA"
	PriorityLow    CoordinatePriority = "BAJA"
)

// MissingCoordinatesGroup 優先度ごとの座標欠損リスト
type MissingCoordinatesGroup struct {
	Priority  CoordinatePriority `json:"priority"`
	Places    []*Place           `json:"places"`    // 表示分のみ
	Remaining int                `json:"remaining"` // 表示しきれなかった件数
}

// MissingCoordinatesReport 座標が欠けている場所のレポート
type MissingCoordinatesReport struct {
	Total         int                       `json:"total"`
	Missing       int                       `json:"missing"`
	Groups        []MissingCoordinatesGroup `json:"groups"`
	TierAMissing  []*Place                  `json:"tier_a_missing"`
	AllHaveCoords bool                      `json:"all_have_coordinates"`
}
