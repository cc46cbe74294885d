package model

// ClusterKey 丸めた座標（整数化済み）による同一地点判定キー
type ClusterKey struct {
	LatE int64 `json:"lat_e"`
	LngE int64 `json:"lng_e"`
}

// Cluster 同じキーに丸められた場所のまとまり（1マーカーに対応）
type Cluster struct {
	Key      ClusterKey `json:"key"`
	Location LatLng     `json:"location"` // 丸めた座標
	Places   []*Place   `json:"places"`
}

// IsSingle 単一の場所だけを含むかチェック
func (c *Cluster) IsSingle() bool {
	return len(c.Places) == 1
}

// ClickStatus クリック解決の結果種別
type ClickStatus string

const (
	ClickNone     ClickStatus = "none"
	ClickSingle   ClickStatus = "single"
	ClickMultiple ClickStatus = "multiple"
)

// ClickCandidate クリック位置の近傍にあった場所
type ClickCandidate struct {
	Place          *Place  `json:"place"`
	Distance       float64 `json:"distance"`        // 度単位の平面距離
	DistanceMeters float64 `json:"distance_meters"` // 表示用の測地距離
}

// ClickResolution クリック位置から解決した場所
type ClickResolution struct {
	Click      LatLng           `json:"click"`
	Status     ClickStatus      `json:"status"`
	Candidates []ClickCandidate `json:"candidates"`
}

// Selected 単一解決時の場所（それ以外はnil）
func (r *ClickResolution) Selected() *Place {
	if r.Status == ClickSingle && len(r.Candidates) > 0 {
		return r.Candidates[0].Place
	}
	return nil
}

// MapView 地図の表示設定（中心、ズーム、スタイル）
type MapView struct {
	Center LatLng `json:"center"`
	Zoom   int    `json:"zoom"`
	Style  string `json:"style"`
}

// 地図表示の既定値
const (
	DefaultCenterLat = -13.53
	DefaultCenterLng = -71.97
	DefaultZoom      = 10
	MinZoom          = 8
	MaxZoom          = 15
)

// DefaultMapView 既定の表示設定
func DefaultMapView(style string) MapView {
	return MapView{
		Center: LatLng{Lat: DefaultCenterLat, Lng: DefaultCenterLng},
		Zoom:   DefaultZoom,
		Style:  style,
	}
}

// ClampZoom ズームを許容範囲に収める
func ClampZoom(zoom int) int {
	if zoom < MinZoom {
		return MinZoom
	}
	if zoom > MaxZoom {
		return MaxZoom
	}
	return zoom
}
