package repository

import (
	"encoding/json"

	"github.com/paulmach/orb"

	"Qoyllur-Map/internal/domain/helper"
	"Qoyllur-Map/internal/domain/model"
)

// GeoPoint PostGIS POINT 型の JSON 表現
type GeoPoint struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// GeoPolygon PostGIS POLYGON 型の JSON 表現
type GeoPolygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// LocationToGeoPoint model.LatLng を PostGIS POINT 形式に変換
func LocationToGeoPoint(location *model.LatLng) *GeoPoint {
	if location == nil {
		return nil
	}

	point := helper.ToPoint(*location)

	return &GeoPoint{
		Type:        "Point",
		Coordinates: []float64{point.Lon(), point.Lat()},
	}
}

// GeoPointToLocation PostGIS POINT を model.LatLng に変換
func GeoPointToLocation(geoPoint *GeoPoint) *model.LatLng {
	if geoPoint == nil || len(geoPoint.Coordinates) < 2 {
		return nil
	}

	// orb.Point として解析
	point := orb.Point{geoPoint.Coordinates[0], geoPoint.Coordinates[1]}

	return &model.LatLng{
		Lat: point.Lat(),
		Lng: point.Lon(),
	}
}

// CreateBoundingBoxPolygon 座標を持つ場所全体を囲む境界ボックスを作成
func CreateBoundingBoxPolygon(places []*model.Place) *GeoPolygon {
	bound, ok := helper.Bound(places)
	if !ok {
		return nil
	}

	// 少し余裕を持たせる（約100m程度）
	padding := 0.001 // 約111m
	bound = bound.Pad(padding)

	minLng := bound.Min.Lon()
	minLat := bound.Min.Lat()
	maxLng := bound.Max.Lon()
	maxLat := bound.Max.Lat()

	coordinates := [][][]float64{
		{
			{minLng, minLat}, // 左下
			{maxLng, minLat}, // 右下
			{maxLng, maxLat}, // 右上
			{minLng, maxLat}, // 左上
			{minLng, minLat}, // 閉じる
		},
	}

	return &GeoPolygon{
		Type:        "Polygon",
		Coordinates: coordinates,
	}
}

// PlaceDB 場所を DB 保存用に変換した構造体
type PlaceDB struct {
	URI          string
	SourceURL    string
	Name         string
	Category     string
	SpecificType *string
	Description  string
	Tier         string
	LocatedIn    *string
	Location     *string // GeoJSON文字列（座標なしはNULL）
}

// PlaceToPlaceDB model.Place を DB 保存用に変換
func PlaceToPlaceDB(place *model.Place, sourceURL string) (*PlaceDB, error) {
	row := &PlaceDB{
		URI:          place.URI,
		SourceURL:    sourceURL,
		Name:         place.Name,
		Category:     string(place.Category),
		SpecificType: place.SpecificType,
		Description:  place.Description,
		Tier:         string(place.Tier),
		LocatedIn:    place.LocatedIn,
	}

	if geoPoint := LocationToGeoPoint(place.Location); geoPoint != nil {
		b, err := json.Marshal(geoPoint)
		if err != nil {
			return nil, err
		}
		s := string(b)
		row.Location = &s
	}

	return row, nil
}
