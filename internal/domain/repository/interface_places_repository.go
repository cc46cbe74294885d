package repository

import (
	"context"

	"Qoyllur-Map/internal/domain/model"
)

// PlacesRepository は読み込み済みグラフから場所と関連情報を取得するリポジトリ
type PlacesRepository interface {
	// 全ての場所をカテゴリ名、場所名の順で取得する
	ListPlaces(ctx context.Context) ([]*model.Place, error)

	// 指定された場所の関連情報を取得する（キャッシュしない）
	GetRelations(ctx context.Context, placeURI string) (*model.RelationBundle, error)
}
