package repository

import (
	"context"

	"Qoyllur-Map/internal/domain/model"
)

// PlaceSnapshotRepository は抽出した場所一覧を外部DBへ保存するリポジトリ
type PlaceSnapshotRepository interface {
	// 読み込み元URLの場所一覧を丸ごと置き換える
	ReplaceSnapshot(ctx context.Context, sourceURL string, places []*model.Place) error

	// 指定座標の周辺にある保存済みの場所を取得する
	FindNearby(ctx context.Context, location model.LatLng, radiusMeters int, limit int) ([]*model.Place, error)
}
