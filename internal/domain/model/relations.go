package model

import "strings"

// NamedEntity 名前と任意の説明を持つ関連エンティティ（儀礼、祭り、ルート、ナシオン）
type NamedEntity struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// GetDescription 説明が存在する場合は値を、存在しない場合は空文字列を返す
func (e NamedEntity) GetDescription() string {
	if e.Description != nil {
		return *e.Description
	}
	return ""
}

// MediaKind 記録資料の種別（コードの部分一致で推定）
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaAudio    MediaKind = "audio"
	MediaDocument MediaKind = "document"
	MediaGeneric  MediaKind = "resource"
)

// mediaCodeMarkers はコードに含まれる目印と種別の対応（先に一致したものが勝つ）
var mediaCodeMarkers = []struct {
	marker string
	kind   MediaKind
}{
	{"-FOTO-", MediaPhoto},
	{"-VID-", MediaVideo},
	{"-AUD-", MediaAudio},
	{"-DOC-", MediaDocument},
}

var mediaKindLabelMap = map[MediaKind]string{
	MediaPhoto:    "📸 Foto",
	MediaVideo:    "🎥 Video",
	MediaAudio:    "🎧 Audio",
	MediaDocument: "📄 Documento",
	MediaGeneric:  "📁 Recurso",
}

// InferMediaKind 資料コードから種別を推定する
func InferMediaKind(code string) MediaKind {
	for _, m := range mediaCodeMarkers {
		if strings.Contains(code, m.marker) {
			return m.kind
		}
	}
	return MediaGeneric
}

// Label 表示用ラベル
func (k MediaKind) Label() string {
	if label, ok := mediaKindLabelMap[k]; ok {
		return label
	}
	return mediaKindLabelMap[MediaGeneric]
}

// MediaResource 場所を記録した資料
type MediaResource struct {
	Code string    `json:"code"`
	Kind MediaKind `json:"kind"`
	Path *string   `json:"path,omitempty"`
}

// RelationBundle ある場所に関連するエンティティ一式（要求ごとに計算し、キャッシュしない）
type RelationBundle struct {
	Events      []NamedEntity   `json:"events"`
	Festivities []NamedEntity   `json:"festivities"`
	Media       []MediaResource `json:"media"`
	LocatedIn   []string        `json:"located_in"`
	Routes      []NamedEntity   `json:"routes"`
	Collectives []NamedEntity   `json:"collectives"`
}

// NewRelationBundle 全リストが空（nilではない）のバンドルを作成
func NewRelationBundle() *RelationBundle {
	return &RelationBundle{
		Events:      []NamedEntity{},
		Festivities: []NamedEntity{},
		Media:       []MediaResource{},
		LocatedIn:   []string{},
		Routes:      []NamedEntity{},
		Collectives: []NamedEntity{},
	}
}

// IsEmpty どのカテゴリにも関連がないかチェック
func (b *RelationBundle) IsEmpty() bool {
	return len(b.Events) == 0 && len(b.Festivities) == 0 && len(b.Media) == 0 &&
		len(b.LocatedIn) == 0 && len(b.Routes) == 0 && len(b.Collectives) == 0
}
