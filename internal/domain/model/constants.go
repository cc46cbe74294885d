package model

import "strings"

// 語彙の名前空間
const (
	FestivalNamespace = "http://example.org/festividades#"
	GeoNamespace      = "http://www.w3.org/2003/01/geo/wgs84_pos#"
	RDFSNamespace     = "http://www.w3.org/2000/01/rdf-schema#"
	RDFNamespace      = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
)

// Category 場所の一般カテゴリ（固定の閉じた集合）
type Category string

// CategoryConstants はアプリケーションで使用するカテゴリの定数
const (
	CategorySettlement Category = "settlement"
	CategoryGlacier    Category = "glacier"
	CategoryShrine     Category = "shrine"
	CategoryChurch     Category = "church"
	CategoryRoute      Category = "route"
	CategoryPlace      Category = "place"
)

// CategoryPriority はカテゴリ判定の優先順位（先に一致したものが勝つ）
// CategoryPlace は最後のフォールバックなので含めない
var CategoryPriority = []Category{
	CategorySettlement,
	CategoryGlacier,
	CategoryShrine,
	CategoryChurch,
	CategoryRoute,
}

// categoryClassMap はカテゴリIDからオントロジーのクラス名へのマッピング
var categoryClassMap = map[Category]string{
	CategorySettlement: "Localidad",
	CategoryGlacier:    "Glaciar",
	CategoryShrine:     "Santuario",
	CategoryChurch:     "Iglesia",
	CategoryRoute:      "Ruta",
	CategoryPlace:      "Lugar",
}

// categoryDescriptionMap は凡例に表示する説明
var categoryDescriptionMap = map[Category]string{
	CategorySettlement: "Poblados y comunidades",
	CategoryGlacier:    "Áreas de hielo ritual",
	CategoryShrine:     "Espacios sagrados",
	CategoryChurch:     "Templos y capillas",
	CategoryRoute:      "Caminos rituales",
	CategoryPlace:      "Otros espacios",
}

// ClassIRI カテゴリに対応するクラスのIRI
func (c Category) ClassIRI() string {
	return FestivalNamespace + c.Label()
}

// Label オントロジー上のクラス名（表示名を兼ねる）
func (c Category) Label() string {
	if name, ok := categoryClassMap[c]; ok {
		return name
	}
	return string(c) // 不明なカテゴリはそのまま返す
}

// Description カテゴリの説明文
func (c Category) Description() string {
	return categoryDescriptionMap[c]
}

// IsValid 固定集合に含まれるカテゴリかチェック
func (c Category) IsValid() bool {
	_, ok := categoryClassMap[c]
	return ok
}

// ParseCategory IDまたはクラス名からカテゴリを取得する
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for c, name := range categoryClassMap {
		if strings.EqualFold(s, string(c)) || strings.EqualFold(s, name) {
			return c, true
		}
	}
	return "", false
}

// GetAllCategories は全カテゴリの一覧を取得する
func GetAllCategories() []Category {
	categories := make([]Category, 0, len(CategoryPriority)+1)
	categories = append(categories, CategoryPriority...)
	categories = append(categories, CategoryPlace)
	return categories
}

// Tier 重要度（A > B > C、または未指定）
type Tier string

const (
	TierA           Tier = "A"
	TierB           Tier = "B"
	TierC           Tier = "C"
	TierUnspecified Tier = "No especificado"
)

var tierDescriptionMap = map[Tier]string{
	TierA:           "Entidades centrales",
	TierB:           "Contextuales",
	TierC:           "Estructurales",
	TierUnspecified: "Sin nivel asignado",
}

// ParseTier リテラル値から重要度を取得する（範囲外は未指定）
func ParseTier(s string) Tier {
	switch Tier(strings.ToUpper(strings.TrimSpace(s))) {
	case TierA:
		return TierA
	case TierB:
		return TierB
	case TierC:
		return TierC
	default:
		return TierUnspecified
	}
}

// Rank 並び替え用の順位（小さいほど重要）
func (t Tier) Rank() int {
	switch t {
	case TierA:
		return 0
	case TierB:
		return 1
	case TierC:
		return 2
	default:
		return 3
	}
}

// Description 重要度の説明文
func (t Tier) Description() string {
	return tierDescriptionMap[t]
}

// GetAllTiers は全重要度の一覧を取得する
func GetAllTiers() []Tier {
	return []Tier{TierA, TierB, TierC, TierUnspecified}
}

// 欠損値の既定表示
const (
	DefaultDescription = "Sin descripción"
)
