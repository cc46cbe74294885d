package model

// LatLng 緯度経度を表す基本的な型
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Place 祭礼に関わる場所（グラフから抽出した1件分のレコード）
type Place struct {
	URI          string   `json:"uri"`                     // 一意な識別子
	Name         string   `json:"name"`                    // 表示名（rdfs:label）
	Location     *LatLng  `json:"location,omitempty"`      // 座標（欠損時はnil）
	Category     Category `json:"category"`                // 一般カテゴリ
	SpecificType *string  `json:"specific_type,omitempty"` // 具体的なサブタイプ（NULLABLE）
	Description  string   `json:"description"`             // 短い説明
	Tier         Tier     `json:"tier"`                    // 重要度
	LocatedIn    *string  `json:"located_in,omitempty"`    // 所属する場所の名前（NULLABLE）
}

// HasLocation 座標が設定されているかチェック
func (p *Place) HasLocation() bool {
	return p.Location != nil
}

// GetSpecificType サブタイプが存在する場合は値を、存在しない場合は空文字列を返す
func (p *Place) GetSpecificType() string {
	if p.SpecificType != nil {
		return *p.SpecificType
	}
	return ""
}

// GetLocatedIn 所属する場所がある場合は名前を、ない場合は空文字列を返す
func (p *Place) GetLocatedIn() string {
	if p.LocatedIn != nil {
		return *p.LocatedIn
	}
	return ""
}

// DisplayType ポップアップ見出し用の種別（サブタイプ優先）
func (p *Place) DisplayType() string {
	if st := p.GetSpecificType(); st != "" {
		return st
	}
	return p.Category.Label()
}

// Fragment URIの#以降（ポップアップのフッターやDOM IDに使用）
func (p *Place) Fragment() string {
	for i := len(p.URI) - 1; i >= 0; i-- {
		if p.URI[i] == '#' || p.URI[i] == '/' {
			return p.URI[i+1:]
		}
	}
	return p.URI
}
