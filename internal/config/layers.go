package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"Qoyllur-Map/internal/domain/model"
)

//go:embed layers.yaml
var defaultLayersYAML []byte

// TileLayer 名前付きのベース地図
type TileLayer struct {
	Name        string `yaml:"name" json:"name"`
	Title       string `yaml:"title" json:"title"`
	URL         string `yaml:"url" json:"url"`
	Attribution string `yaml:"attribution" json:"attribution"`
}

// MarkerStyle カテゴリごとのマーカー表示
type MarkerStyle struct {
	Color  string `yaml:"color" json:"color"`   // ポップアップ見出しの色
	Marker string `yaml:"marker" json:"marker"` // マーカーアイコンの色名
	Icon   string `yaml:"icon" json:"icon"`     // Font Awesome のアイコン名
}

// LayersConfig ベースレイヤーとマーカースタイルの設定
type LayersConfig struct {
	DefaultStyle  string                 `yaml:"default_style" json:"default_style"`
	Layers        []TileLayer            `yaml:"layers" json:"layers"`
	Styles        map[string]MarkerStyle `yaml:"styles" json:"styles"`
	FallbackStyle MarkerStyle            `yaml:"fallback_style" json:"fallback_style"`
}

// LoadLayers ファイルからレイヤー設定を読み込む（空なら埋め込みの既定値）
func LoadLayers(path string) (*LayersConfig, error) {
	data := defaultLayersYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("レイヤー設定ファイルの読み込みに失敗: %w", err)
		}
		data = b
	}
	return ParseLayers(data)
}

// ParseLayers YAMLをパースして検証する
func ParseLayers(data []byte) (*LayersConfig, error) {
	var cfg LayersConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("レイヤー設定のパースに失敗: %w", err)
	}
	if len(cfg.Layers) == 0 {
		return nil, fmt.Errorf("レイヤーが1つも定義されていません")
	}
	for _, l := range cfg.Layers {
		if l.Name == "" || l.URL == "" {
			return nil, fmt.Errorf("レイヤーには name と url が必須です")
		}
	}
	if cfg.DefaultStyle == "" {
		cfg.DefaultStyle = cfg.Layers[0].Name
	}
	if _, ok := cfg.Layer(cfg.DefaultStyle); !ok {
		return nil, fmt.Errorf("default_style %q がレイヤーに存在しません", cfg.DefaultStyle)
	}
	return &cfg, nil
}

// Layer 名前からレイヤーを取得
func (c *LayersConfig) Layer(name string) (TileLayer, bool) {
	for _, l := range c.Layers {
		if l.Name == name {
			return l, true
		}
	}
	return TileLayer{}, false
}

// StyleFor カテゴリのマーカースタイル（未定義ならフォールバック）
func (c *LayersConfig) StyleFor(category model.Category) MarkerStyle {
	if s, ok := c.Styles[string(category)]; ok {
		return s
	}
	return c.FallbackStyle
}
