package config

import (
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultGraphURL 既定で読み込むグラフのURL
const DefaultGraphURL = "https://raw.githubusercontent.com/javier-vz/geo_qoyllurity/main/data/grafo.ttl"

// Config アプリケーション全体の設定
type Config struct {
	Port        string
	GinMode     string
	GraphURL    string
	HTTPTimeout time.Duration
	DatabaseURL string // 空ならスナップショット保存を行わない
	LayersFile  string // 空なら埋め込みの既定レイヤーを使用
	Cluster     ClusterConfig
	Layers      *LayersConfig
}

// ClusterConfig 座標の丸めとクリック判定のパラメータ
type ClusterConfig struct {
	Precision     int     // 丸める小数点以下の桁数
	Tolerance     float64 // クリック判定の半径（度）
	NearTieRatio  float64 // 最近傍が次点のこの割合未満なら単一とみなす
	MaxCandidates int     // 複数候補時に提示する最大件数
}

// DefaultClusterConfig 既定のクラスタ設定（小数5桁、約100m、0.5倍、最大3件）
func DefaultClusterConfig() ClusterConfig {
	return ClusterConfig{
		Precision:     5,
		Tolerance:     0.001,
		NearTieRatio:  0.5,
		MaxCandidates: 3,
	}
}

// Validate 設定値の範囲チェック
func (c ClusterConfig) Validate() error {
	if c.Precision < 0 || c.Precision > 8 {
		return fmt.Errorf("CLUSTER_PRECISIONは0から8の範囲で指定してください: %d", c.Precision)
	}
	if math.IsNaN(c.Tolerance) || math.IsInf(c.Tolerance, 0) || c.Tolerance <= 0 {
		return fmt.Errorf("CLICK_TOLERANCEは正の値である必要があります: %v", c.Tolerance)
	}
	if math.IsNaN(c.NearTieRatio) || c.NearTieRatio <= 0 || c.NearTieRatio > 1 {
		return fmt.Errorf("NEAR_TIE_RATIOは0より大きく1以下である必要があります: %v", c.NearTieRatio)
	}
	if c.MaxCandidates < 2 {
		return fmt.Errorf("MAX_CLICK_CANDIDATESは2以上である必要があります: %d", c.MaxCandidates)
	}
	return nil
}

// Load .envと環境変数から設定を読み込む
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️ .envファイルが見つかりません。システム環境変数を使用します")
	}
	return FromEnv()
}

// FromEnv 環境変数から設定を構築する
func FromEnv() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "release"),
		GraphURL:    getEnv("GRAPH_URL", DefaultGraphURL),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		LayersFile:  os.Getenv("MAP_LAYERS_FILE"),
		Cluster:     DefaultClusterConfig(),
	}

	var err error
	if cfg.Cluster.Precision, err = getEnvInt("CLUSTER_PRECISION", cfg.Cluster.Precision); err != nil {
		return nil, err
	}
	if cfg.Cluster.Tolerance, err = getEnvFloat("CLICK_TOLERANCE", cfg.Cluster.Tolerance); err != nil {
		return nil, err
	}
	if cfg.Cluster.NearTieRatio, err = getEnvFloat("NEAR_TIE_RATIO", cfg.Cluster.NearTieRatio); err != nil {
		return nil, err
	}
	if cfg.Cluster.MaxCandidates, err = getEnvInt("MAX_CLICK_CANDIDATES", cfg.Cluster.MaxCandidates); err != nil {
		return nil, err
	}
	if err := cfg.Cluster.Validate(); err != nil {
		return nil, err
	}

	timeoutSec, err := getEnvInt("HTTP_TIMEOUT_SECONDS", 30)
	if err != nil {
		return nil, err
	}
	if timeoutSec <= 0 {
		return nil, fmt.Errorf("HTTP_TIMEOUT_SECONDSは正の整数である必要があります: %d", timeoutSec)
	}
	cfg.HTTPTimeout = time.Duration(timeoutSec) * time.Second

	if cfg.Layers, err = LoadLayers(cfg.LayersFile); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s環境変数が整数ではありません: %q", key, v)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s環境変数が数値ではありません: %q", key, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%s環境変数は有限の数値である必要があります: %q", key, v)
	}
	return f, nil
}
