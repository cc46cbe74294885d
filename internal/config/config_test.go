package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Qoyllur-Map/internal/domain/model"
)

func TestFromEnv(t *testing.T) {
	t.Run("既定値", func(t *testing.T) {
		for _, key := range []string{"PORT", "GRAPH_URL", "CLUSTER_PRECISION", "CLICK_TOLERANCE",
			"NEAR_TIE_RATIO", "MAX_CLICK_CANDIDATES", "HTTP_TIMEOUT_SECONDS", "MAP_LAYERS_FILE", "DATABASE_URL"} {
			t.Setenv(key, "")
		}

		cfg, err := FromEnv()
		require.NoError(t, err)

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, DefaultGraphURL, cfg.GraphURL)
		assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
		assert.Empty(t, cfg.DatabaseURL)
		assert.Equal(t, DefaultClusterConfig(), cfg.Cluster)
		assert.Equal(t, 5, cfg.Cluster.Precision)
		assert.Equal(t, 0.001, cfg.Cluster.Tolerance)
		assert.Equal(t, 0.5, cfg.Cluster.NearTieRatio)
		assert.Equal(t, 3, cfg.Cluster.MaxCandidates)
		require.NotNil(t, cfg.Layers)
		assert.Equal(t, "Relieve", cfg.Layers.DefaultStyle)
	})

	t.Run("環境変数で上書きできる", func(t *testing.T) {
		t.Setenv("PORT", "9090")
		t.Setenv("CLUSTER_PRECISION", "4")
		t.Setenv("CLICK_TOLERANCE", "0.002")
		t.Setenv("NEAR_TIE_RATIO", "0.25")
		t.Setenv("MAX_CLICK_CANDIDATES", "5")
		t.Setenv("HTTP_TIMEOUT_SECONDS", "10")

		cfg, err := FromEnv()
		require.NoError(t, err)

		assert.Equal(t, "9090", cfg.Port)
		assert.Equal(t, ClusterConfig{Precision: 4, Tolerance: 0.002, NearTieRatio: 0.25, MaxCandidates: 5}, cfg.Cluster)
		assert.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	})

	t.Run("不正な値はエラー", func(t *testing.T) {
		tests := map[string]string{
			"CLUSTER_PRECISION":    "cinco",
			"CLICK_TOLERANCE":      "-1",
			"NEAR_TIE_RATIO":       "2",
			"MAX_CLICK_CANDIDATES": "1",
			"HTTP_TIMEOUT_SECONDS": "0",
		}
		for key, value := range tests {
			t.Run(key, func(t *testing.T) {
				t.Setenv(key, value)
				_, err := FromEnv()
				assert.Error(t, err)
			})
		}
	})
}

func TestFromEnv_NonFinite(t *testing.T) {
	for _, key := range []string{"CLICK_TOLERANCE", "NEAR_TIE_RATIO"} {
		for _, value := range []string{"NaN", "nan", "Inf", "-Inf", "+Infinity"} {
			t.Run(key+"="+value, func(t *testing.T) {
				t.Setenv(key, value)
				_, err := FromEnv()
				assert.Error(t, err)
			})
		}
	}
}

func TestClusterConfig_Validate(t *testing.T) {
	t.Run("既定値は有効", func(t *testing.T) {
		assert.NoError(t, DefaultClusterConfig().Validate())
	})

	t.Run("有限でない値は無効", func(t *testing.T) {
		cfg := DefaultClusterConfig()
		cfg.Tolerance = math.NaN()
		assert.Error(t, cfg.Validate())

		cfg = DefaultClusterConfig()
		cfg.Tolerance = math.Inf(1)
		assert.Error(t, cfg.Validate())

		cfg = DefaultClusterConfig()
		cfg.NearTieRatio = math.NaN()
		assert.Error(t, cfg.Validate())
	})
}

func TestLayers(t *testing.T) {
	t.Run("埋め込みの既定レイヤー", func(t *testing.T) {
		layers, err := LoadLayers("")
		require.NoError(t, err)

		assert.Len(t, layers.Layers, 5)
		layer, ok := layers.Layer("Topográfico")
		assert.True(t, ok)
		assert.Contains(t, layer.URL, "opentopomap")

		_, ok = layers.Layer("Inexistente")
		assert.False(t, ok)
	})

	t.Run("全カテゴリにスタイルがある", func(t *testing.T) {
		layers, err := LoadLayers("")
		require.NoError(t, err)

		for _, c := range model.GetAllCategories() {
			assert.Contains(t, layers.Styles, string(c))
		}
		assert.Equal(t, "#e74c3c", layers.StyleFor(model.CategoryShrine).Color)
		assert.Equal(t, layers.FallbackStyle, layers.StyleFor(model.Category("desconocido")))
	})

	t.Run("ファイルから読み込む", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "layers.yaml")
		yaml := `
layers:
  - name: OSM
    url: https://tile.openstreetmap.org/{z}/{x}/{y}.png
    attribution: OpenStreetMap
fallback_style: {color: "#000000", marker: black, icon: circle}
`
		require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

		layers, err := LoadLayers(path)
		require.NoError(t, err)
		assert.Equal(t, "OSM", layers.DefaultStyle)
		assert.Equal(t, "black", layers.StyleFor(model.CategoryShrine).Marker)
	})

	t.Run("不正な設定はエラー", func(t *testing.T) {
		_, err := ParseLayers([]byte("layers: []"))
		assert.Error(t, err)

		_, err = ParseLayers([]byte("default_style: Nada\nlayers:\n  - name: OSM\n    url: https://x/{z}/{x}/{y}.png\n"))
		assert.Error(t, err)

		_, err = LoadLayers(filepath.Join(t.TempDir(), "no-existe.yaml"))
		assert.Error(t, err)
	})
}
