package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Qoyllur-Map/internal/application"
	"Qoyllur-Map/internal/config"
	"Qoyllur-Map/internal/infrastructure/graph"
	"Qoyllur-Map/internal/testutil"
	"Qoyllur-Map/internal/usecase"
)

// testClient はセッションクッキーを引き継いでリクエストを送る
type testClient struct {
	t      *testing.T
	router *gin.Engine
	cookie *http.Cookie
}

func setupRouter(t *testing.T) (*testClient, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	layers, err := config.LoadLayers("")
	require.NoError(t, err)
	srv := testutil.NewGraphServer(t)

	cfg := &config.Config{
		GraphURL: srv.URL + "/grafo.ttl",
		Cluster:  config.DefaultClusterConfig(),
		Layers:   layers,
	}
	mapUseCase := usecase.NewMapUseCase(cfg, graph.NewHTTPLoader(5*time.Second), nil, nil)
	sessions := application.NewSessionStore(layers.DefaultStyle)

	router := gin.New()
	NewMapHandler(mapUseCase, sessions, cfg.GraphURL).RegisterRoutes(router)

	return &testClient{t: t, router: router}, srv.URL
}

func (c *testClient) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}

	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	for _, ck := range w.Result().Cookies() {
		if ck.Name == SessionCookieName {
			c.cookie = ck
		}
	}
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func (c *testClient) load(graphURL string) map[string]interface{} {
	c.t.Helper()
	w := c.do(http.MethodPost, "/api/graph/load", gin.H{"url": graphURL})
	require.Equal(c.t, http.StatusOK, w.Code)
	return decode(c.t, w)
}

func TestMapHandler_Health(t *testing.T) {
	client, _ := setupRouter(t)

	w := client.do(http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])
	assert.Nil(t, client.cookie, "ヘルスチェックではセッションを発行しない")
}

func TestMapHandler_Page(t *testing.T) {
	client, baseURL := setupRouter(t)

	w := client.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Mapa Interactivo")
	assert.Contains(t, w.Body.String(), baseURL+"/grafo.ttl")
	require.NotNil(t, client.cookie)
	assert.True(t, application.IsValidID(client.cookie.Value))
}

func TestMapHandler_NotLoaded(t *testing.T) {
	client, _ := setupRouter(t)

	for _, path := range []string{"/api/places", "/api/places/stats", "/api/places/missing-coordinates"} {
		t.Run(path, func(t *testing.T) {
			w := client.do(http.MethodGet, path, nil)
			assert.Equal(t, http.StatusConflict, w.Code)
			assert.Equal(t, "graph_not_loaded", decode(t, w)["error"])
		})
	}

	t.Run("マーカーは空のコレクション", func(t *testing.T) {
		w := client.do(http.MethodGet, "/api/map/markers", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "FeatureCollection", body["type"])
		assert.Empty(t, body["features"])
	})
}

func TestMapHandler_LoadGraph(t *testing.T) {
	t.Run("読み込みに成功", func(t *testing.T) {
		client, baseURL := setupRouter(t)

		body := client.load(baseURL + "/grafo.ttl")
		assert.Equal(t, true, body["success"])
		assert.Equal(t, float64(testutil.FixturePlaceCount), body["place_count"])
	})

	t.Run("ボディなしは既定のURL", func(t *testing.T) {
		client, _ := setupRouter(t)

		w := client.do(http.MethodPost, "/api/graph/load", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, decode(t, w)["success"])
	})

	t.Run("失敗はsuccess=falseで返し、状態を戻す", func(t *testing.T) {
		client, baseURL := setupRouter(t)
		client.load(baseURL + "/grafo.ttl")

		body := client.load(baseURL + "/no-existe.ttl")
		assert.Equal(t, false, body["success"])
		assert.NotEmpty(t, body["message"])

		w := client.do(http.MethodGet, "/api/places", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("不正なJSON", func(t *testing.T) {
		client, _ := setupRouter(t)

		req := httptest.NewRequest(http.MethodPost, "/api/graph/load", bytes.NewBufferString("{url:"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		client.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_request", decode(t, w)["error"])
	})
}

func TestMapHandler_Places(t *testing.T) {
	client, baseURL := setupRouter(t)
	client.load(baseURL + "/grafo.ttl")

	t.Run("一覧", func(t *testing.T) {
		w := client.do(http.MethodGet, "/api/places", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, float64(testutil.FixturePlaceCount), decode(t, w)["count"])
	})

	t.Run("カテゴリの指定方法はどちらでもよい", func(t *testing.T) {
		w1 := client.do(http.MethodGet, "/api/places?category=shrine,glacier", nil)
		w2 := client.do(http.MethodGet, "/api/places?category=shrine&category=Glaciar", nil)
		require.Equal(t, http.StatusOK, w1.Code)
		require.Equal(t, http.StatusOK, w2.Code)
		assert.Equal(t, float64(2), decode(t, w1)["count"])
		assert.Equal(t, float64(2), decode(t, w2)["count"])
	})

	t.Run("不明なカテゴリ", func(t *testing.T) {
		w := client.do(http.MethodGet, "/api/places?category=volcan", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_parameter", decode(t, w)["error"])
	})

	t.Run("統計", func(t *testing.T) {
		w := client.do(http.MethodGet, "/api/places/stats", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, float64(testutil.FixturePlaceCount), body["total"])
		assert.Equal(t, float64(4), body["with_coordinates"])
	})

	t.Run("座標欠損レポート", func(t *testing.T) {
		w := client.do(http.MethodGet, "/api/places/missing-coordinates", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, float64(3), body["missing"])
		assert.Equal(t, false, body["all_have_coordinates"])
	})

	t.Run("関連情報", func(t *testing.T) {
		w := client.do(http.MethodGet, "/api/places/relations?uri="+url.QueryEscape(testutil.SinakaraURI), nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w)["events"], 2)

		w = client.do(http.MethodGet, "/api/places/relations", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "missing_parameter", decode(t, w)["error"])

		w = client.do(http.MethodGet, "/api/places/relations?uri=http%3A%2F%2Fexample.org%2Fx", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestMapHandler_MapFlow(t *testing.T) {
	client, baseURL := setupRouter(t)
	client.load(baseURL + "/grafo.ttl")

	t.Run("マーカー", func(t *testing.T) {
		w := client.do(http.MethodGet, "/api/map/markers", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Len(t, body["features"], 4)
		assert.Len(t, body["bbox"], 4)
	})

	t.Run("クリックで場所を解決", func(t *testing.T) {
		w := client.do(http.MethodPost, "/api/map/click", gin.H{"lat": -13.58, "lng": -71.2})
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "single", body["status"])
		assert.Len(t, body["details"], 1)
	})

	t.Run("クリックのバリデーション", func(t *testing.T) {
		w := client.do(http.MethodPost, "/api/map/click", gin.H{"lat": -13.58})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "validation_error", decode(t, w)["error"])

		w = client.do(http.MethodPost, "/api/map/click", gin.H{"lat": 120.0, "lng": 0.0})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "invalid_parameter", decode(t, w)["error"])
	})

	t.Run("フィルタはセッションに保存されマーカーに反映される", func(t *testing.T) {
		w := client.do(http.MethodPut, "/api/map/view", gin.H{"categories": []string{"glacier"}, "zoom": 12})
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, []interface{}{"glacier"}, body["category_filter"])

		w = client.do(http.MethodGet, "/api/map/markers", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Len(t, decode(t, w)["features"], 1)

		w = client.do(http.MethodGet, "/api/map/layers", nil)
		require.Equal(t, http.StatusOK, w.Code)
		view := decode(t, w)["view"].(map[string]interface{})
		assert.Equal(t, float64(12), view["zoom"])
	})

	t.Run("不明なスタイルは拒否", func(t *testing.T) {
		w := client.do(http.MethodPut, "/api/map/view", gin.H{"style": "Inexistente"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestMapHandler_SessionsAreIsolated(t *testing.T) {
	first, baseURL := setupRouter(t)
	first.load(baseURL + "/grafo.ttl")

	second := &testClient{t: t, router: first.router}
	w := second.do(http.MethodGet, "/api/places", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = first.do(http.MethodGet, "/api/places", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSplitQuery(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitQuery([]string{"a, b", "", "c,"}))
	assert.Nil(t, splitQuery(nil))
}
