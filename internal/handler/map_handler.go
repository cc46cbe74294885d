package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"Qoyllur-Map/internal/application"
	"Qoyllur-Map/internal/domain/model"
	"Qoyllur-Map/internal/metrics"
	"Qoyllur-Map/internal/usecase"
	"Qoyllur-Map/internal/web"
)

// SessionCookieName セッションIDを保持するクッキー名
const SessionCookieName = "qoyllur_session"

const sessionContextKey = "sessionID"

// MapHandler 地図アプリケーションのHTTPハンドラー
type MapHandler struct {
	mapUseCase usecase.MapUseCase
	sessions   *application.SessionStore
	graphURL   string
}

// NewMapHandler 新しいMapHandlerインスタンスを作成
func NewMapHandler(mapUseCase usecase.MapUseCase, sessions *application.SessionStore, graphURL string) *MapHandler {
	return &MapHandler{
		mapUseCase: mapUseCase,
		sessions:   sessions,
		graphURL:   graphURL,
	}
}

// RegisterRoutes ルーティングを登録する
func (h *MapHandler) RegisterRoutes(r *gin.Engine) {
	r.GET("/api/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	s := r.Group("/", h.SessionMiddleware())
	{
		s.GET("/", h.Page)

		api := s.Group("/api")
		api.POST("/graph/load", h.LoadGraph)
		api.GET("/places", h.ListPlaces)
		api.GET("/places/stats", h.Stats)
		api.GET("/places/missing-coordinates", h.MissingCoordinates)
		api.GET("/places/relations", h.Relations)
		api.GET("/map/markers", h.Markers)
		api.GET("/map/layers", h.Layers)
		api.PUT("/map/view", h.UpdateView)
		api.POST("/map/click", h.Click)
	}
}

// SessionMiddleware セッションクッキーを確認し、なければ発行する
func (h *MapHandler) SessionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := c.Cookie(SessionCookieName)
		if err != nil || !application.IsValidID(id) {
			id = h.sessions.NewSessionID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(SessionCookieName, id, 0, "/", "", false, true)
		}
		c.Set(sessionContextKey, id)
		c.Next()
	}
}

func sessionID(c *gin.Context) string {
	return c.GetString(sessionContextKey)
}

// Health GET /api/health - ヘルスチェック
func (h *MapHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "qoyllur-map",
		"sessions": h.sessions.Len(),
	})
}

// Page GET / - 地図ページ
func (h *MapHandler) Page(c *gin.Context) {
	state := h.sessions.Get(sessionID(c))

	graphURL := state.SourceURL
	if graphURL == "" {
		graphURL = h.graphURL
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err := web.RenderMap(c.Writer, web.PageData{
		Title:        "Mapa Interactivo - Qoyllur Rit'i",
		GraphURL:     graphURL,
		Loaded:       state.Loaded,
		PlaceCount:   len(state.Places),
		TripleCount:  state.TripleCount,
		InitialState: h.mapUseCase.Layers(state),
	})
	if err != nil {
		_ = c.Error(err)
	}
}

// LoadGraph POST /api/graph/load - グラフの読み込み
// 読み込み失敗は success=false のレスポンスとして返す
func (h *MapHandler) LoadGraph(c *gin.Context) {
	var req model.LoadGraphRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}

	id := sessionID(c)
	state := h.sessions.Get(id)
	response := h.mapUseCase.LoadGraph(c.Request.Context(), state, req.URL)
	h.sessions.Save(id, state)

	c.JSON(http.StatusOK, response)
}

// ListPlaces GET /api/places - 場所の一覧（?category=...&tier=...）
func (h *MapHandler) ListPlaces(c *gin.Context) {
	categories, err := usecase.ParseCategories(splitQuery(c.QueryArray("category")))
	if err != nil {
		h.respondError(c, err)
		return
	}

	state := h.sessions.Get(sessionID(c))
	places, err := h.mapUseCase.ListPlaces(state, categories, c.Query("tier"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"places": places,
		"count":  len(places),
	})
}

// Stats GET /api/places/stats - 統計
func (h *MapHandler) Stats(c *gin.Context) {
	stats, err := h.mapUseCase.Stats(h.sessions.Get(sessionID(c)))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// MissingCoordinates GET /api/places/missing-coordinates - 座標欠損レポート
func (h *MapHandler) MissingCoordinates(c *gin.Context) {
	report, err := h.mapUseCase.MissingCoordinates(h.sessions.Get(sessionID(c)))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Relations GET /api/places/relations?uri= - 場所の関連情報
func (h *MapHandler) Relations(c *gin.Context) {
	uri := c.Query("uri")
	if uri == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "missing_parameter",
			"message": "uri parameter is required",
		})
		return
	}

	bundle, err := h.mapUseCase.Relations(c.Request.Context(), h.sessions.Get(sessionID(c)), uri)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bundle)
}

// Markers GET /api/map/markers - マーカー（GeoJSON FeatureCollection）
func (h *MapHandler) Markers(c *gin.Context) {
	fc, err := h.mapUseCase.Markers(c.Request.Context(), h.sessions.Get(sessionID(c)))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, fc)
}

// Layers GET /api/map/layers - ベースレイヤーと表示設定
func (h *MapHandler) Layers(c *gin.Context) {
	c.JSON(http.StatusOK, h.mapUseCase.Layers(h.sessions.Get(sessionID(c))))
}

// UpdateView PUT /api/map/view - 表示設定とカテゴリフィルタの更新
func (h *MapHandler) UpdateView(c *gin.Context) {
	var req model.UpdateMapViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}

	id := sessionID(c)
	state := h.sessions.Get(id)
	if err := h.mapUseCase.UpdateView(state, &req); err != nil {
		h.respondError(c, err)
		return
	}
	h.sessions.Save(id, state)

	c.JSON(http.StatusOK, h.mapUseCase.Layers(state))
}

// Click POST /api/map/click - クリック位置の解決
func (h *MapHandler) Click(c *gin.Context) {
	var req model.ClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid JSON format: " + err.Error(),
		})
		return
	}
	if err := validateClickRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": err.Error(),
		})
		return
	}

	id := sessionID(c)
	state := h.sessions.Get(id)
	response, err := h.mapUseCase.Click(c.Request.Context(), state, model.LatLng{Lat: *req.Lat, Lng: *req.Lng})
	if err != nil {
		h.respondError(c, err)
		return
	}
	h.sessions.Save(id, state)

	c.JSON(http.StatusOK, response)
}

func validateClickRequest(req *model.ClickRequest) error {
	if req.Lat == nil {
		return &ValidationError{Field: "lat", Message: "緯度は必須です"}
	}
	if req.Lng == nil {
		return &ValidationError{Field: "lng", Message: "経度は必須です"}
	}
	return nil
}

// ValidationError はバリデーションエラーを表す
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// respondError はユースケースのエラーをHTTPステータスに変換する
func (h *MapHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, usecase.ErrGraphNotLoaded):
		c.JSON(http.StatusConflict, gin.H{
			"error":   "graph_not_loaded",
			"message": "No graph loaded for this session: call POST /api/graph/load first",
		})
	case errors.Is(err, usecase.ErrPlaceNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": err.Error(),
		})
	case errors.Is(err, usecase.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_parameter",
			"message": err.Error(),
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": err.Error(),
		})
	}
}

// splitQuery は ?category=a,b と ?category=a&category=b の両方を受け付ける
func splitQuery(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
