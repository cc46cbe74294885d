package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Qoyllur-Map/internal/domain/model"
)

func TestSessionStore_GetSave(t *testing.T) {
	t.Run("未登録のセッションは初期状態", func(t *testing.T) {
		store := NewSessionStore("Relieve")

		state := store.Get(store.NewSessionID())
		assert.False(t, state.Loaded)
		assert.NotNil(t, state.Places)
		assert.NotNil(t, state.CategoryFilter)
		assert.Equal(t, model.DefaultMapView("Relieve"), state.MapView)
		assert.Zero(t, store.Len())
	})

	t.Run("保存した状態を取得できる", func(t *testing.T) {
		store := NewSessionStore("Relieve")
		id := store.NewSessionID()

		state := store.Get(id)
		state.Loaded = true
		state.Places = append(state.Places, &model.Place{URI: "a"})
		state.CategoryFilter = []model.Category{model.CategoryShrine}
		store.Save(id, state)

		got := store.Get(id)
		assert.True(t, got.Loaded)
		require.Len(t, got.Places, 1)
		assert.Equal(t, []model.Category{model.CategoryShrine}, got.CategoryFilter)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("取得した状態の変更は保存するまで反映されない", func(t *testing.T) {
		store := NewSessionStore("Relieve")
		id := store.NewSessionID()
		store.Save(id, NewAppState("Relieve"))

		state := store.Get(id)
		state.CategoryFilter = append(state.CategoryFilter, model.CategoryGlacier)
		state.MapView.Zoom = 14

		got := store.Get(id)
		assert.Empty(t, got.CategoryFilter)
		assert.Equal(t, model.DefaultZoom, got.MapView.Zoom)
	})

	t.Run("セッションは互いに独立", func(t *testing.T) {
		store := NewSessionStore("Relieve")
		a, b := store.NewSessionID(), store.NewSessionID()
		require.NotEqual(t, a, b)

		state := store.Get(a)
		state.Loaded = true
		store.Save(a, state)

		assert.True(t, store.Get(a).Loaded)
		assert.False(t, store.Get(b).Loaded)

		store.Delete(a)
		assert.False(t, store.Get(a).Loaded)
	})
}

func TestSessionStore_Prune(t *testing.T) {
	store := NewSessionStore("Relieve")
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Save("antigua", NewAppState("Relieve"))
	now = now.Add(90 * time.Minute)
	store.Save("reciente", NewAppState("Relieve"))
	now = now.Add(60 * time.Minute)

	removed := store.Prune(2 * time.Hour)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
}

func TestAppState_Reset(t *testing.T) {
	state := NewAppState("Relieve")
	state.Loaded = true
	state.SourceURL = "http://example.org/grafo.ttl"
	state.TripleCount = 10
	state.Places = []*model.Place{{URI: "a"}}
	state.LastClicked = &model.ClickResolution{Status: model.ClickSingle}
	state.MapView.Zoom = 12
	state.CategoryFilter = []model.Category{model.CategoryRoute}

	state.Reset()

	assert.False(t, state.Loaded)
	assert.Empty(t, state.SourceURL)
	assert.Zero(t, state.TripleCount)
	assert.Empty(t, state.Places)
	assert.Nil(t, state.Store)
	assert.Nil(t, state.LastClicked)
	// 表示設定とフィルタは維持
	assert.Equal(t, 12, state.MapView.Zoom)
	assert.Equal(t, []model.Category{model.CategoryRoute}, state.CategoryFilter)
}

func TestIsValidID(t *testing.T) {
	store := NewSessionStore("Relieve")
	assert.True(t, IsValidID(store.NewSessionID()))
	assert.False(t, IsValidID(""))
	assert.False(t, IsValidID("no-es-uuid"))
}
