package application

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"Qoyllur-Map/internal/domain/model"
	"Qoyllur-Map/internal/infrastructure/graph"
)

// AppState 1セッション分のアプリケーション状態
// リクエストごとにスナップショットを取り、1回の処理の後に書き戻す
type AppState struct {
	Loaded         bool
	SourceURL      string
	TripleCount    int
	LoadedAt       time.Time
	Places         []*model.Place
	Store          *graph.Store
	LastClicked    *model.ClickResolution
	CategoryFilter []model.Category
	MapView        model.MapView
}

// NewAppState 未読み込みの初期状態を作成
func NewAppState(defaultStyle string) *AppState {
	return &AppState{
		Places:         []*model.Place{},
		CategoryFilter: []model.Category{},
		MapView:        model.DefaultMapView(defaultStyle),
	}
}

// Reset 読み込み済みのグラフと場所を破棄する（表示設定は維持）
func (s *AppState) Reset() {
	s.Loaded = false
	s.SourceURL = ""
	s.TripleCount = 0
	s.LoadedAt = time.Time{}
	s.Places = []*model.Place{}
	s.Store = nil
	s.LastClicked = nil
}

// clone はスライスを複製した浅いコピーを返す
// 場所とストアは読み込み後に変更されないので共有する
func (s *AppState) clone() *AppState {
	c := *s
	c.Places = append(make([]*model.Place, 0, len(s.Places)), s.Places...)
	c.CategoryFilter = append(make([]model.Category, 0, len(s.CategoryFilter)), s.CategoryFilter...)
	return &c
}

type sessionEntry struct {
	state      *AppState
	lastAccess time.Time
}

// SessionStore セッションIDごとのAppStateを保持する
type SessionStore struct {
	mu           sync.RWMutex
	sessions     map[string]*sessionEntry
	defaultStyle string
	now          func() time.Time
}

// NewSessionStore 新しいSessionStoreインスタンスを作成
func NewSessionStore(defaultStyle string) *SessionStore {
	return &SessionStore{
		sessions:     make(map[string]*sessionEntry),
		defaultStyle: defaultStyle,
		now:          time.Now,
	}
}

// NewSessionID 新しいセッションIDを発行
func (s *SessionStore) NewSessionID() string {
	return uuid.New().String()
}

// IsValidID セッションIDの形式チェック
func IsValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Get セッションの状態のスナップショットを取得（未登録なら初期状態）
func (s *SessionStore) Get(id string) *AppState {
	s.mu.RLock()
	entry, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return NewAppState(s.defaultStyle)
	}
	return entry.state.clone()
}

// Save セッションの状態を書き戻す
func (s *SessionStore) Save(id string, state *AppState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &sessionEntry{
		state:      state.clone(),
		lastAccess: s.now(),
	}
}

// Delete セッションを破棄する
func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len 保持しているセッション数
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Prune 一定時間アクセスのないセッションを破棄し、破棄した件数を返す
func (s *SessionStore) Prune(maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for id, entry := range s.sessions {
		if entry.lastAccess.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
