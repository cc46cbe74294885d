package testutil

import (
	_ "embed"
	"net/http"
	"net/http/httptest"
	"testing"

	"Qoyllur-Map/internal/domain/model"
)

// GraphTurtle テスト用の祭礼グラフ
//
//go:embed testdata/grafo.ttl
var GraphTurtle string

// 固定グラフに含まれる場所のURI
const (
	MahuayaniURI         = model.FestivalNamespace + "Mahuayani"
	SinakaraURI          = model.FestivalNamespace + "Sinakara"
	ValleSinakaraURI     = model.FestivalNamespace + "ValleSinakara"
	QolqepunkuURI        = model.FestivalNamespace + "Qolqepunku"
	ApachetaURI          = model.FestivalNamespace + "ApachetaMahuayani"
	CapillaSinLatitudURI = model.FestivalNamespace + "CapillaSinLatitud"
	CaminoURI            = model.FestivalNamespace + "CaminoPeregrino"
)

// FixturePlaceCount 固定グラフから抽出される場所の数（ラベルのない場所を除く）
const FixturePlaceCount = 7

// NewGraphServer 固定グラフを配信するテストサーバー
//   - /grafo.ttl   Turtle
//   - /broken.ttl  パース不能なドキュメント
//   - /grafo.rdf   非対応形式
//   - それ以外     404
func NewGraphServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/grafo.ttl", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(GraphTurtle))
	})
	mux.HandleFunc("/broken.ttl", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/turtle")
		_, _ = w.Write([]byte("ex:a ex:b <unterminated .\n"))
	})
	mux.HandleFunc("/grafo.rdf", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rdf+xml")
		_, _ = w.Write([]byte(`<?xml version="1.0"?><rdf:RDF/>`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// Ptr 値のポインタを返す
func Ptr[T any](v T) *T {
	return &v
}
