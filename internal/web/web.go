package web

import (
	"embed"
	"encoding/json"
	"html/template"
	"io"
)

//go:embed templates/*
var content embed.FS

var pageTemplate = template.Must(template.New("map.html").Funcs(template.FuncMap{
	"toJSON": toJSON,
}).ParseFS(content, "templates/map.html"))

// PageData 地図ページの初期表示に必要な値
type PageData struct {
	Title        string
	GraphURL     string
	Loaded       bool
	PlaceCount   int
	TripleCount  int
	InitialState any // レイヤー、表示設定、凡例（JSONでページに埋め込む）
}

// RenderMap 地図ページを書き出す
func RenderMap(w io.Writer, data PageData) error {
	return pageTemplate.Execute(w, data)
}

func toJSON(v any) template.JS {
	b, err := json.Marshal(v)
	if err != nil {
		return template.JS("null")
	}
	return template.JS(b)
}
