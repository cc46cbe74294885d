package service

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"Qoyllur-Map/internal/config"
	"Qoyllur-Map/internal/domain/model"
)

// ポップアップ表示の上限
const (
	MaxPopupDescriptionChars = 200
	MaxPopupEventDescChars   = 60
	MaxPopupEvents           = 3
	MaxPopupMedia            = 2
	MaxPopupFragmentChars    = 25
)

// 複数地点マーカーの表示
const (
	GroupMarkerColor = "orange"
	GroupMarkerIcon  = "layer-group"
)

var popupFuncs = template.FuncMap{
	"truncate": truncate,
	"coord":    func(v float64) string { return fmt.Sprintf("%.6f", v) },
	"inc":      func(i int) int { return i + 1 },
}

var singlePopupTemplate = template.Must(template.New("single").Funcs(popupFuncs).Parse(`
<div class="qr-popup" id="popup-{{.Fragment}}" style="width: 350px; font-family: Arial, sans-serif; max-height: 500px; overflow-y: auto;">
  <div style="background-color: {{.Style.Color}}; color: white; padding: 10px; border-radius: 5px 5px 0 0;">
    <h3 style="margin: 0; font-size: 16px;">{{.Place.Name}}</h3>
    <p style="margin: 5px 0 0 0; font-size: 12px; opacity: 0.9;">{{.Place.DisplayType}} • Nivel {{.Place.Tier}}</p>
  </div>
  <div style="padding: 12px; background-color: #f9f9f9;">
    <div style="margin-bottom: 12px; padding: 8px; background: white; border: 1px solid #e0e0e0;">
      <p style="margin: 0; font-size: 13px; color: #333;">{{truncate .Place.Description 200}}</p>
    </div>
    {{- with .Place.Location}}
    <div style="background-color: #ecf0f1; padding: 10px; margin-bottom: 12px;">
      <p style="margin: 0; font-size: 12px; font-weight: bold;">📍 Coordenadas:</p>
      <p style="margin: 4px 0 0 0; font-size: 11px;">Lat: {{coord .Lat}}, Lon: {{coord .Lng}}</p>
      {{- if $.Place.LocatedIn}}
      <p style="margin: 4px 0 0 0; font-size: 11px; color: #16a085;">📍 <strong>Ubicado en:</strong> {{$.Place.GetLocatedIn}}</p>
      {{- end}}
    </div>
    {{- end}}
    {{- if .Events}}
    <div class="qr-section qr-events">
      <h4 style="margin: 0; font-size: 14px; color: #e74c3c;">🎭 Eventos Rituales</h4>
      {{- range .Events}}
      <div style="background-color: #ffebee; padding: 8px; margin: 6px 0; border-left: 3px solid #e74c3c;">
        <p style="margin: 0; font-size: 12px; font-weight: bold; color: #c0392b;">{{.Name}}</p>
        {{- with .GetDescription}}
        <p style="margin: 4px 0 0 0; font-size: 11px; color: #7f8c8d;">{{truncate . 60}}</p>
        {{- end}}
      </div>
      {{- end}}
      {{- if .MoreEvents}}
      <span style="font-size: 10px; color: #7f8c8d;">+ {{.MoreEvents}} eventos más</span>
      {{- end}}
    </div>
    {{- end}}
    {{- if .Relations.Festivities}}
    <div class="qr-section qr-festivities">
      <h4 style="margin: 0; font-size: 14px; color: #9b59b6;">🎉 Festividades</h4>
      {{- range .Relations.Festivities}}
      <div style="background-color: #f3e5f5; padding: 8px; margin: 6px 0; border-left: 3px solid #9b59b6;">
        <p style="margin: 0; font-size: 12px; font-weight: bold; color: #8e44ad;">{{.Name}}</p>
      </div>
      {{- end}}
    </div>
    {{- end}}
    {{- if .Media}}
    <div class="qr-section qr-media">
      <h4 style="margin: 0; font-size: 14px; color: #3498db;">📁 Recursos Multimedia</h4>
      {{- range .Media}}
      <div style="background-color: #e3f2fd; padding: 8px; margin: 6px 0; border-left: 3px solid #3498db;">
        <p style="margin: 0; font-size: 12px; color: #2980b9;"><strong>{{.Kind.Label}}:</strong> {{.Code}}</p>
      </div>
      {{- end}}
      {{- if .MoreMedia}}
      <span style="font-size: 10px; color: #7f8c8d;">+ {{.MoreMedia}} recursos más</span>
      {{- end}}
    </div>
    {{- end}}
    {{- if .Relations.Routes}}
    <div class="qr-section qr-routes">
      <h4 style="margin: 0; font-size: 14px; color: #e67e22;">🛣️ Rutas</h4>
      {{- range .Relations.Routes}}
      <div style="background-color: #fff3e0; padding: 8px; margin: 6px 0; border-left: 3px solid #e67e22;">
        <p style="margin: 0; font-size: 12px; font-weight: bold; color: #d35400;">{{.Name}}</p>
      </div>
      {{- end}}
    </div>
    {{- end}}
    <div style="margin-top: 12px; padding-top: 12px; border-top: 2px dashed #ddd; text-align: center;">
      <p style="margin: 0; font-size: 11px;"><span style="font-weight: bold; color: {{.Style.Color}};">📍 {{.Place.Name}}</span></p>
      <p style="margin: 4px 0 0 0; font-size: 9px; color: #6c757d;">URI: {{.ShortFragment}}</p>
    </div>
  </div>
</div>`))

var groupPopupTemplate = template.Must(template.New("group").Funcs(popupFuncs).Parse(`
<div class="qr-popup qr-group" style="width: 380px; font-family: Arial, sans-serif;">
  <div style="background: linear-gradient(135deg, #e67e22, #d35400); color: white; padding: 12px 15px; border-radius: 6px 6px 0 0;">
    <h3 style="margin: 0; font-size: 15px;">{{len .Places}} lugares en esta ubicación</h3>
    <p style="margin: 4px 0 0 0; font-size: 11px; opacity: 0.9;">Coordenadas: {{coord .Location.Lat}}, {{coord .Location.Lng}}</p>
  </div>
  <div style="padding: 12px;">
    {{- range $i, $card := .Places}}
    <div class="qr-card" data-uri="{{$card.Place.URI}}" style="background: white; margin: 8px 0; padding: 10px; border: 1px solid #e0e0e0; border-left: 3px solid {{$card.Style.Color}};">
      <span style="font-weight: bold; font-size: 11px; color: {{$card.Style.Color}};">{{inc $i}}</span>
      <span style="font-weight: 600; font-size: 13px; color: #2c3e50;">{{$card.Place.Name}}</span>
      <div style="font-size: 11px; color: #666;">{{$card.Place.DisplayType}}</div>
    </div>
    {{- end}}
  </div>
</div>`))

// PopupRenderer はマーカーのポップアップHTMLを生成する
// 値はすべて html/template によりエスケープされる
type PopupRenderer struct {
	layers *config.LayersConfig
}

// NewPopupRenderer は新しいPopupRendererインスタンスを作成
func NewPopupRenderer(layers *config.LayersConfig) *PopupRenderer {
	return &PopupRenderer{
		layers: layers,
	}
}

type singlePopupData struct {
	Place         *model.Place
	Relations     *model.RelationBundle
	Style         config.MarkerStyle
	Fragment      string
	ShortFragment string
	Events        []model.NamedEntity
	MoreEvents    int
	Media         []model.MediaResource
	MoreMedia     int
}

type groupCard struct {
	Place *model.Place
	Style config.MarkerStyle
}

type groupPopupData struct {
	Location model.LatLng
	Places   []groupCard
}

// RenderSingle 単一の場所の詳細ポップアップ
func (r *PopupRenderer) RenderSingle(place *model.Place, relations *model.RelationBundle) (string, error) {
	if relations == nil {
		relations = model.NewRelationBundle()
	}

	data := singlePopupData{
		Place:         place,
		Relations:     relations,
		Style:         r.layers.StyleFor(place.Category),
		Fragment:      place.Fragment(),
		ShortFragment: truncate(place.Fragment(), MaxPopupFragmentChars),
	}
	data.Events, data.MoreEvents = headNamed(relations.Events, MaxPopupEvents)
	data.Media = relations.Media
	if len(data.Media) > MaxPopupMedia {
		data.MoreMedia = len(data.Media) - MaxPopupMedia
		data.Media = data.Media[:MaxPopupMedia]
	}

	var buf bytes.Buffer
	if err := singlePopupTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("ポップアップの生成に失敗: %w", err)
	}
	return buf.String(), nil
}

// RenderGroup 同一地点に複数の場所がある場合の選択ポップアップ
func (r *PopupRenderer) RenderGroup(cluster *model.Cluster) (string, error) {
	data := groupPopupData{
		Location: cluster.Location,
		Places:   make([]groupCard, 0, len(cluster.Places)),
	}
	for _, p := range cluster.Places {
		data.Places = append(data.Places, groupCard{Place: p, Style: r.layers.StyleFor(p.Category)})
	}

	var buf bytes.Buffer
	if err := groupPopupTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("グループポップアップの生成に失敗: %w", err)
	}
	return buf.String(), nil
}

func headNamed(items []model.NamedEntity, n int) ([]model.NamedEntity, int) {
	if len(items) <= n {
		return items, 0
	}
	return items[:n], len(items) - n
}

// truncate は文字数（rune）で切り詰め、超過時は "..." を付ける
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}
