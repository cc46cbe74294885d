package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"Qoyllur-Map/internal/domain/helper"
	"Qoyllur-Map/internal/domain/model"
	"Qoyllur-Map/internal/domain/repository"
	"Qoyllur-Map/internal/infrastructure/graph"
)

// MaxMediaPerPlace 1つの場所について取得する資料の上限
const MaxMediaPerPlace = 5

// ErrGraphNotLoaded グラフが読み込まれていない
var ErrGraphNotLoaded = errors.New("graph not loaded")

// 祭礼語彙のクラスと述語
var (
	classPlace        = model.FestivalNamespace + "Lugar"
	classRitualEvent  = model.FestivalNamespace + "EventoRitual"
	classFestivity    = model.FestivalNamespace + "Festividad"
	classMedia        = model.FestivalNamespace + "RecursoMedial"
	classRoute        = model.FestivalNamespace + "Ruta"
	classRitualNation = model.FestivalNamespace + "NacionRitual"

	predDescription  = model.FestivalNamespace + "descripcionBreve"
	predTier         = model.FestivalNamespace + "nivelEmbeddings"
	predLocatedIn    = model.FestivalNamespace + "ubicadoEn"
	predOccursAt     = model.FestivalNamespace + "estaEnLugar"
	predCelebratedAt = model.FestivalNamespace + "SeCelebraEn"
	predDocuments    = model.FestivalNamespace + "documentaA"
	predMediaCode    = model.FestivalNamespace + "codigoRecurso"
	predMediaPath    = model.FestivalNamespace + "rutaArchivo"
	predLeadsTo      = model.FestivalNamespace + "conduceA"
	predConnectsWith = model.FestivalNamespace + "conectaCon"
	predRelatedTo    = model.FestivalNamespace + "relacionadoCon"
	predBasedAt      = model.FestivalNamespace + "tieneBaseEn"
	predTakesPartIn  = model.FestivalNamespace + "participaEnFestividad"

	predLat  = model.GeoNamespace + "lat"
	predLong = model.GeoNamespace + "long"
)

// GraphPlacesRepository メモリ上のトリプルストアを使用した場所リポジトリ
type GraphPlacesRepository struct {
	store *graph.Store
}

// NewGraphPlacesRepository 新しいGraphPlacesRepositoryインスタンスを作成
func NewGraphPlacesRepository(store *graph.Store) repository.PlacesRepository {
	return &GraphPlacesRepository{
		store: store,
	}
}

// ListPlaces は :Lugar（およびそのサブクラス）のインスタンスを全件抽出する
func (r *GraphPlacesRepository) ListPlaces(ctx context.Context) ([]*model.Place, error) {
	if r.store == nil {
		return nil, ErrGraphNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("場所の抽出を中断: %w", err)
	}

	var places []*model.Place
	for _, uri := range r.store.InstancesOf(classPlace) {
		name, ok := r.store.Label(uri)
		if !ok {
			continue // ラベルのない場所は対象外
		}

		place := &model.Place{
			URI:         uri,
			Name:        name,
			Location:    r.location(uri),
			Category:    r.resolveCategory(uri),
			Description: model.DefaultDescription,
			Tier:        model.TierUnspecified,
		}
		if st := r.specificType(uri); st != "" {
			place.SpecificType = &st
		}
		if desc, ok := r.store.FirstLiteral(uri, predDescription); ok {
			place.Description = desc
		}
		if tier, ok := r.store.FirstLiteral(uri, predTier); ok {
			place.Tier = model.ParseTier(tier)
		}
		if parents := r.labelledTargets(uri, predLocatedIn); len(parents) > 0 {
			place.LocatedIn = &parents[0]
		}

		places = append(places, place)
	}

	helper.SortPlaces(places)
	return places, nil
}

// GetRelations は場所に関連するイベント、祭り、資料、ルート、ナシオンを取得する
func (r *GraphPlacesRepository) GetRelations(ctx context.Context, placeURI string) (*model.RelationBundle, error) {
	if r.store == nil {
		return nil, ErrGraphNotLoaded
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("関連情報の取得を中断: %w", err)
	}

	bundle := model.NewRelationBundle()

	// 1. この場所で行われる儀礼
	bundle.Events = r.namedSubjects(predOccursAt, placeURI, classRitualEvent)

	// 2. この場所で祝われる祭り
	bundle.Festivities = r.namedSubjects(predCelebratedAt, placeURI, classFestivity)

	// 3. この場所を記録した資料
	bundle.Media = r.media(placeURI)

	// 4. 所属する上位の場所
	bundle.LocatedIn = append(bundle.LocatedIn, r.labelledTargets(placeURI, predLocatedIn)...)

	// 5. ここへ通じる、またはここを通るルート（UNIONなので両方に該当すれば2回出る）
	bundle.Routes = append(bundle.Routes, r.namedSubjects(predLeadsTo, placeURI, classRoute)...)
	bundle.Routes = append(bundle.Routes, r.namedSubjects(predConnectsWith, placeURI, classRoute)...)

	// 6. 関係する儀礼集団（ナシオン）
	bundle.Collectives = r.collectives(placeURI)

	return bundle, nil
}

// resolveCategory は直接の型アサーションから優先順位に従ってカテゴリを決める
func (r *GraphPlacesRepository) resolveCategory(uri string) model.Category {
	for _, c := range model.CategoryPriority {
		if r.store.HasType(uri, c.ClassIRI()) {
			return c
		}
	}
	return model.CategoryPlace
}

// specificType は :Lugar 以外でラベルを持つ最初の型のラベルを返す
func (r *GraphPlacesRepository) specificType(uri string) string {
	for _, t := range r.store.Types(uri) {
		if t == classPlace {
			continue
		}
		if label, ok := r.store.Label(t); ok {
			return label
		}
	}
	return ""
}

// location は geo:lat と geo:long の両方が揃っている場合のみ座標を返す
func (r *GraphPlacesRepository) location(uri string) *model.LatLng {
	latStr, ok := r.store.FirstLiteral(uri, predLat)
	if !ok {
		return nil
	}
	lngStr, ok := r.store.FirstLiteral(uri, predLong)
	if !ok {
		return nil
	}
	lat, err := parseCoordinate(latStr, 90)
	if err != nil {
		return nil
	}
	lng, err := parseCoordinate(lngStr, 180)
	if err != nil {
		return nil
	}
	return &model.LatLng{Lat: lat, Lng: lng}
}

// parseCoordinate は有限かつ ±limit の範囲内の数値のみ受け付ける（NaN、Infは不可）
func parseCoordinate(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < -limit || v > limit {
		return 0, fmt.Errorf("座標が範囲外: %q", s)
	}
	return v, nil
}

// labelledTargets は述語の目的語のうちラベルを持つもののラベル一覧を返す
func (r *GraphPlacesRepository) labelledTargets(subject, predicate string) []string {
	var labels []string
	for _, o := range r.store.Objects(subject, predicate) {
		if !o.IsResource() {
			continue
		}
		if label, ok := r.store.Label(o.Value); ok {
			labels = append(labels, label)
		}
	}
	return labels
}

// namedSubjects は「?s a class ; rdfs:label ?name ; predicate object」に一致する主語を返す
func (r *GraphPlacesRepository) namedSubjects(predicate, object, class string) []model.NamedEntity {
	entities := []model.NamedEntity{}
	for _, subject := range r.store.Subjects(predicate, object) {
		if entity, ok := r.namedEntity(subject, class); ok {
			entities = append(entities, entity)
		}
	}
	return entities
}

// namedEntity は指定クラスでラベルを持つ主語をNamedEntityに変換する
func (r *GraphPlacesRepository) namedEntity(subject, class string) (model.NamedEntity, bool) {
	if class != "" && !r.store.HasType(subject, class) {
		return model.NamedEntity{}, false
	}
	name, ok := r.store.Label(subject)
	if !ok {
		return model.NamedEntity{}, false
	}
	entity := model.NamedEntity{Name: name}
	if desc, ok := r.store.FirstLiteral(subject, predDescription); ok {
		entity.Description = &desc
	}
	return entity, true
}

// media は場所を記録した資料を最大 MaxMediaPerPlace 件返す
func (r *GraphPlacesRepository) media(placeURI string) []model.MediaResource {
	resources := []model.MediaResource{}
	for _, subject := range r.store.Subjects(predDocuments, placeURI) {
		if len(resources) >= MaxMediaPerPlace {
			break
		}
		if !r.store.HasType(subject, classMedia) {
			continue
		}
		code, ok := r.store.FirstLiteral(subject, predMediaCode)
		if !ok {
			continue
		}
		resource := model.MediaResource{
			Code: code,
			Kind: model.InferMediaKind(code),
		}
		if p, ok := r.store.FirstLiteral(subject, predMediaPath); ok {
			resource.Path = &p
		}
		resources = append(resources, resource)
	}
	return resources
}

// collectives は関係、拠点、参加する祭りのいずれかで場所に結びつくナシオンを返す
func (r *GraphPlacesRepository) collectives(placeURI string) []model.NamedEntity {
	collectives := []model.NamedEntity{}
	collectives = append(collectives, r.namedSubjects(predRelatedTo, placeURI, classRitualNation)...)
	collectives = append(collectives, r.namedSubjects(predBasedAt, placeURI, classRitualNation)...)
	for _, festivity := range r.store.Subjects(predCelebratedAt, placeURI) {
		collectives = append(collectives, r.namedSubjects(predTakesPartIn, festivity, classRitualNation)...)
	}
	return collectives
}
