package graph

import (
	"sort"
)

// TermKind RDFの項の種類
type TermKind int

const (
	KindIRI TermKind = iota
	KindBlank
	KindLiteral
)

// Term トリプルの目的語（IRI、空白ノード、リテラル）
type Term struct {
	Kind  TermKind
	Value string // IRI・空白ノードIDまたはリテラルの字句形式
}

// IRI IRIの項を作成
func IRI(value string) Term {
	return Term{Kind: KindIRI, Value: value}
}

// Literal リテラルの項を作成
func Literal(value string) Term {
	return Term{Kind: KindLiteral, Value: value}
}

// IsResource IRIまたは空白ノードかチェック（主語になりうる項）
func (t Term) IsResource() bool {
	return t.Kind == KindIRI || t.Kind == KindBlank
}

// Triple 主語・述語・目的語の組
type Triple struct {
	Subject   string
	Predicate string
	Object    Term
}

// 標準語彙のIRI
const (
	RDFType        = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"
	RDFSLabel      = "http://www.w3.org/2000/01/rdf-schema#label"
	RDFSSubClassOf = "http://www.w3.org/2000/01/rdf-schema#subClassOf"
)

// Store メモリ上のトリプルストア（読み込み後は不変）
type Store struct {
	triples []Triple
	// 主語 → 述語 → 目的語（挿入順）
	bySubject map[string]map[string][]Term
	// 述語 → 目的語（リソース） → 主語（挿入順）
	byObject map[string]map[string][]string
}

// NewStore トリプル列からストアを構築する（完全一致の重複は除外）
func NewStore(triples []Triple) *Store {
	s := &Store{
		triples:   make([]Triple, 0, len(triples)),
		bySubject: make(map[string]map[string][]Term),
		byObject:  make(map[string]map[string][]string),
	}
	seen := make(map[Triple]struct{}, len(triples))
	for _, t := range triples {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		s.add(t)
	}
	return s
}

func (s *Store) add(t Triple) {
	s.triples = append(s.triples, t)

	preds, ok := s.bySubject[t.Subject]
	if !ok {
		preds = make(map[string][]Term)
		s.bySubject[t.Subject] = preds
	}
	preds[t.Predicate] = append(preds[t.Predicate], t.Object)

	if t.Object.IsResource() {
		objs, ok := s.byObject[t.Predicate]
		if !ok {
			objs = make(map[string][]string)
			s.byObject[t.Predicate] = objs
		}
		objs[t.Object.Value] = append(objs[t.Object.Value], t.Subject)
	}
}

// Len トリプル数
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.triples)
}

// Objects 主語と述語に一致する目的語の一覧
func (s *Store) Objects(subject, predicate string) []Term {
	if s == nil {
		return nil
	}
	return s.bySubject[subject][predicate]
}

// FirstLiteral 主語と述語に一致する最初のリテラル値
func (s *Store) FirstLiteral(subject, predicate string) (string, bool) {
	for _, o := range s.Objects(subject, predicate) {
		if o.Kind == KindLiteral {
			return o.Value, true
		}
	}
	return "", false
}

// Subjects 述語と目的語（リソース）に一致する主語の一覧
func (s *Store) Subjects(predicate, object string) []string {
	if s == nil {
		return nil
	}
	return s.byObject[predicate][object]
}

// Label rdfs:label の最初の値
func (s *Store) Label(subject string) (string, bool) {
	return s.FirstLiteral(subject, RDFSLabel)
}

// Types 主語に直接付与された rdf:type の一覧
func (s *Store) Types(subject string) []string {
	var types []string
	for _, o := range s.Objects(subject, RDFType) {
		if o.IsResource() {
			types = append(types, o.Value)
		}
	}
	return types
}

// HasType 主語に指定のクラスが直接付与されているかチェック
func (s *Store) HasType(subject, class string) bool {
	for _, t := range s.Types(subject) {
		if t == class {
			return true
		}
	}
	return false
}

// SubClassClosure クラス自身と rdfs:subClassOf* で辿れる全サブクラス
func (s *Store) SubClassClosure(class string) map[string]struct{} {
	closure := map[string]struct{}{class: {}}
	queue := []string{class}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, sub := range s.Subjects(RDFSSubClassOf, current) {
			if _, ok := closure[sub]; ok {
				continue
			}
			closure[sub] = struct{}{}
			queue = append(queue, sub)
		}
	}
	return closure
}

// InstancesOf 指定クラスまたはそのサブクラスを型に持つ主語（重複なし、ソート済み）
func (s *Store) InstancesOf(class string) []string {
	seen := make(map[string]struct{})
	for c := range s.SubClassClosure(class) {
		for _, subject := range s.Subjects(RDFType, c) {
			seen[subject] = struct{}{}
		}
	}
	instances := make([]string, 0, len(seen))
	for subject := range seen {
		instances = append(instances, subject)
	}
	sort.Strings(instances)
	return instances
}

// DirectInstancesOf 指定クラスを直接の型に持つ主語（挿入順）
func (s *Store) DirectInstancesOf(class string) []string {
	return s.Subjects(RDFType, class)
}
