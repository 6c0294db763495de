package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/hitoshi/wpfront/internal/model"
	"github.com/hitoshi/wpfront/internal/wp"
)

// fakeCMS はテスト用のCMS。公開済み・下書きのエンティティをコレクションごとに保持する。
type fakeCMS struct {
	mu sync.Mutex

	settings   model.Settings
	postTypes  []model.PostType
	taxonomies []model.Taxonomy

	// items[restBase][slug]
	items  map[string]map[string]*model.Entity
	drafts map[string]map[string]*model.Entity
	byID   map[string]map[int]*model.Entity
	terms  map[string]map[string]*model.Term

	listTotal      int
	listTotalPages int
	listErr        error

	lists []wp.ListQuery
	calls []string
}

func newFakeCMS() *fakeCMS {
	return &fakeCMS{
		items:  map[string]map[string]*model.Entity{},
		drafts: map[string]map[string]*model.Entity{},
		byID:   map[string]map[int]*model.Entity{},
		terms:  map[string]map[string]*model.Term{},
	}
}

func (f *fakeCMS) addItem(restBase string, e *model.Entity) {
	if f.items[restBase] == nil {
		f.items[restBase] = map[string]*model.Entity{}
	}
	f.items[restBase][e.Slug] = e
	f.addByID(restBase, e)
}

func (f *fakeCMS) addDraft(restBase string, e *model.Entity) {
	if f.drafts[restBase] == nil {
		f.drafts[restBase] = map[string]*model.Entity{}
	}
	f.drafts[restBase][e.Slug] = e
}

func (f *fakeCMS) addByID(restBase string, e *model.Entity) {
	if f.byID[restBase] == nil {
		f.byID[restBase] = map[int]*model.Entity{}
	}
	f.byID[restBase][e.ID] = e
}

func (f *fakeCMS) addTerm(restBase string, t *model.Term) {
	if f.terms[restBase] == nil {
		f.terms[restBase] = map[string]*model.Term{}
	}
	f.terms[restBase][t.Slug] = t
}

func (f *fakeCMS) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeCMS) called(prefix string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func (f *fakeCMS) Settings(ctx context.Context) model.Settings {
	f.record("settings")
	return f.settings
}

func (f *fakeCMS) PostTypes(ctx context.Context) []model.PostType {
	f.record("types")
	return f.postTypes
}

func (f *fakeCMS) Taxonomies(ctx context.Context) []model.Taxonomy {
	f.record("taxonomies")
	return f.taxonomies
}

func (f *fakeCMS) ItemByID(ctx context.Context, restBase string, id int) *model.Entity {
	f.record(fmt.Sprintf("id:%s/%d", restBase, id))
	return f.byID[restBase][id]
}

func (f *fakeCMS) ItemBySlug(ctx context.Context, restBase, slug string, statuses ...model.EntityStatus) *model.Entity {
	if len(statuses) > 0 {
		f.record(fmt.Sprintf("draft:%s/%s", restBase, slug))
		return f.drafts[restBase][slug]
	}
	f.record(fmt.Sprintf("slug:%s/%s", restBase, slug))
	return f.items[restBase][slug]
}

func (f *fakeCMS) Latest(ctx context.Context, restBase string) *model.Entity {
	f.record("latest:" + restBase)
	for _, e := range f.items[restBase] {
		return e
	}
	return nil
}

func (f *fakeCMS) List(ctx context.Context, q wp.ListQuery) (*wp.ListResult, error) {
	f.mu.Lock()
	f.lists = append(f.lists, q)
	f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return &wp.ListResult{
		Items:      []model.Entity{{ID: 1}, {ID: 2}},
		Total:      f.listTotal,
		TotalPages: f.listTotalPages,
	}, nil
}

func (f *fakeCMS) TermBySlug(ctx context.Context, restBase, slug string) *model.Term {
	f.record(fmt.Sprintf("term:%s/%s", restBase, slug))
	return f.terms[restBase][slug]
}

var errUpstream = errors.New("upstream unavailable")
