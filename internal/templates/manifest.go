package templates

import (
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"sort"

	"gopkg.in/yaml.v3"
)

// ManifestFile はテンプレートディレクトリ直下のマニフェストのファイル名。
const ManifestFile = "templates.yaml"

// Manifest はテンプレートの対応表。
type Manifest struct {
	Layout    string                       `yaml:"layout"`
	Fallback  string                       `yaml:"fallback"`
	NotFound  string                       `yaml:"not_found"`
	Partials  []string                     `yaml:"partials"`
	Templates map[string]map[string]string `yaml:"templates"`
}

// Options はテンプレート読み込みの設定。
type Options struct {
	Funcs    template.FuncMap
	Logger   *slog.Logger
	Warnings bool
}

// ParseManifest はマニフェストを読み込んで検証する。
func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("マニフェストのパースに失敗: %w", err)
	}
	if m.Layout == "" {
		return nil, errors.New("マニフェストにlayoutが指定されていません")
	}
	return &m, nil
}

// htmlPage はlayoutとページ固有のテンプレートを組み合わせたRenderer。
type htmlPage struct {
	name   string
	layout string
	tmpl   *template.Template
}

func (p *htmlPage) Name() string { return p.name }

func (p *htmlPage) Render(w io.Writer, view *View) error {
	return p.tmpl.ExecuteTemplate(w, p.layout, view)
}

// Load はfsysのマニフェストに従ってテンプレートを読み込み、Registryを構築する。
// 同じファイルを参照する複数の名前は1つのRendererを共有する。
func Load(fsys fs.FS, opts Options) (*Registry, error) {
	f, err := fsys.Open(ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("マニフェストを開けません: %w", err)
	}
	m, err := ParseManifest(f)
	f.Close()
	if err != nil {
		return nil, err
	}

	loader := &pageLoader{
		fsys:     fsys,
		manifest: m,
		funcs:    opts.Funcs,
		cache:    make(map[string]Renderer),
	}

	reg := NewRegistry(opts.Logger, opts.Warnings)

	categories := make([]string, 0, len(m.Templates))
	for c := range m.Templates {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		for name, file := range m.Templates[category] {
			rd, err := loader.load(file)
			if err != nil {
				return nil, fmt.Errorf("%s/%s: %w", category, name, err)
			}
			reg.Register(category, name, rd)
		}
	}

	if m.Fallback != "" {
		rd, err := loader.load(m.Fallback)
		if err != nil {
			return nil, fmt.Errorf("fallback: %w", err)
		}
		reg.SetFallback(rd)
	}
	if m.NotFound != "" {
		rd, err := loader.load(m.NotFound)
		if err != nil {
			return nil, fmt.Errorf("not_found: %w", err)
		}
		reg.SetNotFound(rd)
	}

	return reg, nil
}

type pageLoader struct {
	fsys     fs.FS
	manifest *Manifest
	funcs    template.FuncMap
	cache    map[string]Renderer
}

func (l *pageLoader) load(file string) (Renderer, error) {
	if rd, ok := l.cache[file]; ok {
		return rd, nil
	}

	layoutName := path.Base(l.manifest.Layout)
	patterns := append([]string{l.manifest.Layout}, l.manifest.Partials...)
	patterns = append(patterns, file)

	tmpl, err := template.New(layoutName).Funcs(l.funcs).ParseFS(l.fsys, patterns...)
	if err != nil {
		return nil, fmt.Errorf("テンプレート %s のパースに失敗: %w", file, err)
	}

	rd := &htmlPage{name: file, layout: layoutName, tmpl: tmpl}
	l.cache[file] = rd
	return rd, nil
}
