package blocks

import (
	"bytes"
	"embed"
	"html/template"
	"log/slog"
)

//go:embed templates/*.html
var templateFS embed.FS

// DefaultTemplates はレイアウト名からブロックテンプレート名への対応。
var DefaultTemplates = map[string]string{
	LayoutHero:  "block/hero",
	LayoutText:  "block/text",
	LayoutImage: "block/image",
}

// ContentFilter はTextBlockの本文HTMLを出力前に加工する関数。
type ContentFilter func(string) string

// Renderer はブロック列をHTMLに変換する。
type Renderer struct {
	tmpl   *template.Template
	names  map[string]string
	filter ContentFilter
	logger *slog.Logger
}

// textView はblock/textテンプレートに渡す値。本文はフィルタ済みの信頼済みHTML。
type textView struct {
	Content template.HTML
}

// NewRenderer は埋め込みのブロックテンプレートを読み込んだRendererを生成する。
// filterがnilの場合、本文はエスケープされて出力される。
func NewRenderer(filter ContentFilter, logger *slog.Logger) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		tmpl:   tmpl,
		names:  DefaultTemplates,
		filter: filter,
		logger: logger,
	}, nil
}

// Render はブロック列を順にテンプレートで描画する。
// 未知のレイアウトは出力せず、レイアウト名ごとに1回だけログに残す。
func (r *Renderer) Render(blocks []Block) template.HTML {
	var buf bytes.Buffer
	unknown := make(map[string]bool)

	for _, b := range blocks {
		name, ok := r.names[b.Layout()]
		if !ok {
			if !unknown[b.Layout()] {
				unknown[b.Layout()] = true
				r.logger.Warn("未対応のブロックレイアウトです",
					slog.String("layout", b.Layout()),
				)
			}
			continue
		}

		var data any = b
		if tb, isText := b.(TextBlock); isText {
			data = r.textData(tb)
		}
		if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
			r.logger.Error("ブロックの描画に失敗しました",
				slog.String("layout", b.Layout()),
				slog.String("error", err.Error()),
			)
		}
	}

	// テンプレート出力はhtml/templateでエスケープ済み
	return template.HTML(buf.String())
}

func (r *Renderer) textData(b TextBlock) any {
	if r.filter == nil {
		return b
	}
	return textView{Content: template.HTML(r.filter(b.Content))}
}
