// Package blocks はACFのフレキシブルコンテンツ（acf.modules）をブロックとして扱う。
// 各行の acf_fc_layout でブロックの種類を判別し、未知のレイアウトは UnknownBlock になる。
package blocks

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/wpfront/internal/model"
)

// レイアウト名
const (
	LayoutHero  = "hero"
	LayoutText  = "text"
	LayoutImage = "image"
)

// Block はフレキシブルコンテンツの1行。
type Block interface {
	Layout() string
}

// HeroBlock はページ上部の見出しブロック。
type HeroBlock struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

func (HeroBlock) Layout() string { return LayoutHero }

// TextBlock は本文HTMLのブロック。
type TextBlock struct {
	Content string `json:"content"`
}

func (TextBlock) Layout() string { return LayoutText }

// ImageBlock は画像1枚のブロック。
type ImageBlock struct {
	Image *model.Image `json:"image"`
}

func (ImageBlock) Layout() string { return LayoutImage }

// UnknownBlock は対応するテンプレートのないレイアウトの行。
type UnknownBlock struct {
	Name   string
	Fields map[string]any
}

func (b UnknownBlock) Layout() string { return b.Name }

// acfImage はACFの画像フィールド。IDや配列で返る設定もあるためURLがない場合は無視する。
type acfImage struct {
	URL    string `json:"url"`
	Alt    string `json:"alt"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Decode はエンティティのacfフィールドからブロック列を取り出す。
// acfが空・false・modulesなしの場合は空を返す。
func Decode(acf json.RawMessage) ([]Block, error) {
	acf = bytes.TrimSpace(acf)
	if len(acf) == 0 || acf[0] != '{' {
		return nil, nil
	}

	var fields struct {
		Modules json.RawMessage `json:"modules"`
	}
	if err := json.Unmarshal(acf, &fields); err != nil {
		return nil, fmt.Errorf("acfフィールドのデコードに失敗: %w", err)
	}
	modules := bytes.TrimSpace(fields.Modules)
	if len(modules) == 0 || modules[0] != '[' {
		return nil, nil
	}

	var rows []json.RawMessage
	if err := json.Unmarshal(modules, &rows); err != nil {
		return nil, fmt.Errorf("modulesのデコードに失敗: %w", err)
	}

	blocks := make([]Block, 0, len(rows))
	for i, row := range rows {
		b, err := decodeRow(row)
		if err != nil {
			return nil, fmt.Errorf("modules[%d]: %w", i, err)
		}
		blocks = append(blocks, b)
	}
	return blocks, nil
}

func decodeRow(row json.RawMessage) (Block, error) {
	var head struct {
		Layout string `json:"acf_fc_layout"`
	}
	if err := json.Unmarshal(row, &head); err != nil {
		return nil, err
	}

	switch head.Layout {
	case LayoutHero:
		var b HeroBlock
		if err := json.Unmarshal(row, &b); err != nil {
			return nil, err
		}
		return b, nil
	case LayoutText:
		var b TextBlock
		if err := json.Unmarshal(row, &b); err != nil {
			return nil, err
		}
		return b, nil
	case LayoutImage:
		var raw struct {
			Image json.RawMessage `json:"image"`
		}
		if err := json.Unmarshal(row, &raw); err != nil {
			return nil, err
		}
		var b ImageBlock
		var img acfImage
		if err := json.Unmarshal(raw.Image, &img); err == nil && img.URL != "" {
			b.Image = &model.Image{URL: img.URL, Alt: img.Alt, Width: img.Width, Height: img.Height}
		}
		return b, nil
	default:
		fields := make(map[string]any)
		if err := json.Unmarshal(row, &fields); err != nil {
			return nil, err
		}
		delete(fields, "acf_fc_layout")
		return UnknownBlock{Name: head.Layout, Fields: fields}, nil
	}
}
