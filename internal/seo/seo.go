// Package seo はSEOプラグインのhead情報からページのメタデータを組み立てる。
package seo

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/hitoshi/wpfront/internal/links"
	"github.com/hitoshi/wpfront/internal/model"
	"github.com/hitoshi/wpfront/internal/resolve"
)

// Generator はgeneratorメタタグの値。
const Generator = "wpfront"

// OpenGraph はOpen Graphのメタデータ。
type OpenGraph struct {
	Title       string
	Description string
	SiteName    string
	Locale      string
	URL         string
	Type        string
	Images      []model.OGImage
}

// Twitter はTwitterカードのメタデータ。
type Twitter struct {
	Card        string
	Title       string
	Description string
	Image       string
	Creator     string
	Site        string
}

// Meta はname/property付きの追加メタタグ1件。
type Meta struct {
	Property string
	Content  string
}

// Metadata はレイアウトの<head>に出力するメタデータ。
type Metadata struct {
	Generator       string
	ApplicationName string
	Title           string
	Description     string
	Keywords        string
	Canonical       string
	Robots          string
	OpenGraph       OpenGraph
	Twitter         Twitter
	Other           []Meta
}

var validOGTypes = map[string]bool{
	"website": true,
	"article": true,
	"book":    true,
	"profile": true,
}

// Build はエンティティ（なければアーカイブ定義、分類定義）のhead情報からメタデータを作る。
// head情報がない場合はサイト設定のタイトルと説明だけを使う。
func Build(settings model.Settings, page *resolve.PageData, rw *links.Rewriter) Metadata {
	md := Metadata{
		Generator:       Generator,
		ApplicationName: decode(settings.Title),
		OpenGraph:       OpenGraph{Type: "website"},
	}

	head := headOf(page)
	if head == nil {
		md.Title = decode(settings.Title)
		md.Description = decode(settings.Description)
		return md
	}

	md.Title = decode(head.Title)
	md.Description = decode(firstNonEmpty(head.OGDescription, head.Description))
	md.Keywords = head.Keywords
	md.Canonical = rw.Swap(head.Canonical)
	md.Robots = robotsString(head.Robots)

	md.OpenGraph = OpenGraph{
		Title:       decode(head.OGTitle),
		Description: decode(head.OGDescription),
		SiteName:    decode(head.OGSiteName),
		Locale:      head.OGLocale,
		URL:         rw.Swap(head.OGURL),
		Type:        ogType(head.OGType),
	}
	for _, img := range head.OGImage {
		if img.URL != "" {
			md.OpenGraph.Images = append(md.OpenGraph.Images, img)
		}
	}

	md.Twitter = Twitter{
		Card:        head.TwitterCard,
		Title:       decode(head.TwitterTitle),
		Description: decode(head.TwitterDescription),
		Image:       head.TwitterImage,
		Creator:     head.TwitterCreator,
		Site:        head.TwitterSite,
	}

	md.Other = appendMeta(md.Other, "article:published_time", head.ArticlePublishedTime)
	md.Other = appendMeta(md.Other, "article:modified_time", head.ArticleModifiedTime)
	md.Other = appendMeta(md.Other, "article:author", head.ArticleAuthor)
	md.Other = appendMeta(md.Other, "article:section", head.ArticleSection)
	md.Other = appendMeta(md.Other, "article:tag", head.ArticleTag)
	md.Other = appendMeta(md.Other, "og:updated_time", head.OGUpdatedTime)

	return md
}

func headOf(page *resolve.PageData) *model.SEOHead {
	if page == nil {
		return nil
	}
	if data := page.Merged(); data != nil && data.YoastHeadJSON != nil {
		return data.YoastHeadJSON
	}
	if page.Archive != nil && page.Archive.YoastHeadJSON != nil {
		return page.Archive.YoastHeadJSON
	}
	if page.Taxonomy != nil && page.Taxonomy.YoastHeadJSON != nil {
		return page.Taxonomy.YoastHeadJSON
	}
	return nil
}

func decode(s string) string {
	return html.UnescapeString(s)
}

func ogType(t string) string {
	if validOGTypes[t] {
		return t
	}
	return "website"
}

func appendMeta(list []Meta, property, content string) []Meta {
	if content == "" {
		return list
	}
	return append(list, Meta{Property: property, Content: content})
}

// robotsString はrobotsの値をメタタグの文字列にする。
// オブジェクト形式の場合は index, follow を先頭に、残りはキー順に並べる。
func robotsString(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case map[string]any:
		keys := make([]string, 0, len(r))
		for k := range r {
			keys = append(keys, k)
		}
		sort.Slice(keys, func(i, j int) bool {
			pi, pj := robotsPriority(keys[i]), robotsPriority(keys[j])
			if pi != pj {
				return pi < pj
			}
			return keys[i] < keys[j]
		})
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := fmt.Sprint(r[k]); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(r)
	}
}

func robotsPriority(key string) int {
	switch key {
	case "index":
		return 0
	case "follow":
		return 1
	default:
		return 2
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
