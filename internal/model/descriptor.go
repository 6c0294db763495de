package model

import (
	"bytes"
	"encoding/json"
)

// PostType はCMSの投稿タイプ（コンテンツコレクション）の定義を表す。
type PostType struct {
	// Key は /wp/v2/types のレスポンスで定義が格納されていたキー。
	Key          string   `json:"-"`
	Name         string   `json:"name"`
	Slug         string   `json:"slug"`
	Description  string   `json:"description,omitempty"`
	Hierarchical bool     `json:"hierarchical"`
	RestBase     string   `json:"rest_base"`
	Taxonomies   []string `json:"taxonomies,omitempty"`
	// HasArchive はアーカイブのスラッグ。アーカイブを持たない場合は空文字列。
	HasArchive    string   `json:"has_archive,omitempty"`
	YoastHeadJSON *SEOHead `json:"yoast_head_json,omitempty"`
}

// UnmarshalJSON はhas_archiveの false / "slug" / true の揺れを吸収する。
// true の場合は投稿タイプのスラッグをアーカイブスラッグとみなす。
func (p *PostType) UnmarshalJSON(b []byte) error {
	type alias PostType
	aux := struct {
		*alias
		HasArchive json.RawMessage `json:"has_archive"`
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	p.HasArchive = ""
	raw := bytes.TrimSpace(aux.HasArchive)
	switch {
	case len(raw) == 0, bytes.Equal(raw, []byte("null")), bytes.Equal(raw, []byte("false")):
	case bytes.Equal(raw, []byte("true")):
		p.HasArchive = p.Slug
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			p.HasArchive = s
		}
	}
	return nil
}

// Taxonomy はカテゴリーやタグなどの分類体系の定義を表す。
type Taxonomy struct {
	// Key は /wp/v2/taxonomies のレスポンスで定義が格納されていたキー（例: post_tag）。
	Key           string   `json:"-"`
	Name          string   `json:"name"`
	Slug          string   `json:"slug"`
	Description   string   `json:"description,omitempty"`
	Hierarchical  bool     `json:"hierarchical"`
	RestBase      string   `json:"rest_base"`
	Types         []string `json:"types,omitempty"`
	YoastHeadJSON *SEOHead `json:"yoast_head_json,omitempty"`
}

// TagTaxonomyKey は組み込みタグ分類のキー。
const TagTaxonomyKey = "post_tag"

// BuiltinTagTaxonomy はCMSがタグ分類を返さなかった場合に使う組み込み定義。
func BuiltinTagTaxonomy() Taxonomy {
	return Taxonomy{
		Key:      TagTaxonomyKey,
		Name:     "Tags",
		Slug:     "tag",
		RestBase: "tags",
		Types:    []string{"post"},
	}
}

// PostsArchive は「投稿ページ」に割り当てられた固定ページを
// 投稿一覧アーカイブとして扱うための合成定義を返す。
func PostsArchive(pageSlug string) PostType {
	return PostType{
		Key:        "post",
		Name:       "Posts",
		Slug:       "posts",
		RestBase:   "posts",
		HasArchive: pageSlug,
	}
}

// Term は分類に属する1つの語（カテゴリー名やタグ名）を表す。
type Term struct {
	ID          int    `json:"id"`
	Count       int    `json:"count"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Taxonomy    string `json:"taxonomy"`
	Description string `json:"description,omitempty"`
	Link        string `json:"link,omitempty"`
}

// Settings はCMSのサイト設定のうち、このシステムが参照する項目。
type Settings struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	URL          string `json:"url"`
	PostsPerPage int    `json:"posts_per_page"`
	ShowOnFront  string `json:"show_on_front"`
	PageOnFront  int    `json:"page_on_front"`
	PageForPosts int    `json:"page_for_posts"`
}
