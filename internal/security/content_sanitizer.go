// Package security はCMSのHTMLの無害化と、CMSへの接続先の検証を提供する。
//
// ContentSanitizer はbluemondayの許可リストベースのポリシーで
// CMS本文と読者コメントをそれぞれ別の強さで無害化する。
package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizer はCMSのHTMLを表示用に無害化する。
// ポリシーは構築後に変更しないため、複数のgoroutineから使用できる。
type ContentSanitizer struct {
	content *bluemonday.Policy
	comment *bluemonday.Policy
	strict  *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerを生成する。
//
// 本文ポリシー（Sanitize）:
//   - bluemondayのUGCポリシーを基に、見出し・表・figure・class属性を許可
//   - サイト内の相対リンクを許可し、nofollowは付与しない
//   - script, iframe, style および全てのon*イベント属性を除去
//
// コメントポリシー（SanitizeComment）:
//   - 許可タグ: p, br, a, ul, ol, li, blockquote, pre, code, strong, em
//   - aのhrefはhttp/httpsの絶対URLのみ。nofollow, noopener, noreferrer, target="_blank" を付与
//   - 画像は許可しない
func NewContentSanitizer() *ContentSanitizer {
	return &ContentSanitizer{
		content: newContentPolicy(),
		comment: newCommentPolicy(),
		strict:  bluemonday.StrictPolicy(),
	}
}

func newContentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(false)
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("srcset", "sizes", "loading").OnElements("img")
	p.RequireNoReferrerOnFullyQualifiedLinks(true)
	return p
}

func newCommentPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
	)

	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https")
	p.AllowRelativeURLs(false)
	p.RequireParseableURLs(true)
	p.RequireNoFollowOnLinks(true)
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Sanitize はCMS本文のHTMLを無害化する。空文字列の入力には空文字列を返す。
func (s *ContentSanitizer) Sanitize(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return s.content.Sanitize(rawHTML)
}

// SanitizeComment は読者コメントのHTMLを無害化する。
func (s *ContentSanitizer) SanitizeComment(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return s.comment.Sanitize(rawHTML)
}

// StripTags は全てのタグを除いたテキストを返す。CMSが実体参照で返す
// タイトル（例: &#8217;）は文字に戻すため、出力側で改めてエスケープすること。
func (s *ContentSanitizer) StripTags(rawHTML string) string {
	if rawHTML == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(rawHTML)))
}
