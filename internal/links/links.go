// Package links はCMSのオリジンを公開サイトのオリジンへ置き換えるURL変換を提供する。
package links

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
)

// Rewriter はCMSのURLと公開サイトのURLの対応を保持する。
// ゼロ値は何も変換しない。
type Rewriter struct {
	wpURL   string
	siteURL string
}

// NewRewriter は新しいRewriterを生成する。末尾のスラッシュは取り除く。
func NewRewriter(wpURL, siteURL string) *Rewriter {
	return &Rewriter{
		wpURL:   strings.TrimRight(wpURL, "/"),
		siteURL: strings.TrimRight(siteURL, "/"),
	}
}

// Swap はURL中の最初のCMSオリジンを公開サイトのオリジンに置き換える。
// どちらかのオリジンが未設定の場合は入力をそのまま返す。
func (r *Rewriter) Swap(u string) string {
	if r == nil || u == "" || r.wpURL == "" || r.siteURL == "" {
		return u
	}
	return strings.Replace(u, r.wpURL, r.siteURL, 1)
}

// Strip はURL中の最初のCMSオリジンを取り除き、サイト内パスにする。
func (r *Rewriter) Strip(u string) string {
	if r == nil || u == "" || r.wpURL == "" {
		return u
	}
	return strings.Replace(u, r.wpURL, "", 1)
}

// RewriteHTML はレンダリング済みHTML中の <a href> のうちCMSを指すものを
// 公開サイトのURLに書き換える。画像などのメディアはCMSに残す。
// 書き換え対象以外のトークンは入力のバイト列をそのまま出力する。
func (r *Rewriter) RewriteHTML(src string) string {
	if r == nil || src == "" || r.wpURL == "" || r.siteURL == "" || !strings.Contains(src, r.wpURL) {
		return src
	}

	var out bytes.Buffer
	out.Grow(len(src))

	z := html.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			// io.EOF以外でも読み取れた分までで打ち切る
			return out.String()
		}

		// TagNameは内部バッファを書き換えるため先に生のバイト列を退避する
		raw := append([]byte(nil), z.Raw()...)

		if tt != html.StartTagToken && tt != html.SelfClosingTagToken {
			out.Write(raw)
			continue
		}

		tok := z.Token()
		if tok.Data != "a" || !r.rewriteHref(&tok) {
			out.Write(raw)
			continue
		}
		out.WriteString(tok.String())
	}
}

// rewriteHref はhref属性を書き換えた場合にtrueを返す。
func (r *Rewriter) rewriteHref(tok *html.Token) bool {
	changed := false
	for i, a := range tok.Attr {
		if a.Namespace != "" || a.Key != "href" || !strings.HasPrefix(a.Val, r.wpURL) {
			continue
		}
		tok.Attr[i].Val = r.Swap(a.Val)
		changed = true
	}
	return changed
}
