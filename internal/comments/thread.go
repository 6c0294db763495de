// Package comments はコメント一覧のスレッド化と投稿を提供する。
package comments

import "github.com/hitoshi/wpfront/internal/model"

// Partition はコメントをトップレベルと親IDごとの返信に分ける。
// 返信は親IDでまとめるだけで、それより深い階層は組み立てない。
// 各グループ内の順序は入力の順序を保つ。
func Partition(comments []model.Comment) (top []model.Comment, replies map[int][]model.Comment) {
	top = make([]model.Comment, 0, len(comments))
	replies = make(map[int][]model.Comment)
	for _, c := range comments {
		if c.IsTopLevel() {
			top = append(top, c)
			continue
		}
		replies[c.Parent] = append(replies[c.Parent], c)
	}
	return top, replies
}

// Thread は1つの投稿のコメント一覧のローカルな表示状態。
// サーバーから取得した確定済みの一覧と、投稿直後に先頭へ追加した未反映のコメントを持つ。
// goroutine間で共有しない前提で、ロックは持たない。
type Thread struct {
	postID    int
	confirmed []model.Comment
	pending   []model.Comment
}

// NewThread は空のThreadを生成する。
func NewThread(postID int) *Thread {
	return &Thread{postID: postID}
}

// PostID は対象の投稿IDを返す。
func (t *Thread) PostID() int {
	return t.postID
}

// Reload は確定済みの一覧をfetchedで置き換える。
// サーバー側に現れたコメントは未反映の一覧から取り除く。
func (t *Thread) Reload(fetched []model.Comment) {
	t.confirmed = append([]model.Comment(nil), fetched...)

	seen := make(map[int]struct{}, len(fetched))
	for _, c := range fetched {
		seen[c.ID] = struct{}{}
	}
	kept := t.pending[:0]
	for _, c := range t.pending {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		kept = append(kept, c)
	}
	t.pending = kept
}

// Add は投稿したコメントを一覧の先頭に追加する。
func (t *Thread) Add(c model.Comment) {
	t.pending = append([]model.Comment{c}, t.pending...)
}

// Comments は未反映のコメント（新しい順）に続けて確定済みの一覧を返す。
func (t *Thread) Comments() []model.Comment {
	out := make([]model.Comment, 0, len(t.pending)+len(t.confirmed))
	out = append(out, t.pending...)
	return append(out, t.confirmed...)
}

// Len はコメントの総数を返す。
func (t *Thread) Len() int {
	return len(t.pending) + len(t.confirmed)
}

// Partition は現在の一覧をトップレベルと返信に分ける。
func (t *Thread) Partition() (top []model.Comment, replies map[int][]model.Comment) {
	return Partition(t.Comments())
}
