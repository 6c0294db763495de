package model

// CommentStatusUnapproved は新規投稿コメントに強制するステータス。
const CommentStatusUnapproved = "unapproved"

// Comment は投稿に対する読者コメントを表す。
// Parent が0のものはトップレベル、それ以外は親コメントのID。
type Comment struct {
	ID          int      `json:"id"`
	Post        int      `json:"post"`
	Parent      int      `json:"parent"`
	AuthorName  string   `json:"author_name"`
	AuthorEmail string   `json:"author_email,omitempty"`
	Date        string   `json:"date"`
	Content     Rendered `json:"content"`
	Status      string   `json:"status,omitempty"`
}

// IsTopLevel はトップレベルのコメントかどうかを返す。
func (c Comment) IsTopLevel() bool {
	return c.Parent == 0
}

// IsPending は承認待ちのコメントかどうかを返す。
// 投稿直後に一覧へ先頭追加したコメントがこれに当たる。
func (c Comment) IsPending() bool {
	return c.Status == CommentStatusUnapproved || c.Status == "hold"
}
