package model

import (
	"encoding/json"
	"fmt"
)

// EntityStatus はCMS上のコンテンツの公開状態を表す。
type EntityStatus string

const (
	StatusPublish EntityStatus = "publish"
	StatusFuture  EntityStatus = "future"
	StatusDraft   EntityStatus = "draft"
	StatusPending EntityStatus = "pending"
	StatusPrivate EntityStatus = "private"
)

// PreviewStatuses はプレビュー時に取得対象とする未公開ステータス。
var PreviewStatuses = []EntityStatus{StatusDraft, StatusPending, StatusPrivate}

// Rendered はCMSがレンダリング済みHTMLを包んで返すフィールド。
type Rendered struct {
	Rendered  string `json:"rendered"`
	Protected bool   `json:"protected,omitempty"`
}

// Entity はCMSのページ・投稿・カスタム投稿タイプの1件を表す。
// CMSが正であり、このシステムでは読み取り専用として扱う。
type Entity struct {
	ID            int             `json:"id"`
	Slug          string          `json:"slug"`
	Status        EntityStatus    `json:"status"`
	Type          string          `json:"type"`
	Link          string          `json:"link"`
	Date          string          `json:"date"`
	Modified      string          `json:"modified"`
	Title         Rendered        `json:"title"`
	Content       Rendered        `json:"content"`
	Excerpt       Rendered        `json:"excerpt"`
	Template      string          `json:"template"`
	Author        int             `json:"author"`
	FeaturedMedia int             `json:"featured_media"`
	CommentStatus string          `json:"comment_status"`
	Meta          json.RawMessage `json:"meta,omitempty"`
	ACF           json.RawMessage `json:"acf,omitempty"`
	Embedded      json.RawMessage `json:"_embedded,omitempty"`
	YoastHeadJSON *SEOHead        `json:"yoast_head_json,omitempty"`

	// Raw はデコード元のJSONオブジェクト全体。
	// プレビューのディープマージで未知のキーを落とさないために保持する。
	Raw map[string]any `json:"-"`
}

// UnmarshalJSON は型付きフィールドに加えて元のオブジェクトをRawに保持する。
func (e *Entity) UnmarshalJSON(b []byte) error {
	type alias Entity
	if err := json.Unmarshal(b, (*alias)(e)); err != nil {
		return err
	}
	raw := make(map[string]any)
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	e.Raw = raw
	return nil
}

// MetaValues はmetaフィールドをキー・値のマップとして返す。
// CMSはmetaが空のとき [] を返すため、その場合は空マップになる。
func (e *Entity) MetaValues() map[string]any {
	values := make(map[string]any)
	if len(e.Meta) == 0 {
		return values
	}
	if err := json.Unmarshal(e.Meta, &values); err != nil {
		return map[string]any{}
	}
	return values
}

// CommentsOpen はコメント投稿を受け付ける状態かどうかを返す。
// 公開済みでないエンティティにはコメントできない。
func (e *Entity) CommentsOpen() bool {
	return e.Status == StatusPublish && e.CommentStatus != "closed"
}

// asMap はディープマージ用にエンティティをマップ表現へ変換する。
func (e *Entity) asMap() (map[string]any, error) {
	if e.Raw != nil {
		return e.Raw, nil
	}
	type alias Entity
	b, err := json.Marshal((*alias)(e))
	if err != nil {
		return nil, fmt.Errorf("エンティティのエンコードに失敗: %w", err)
	}
	m := make(map[string]any)
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("エンティティのデコードに失敗: %w", err)
	}
	return m, nil
}

// MergeEntities は公開済みデータにプレビューデータを重ねたエンティティを返す。
// overlayがnilの場合はbaseをそのまま返す。
func MergeEntities(base, overlay *Entity) (*Entity, error) {
	if base == nil {
		return overlay, nil
	}
	if overlay == nil {
		return base, nil
	}

	baseMap, err := base.asMap()
	if err != nil {
		return nil, err
	}
	overlayMap, err := overlay.asMap()
	if err != nil {
		return nil, err
	}

	merged := DeepMerge(baseMap, overlayMap)
	b, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("マージ結果のエンコードに失敗: %w", err)
	}

	var out Entity
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("マージ結果のデコードに失敗: %w", err)
	}
	return &out, nil
}

// DeepMerge はtargetにsourceを再帰的に重ねた新しいマップを返す。
// 両方がオブジェクトのキーは再帰的にマージし、配列とスカラーはsourceで置き換える。
// sourceに存在しないキーはtargetの値を保持する。入力は変更しない。
func DeepMerge(target, source map[string]any) map[string]any {
	result := make(map[string]any, len(target)+len(source))
	for k, v := range target {
		result[k] = v
	}

	for k, sv := range source {
		srcObj, srcIsObj := sv.(map[string]any)
		dstObj, dstIsObj := result[k].(map[string]any)
		if srcIsObj && dstIsObj {
			result[k] = DeepMerge(dstObj, srcObj)
			continue
		}
		result[k] = sv
	}

	return result
}
