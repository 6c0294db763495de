package model

import "encoding/json"

// Image は表示用の画像情報。
type Image struct {
	URL    string `json:"url"`
	Alt    string `json:"alt,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
}

type embeddedMedia struct {
	SourceURL    string `json:"source_url"`
	AltText      string `json:"alt_text"`
	MediaDetails struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"media_details"`
}

// FeaturedImage は _embed で埋め込まれたアイキャッチ画像を返す。
// 埋め込みがない場合はnil。
func (e *Entity) FeaturedImage() *Image {
	if e == nil || len(e.Embedded) == 0 {
		return nil
	}
	var embedded struct {
		FeaturedMedia []embeddedMedia `json:"wp:featuredmedia"`
	}
	if err := json.Unmarshal(e.Embedded, &embedded); err != nil {
		return nil
	}
	if len(embedded.FeaturedMedia) == 0 || embedded.FeaturedMedia[0].SourceURL == "" {
		return nil
	}
	m := embedded.FeaturedMedia[0]
	return &Image{
		URL:    m.SourceURL,
		Alt:    m.AltText,
		Width:  m.MediaDetails.Width,
		Height: m.MediaDetails.Height,
	}
}
