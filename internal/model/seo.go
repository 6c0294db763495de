package model

// OGImage はOpen Graph画像の1件。
type OGImage struct {
	URL    string `json:"url,omitempty"`
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Alt    string `json:"alt,omitempty"`
	Type   string `json:"type,omitempty"`
}

// SEOHead はSEOプラグインが付与するhead用メタデータ（JSON形式）。
type SEOHead struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Keywords    string `json:"keywords,omitempty"`
	Author      string `json:"author,omitempty"`
	Canonical   string `json:"canonical,omitempty"`

	// robotsはオブジェクトで返るCMSもあるため生のまま保持する
	Robots any `json:"robots,omitempty"`

	OGTitle       string    `json:"og_title,omitempty"`
	OGDescription string    `json:"og_description,omitempty"`
	OGSiteName    string    `json:"og_site_name,omitempty"`
	OGLocale      string    `json:"og_locale,omitempty"`
	OGURL         string    `json:"og_url,omitempty"`
	OGType        string    `json:"og_type,omitempty"`
	OGImage       []OGImage `json:"og_image,omitempty"`
	OGUpdatedTime string    `json:"og_updated_time,omitempty"`

	TwitterCard        string `json:"twitter_card,omitempty"`
	TwitterTitle       string `json:"twitter_title,omitempty"`
	TwitterDescription string `json:"twitter_description,omitempty"`
	TwitterImage       string `json:"twitter_image,omitempty"`
	TwitterCreator     string `json:"twitter_creator,omitempty"`
	TwitterSite        string `json:"twitter_site,omitempty"`

	ArticlePublishedTime string `json:"article_published_time,omitempty"`
	ArticleModifiedTime  string `json:"article_modified_time,omitempty"`
	ArticleAuthor        string `json:"article_author,omitempty"`
	ArticleSection       string `json:"article_section,omitempty"`
	ArticleTag           string `json:"article_tag,omitempty"`
}
