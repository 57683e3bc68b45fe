package domain

// HomeItem is a repository entry shown on listing pages.
type HomeItem struct {
	ItemID      string `json:"item_id"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Name        string `json:"name"`
	Summary     string `json:"summary"`
	PrimaryLang string `json:"primary_lang"`
	LangColor   string `json:"lang_color"`
	Stars       int    `json:"stars"`
	Votes       int    `json:"votes"`
	CommentsNum int    `json:"comment_total"`
	UpdatedAt   string `json:"updated_at"`
}

// TagPage is the payload of a tag listing page.
type TagPage struct {
	Items   []HomeItem `json:"data"`
	TagName string     `json:"tag_name"`
}
