package domain

// Link is one entry of the header navigation or the footer.
type Link struct {
	Label    string
	Href     string
	External bool // opens in a new tab
}

// Site holds the chrome shared by every page.
type Site struct {
	Title  string
	Nav    []Link
	Footer []Link
}
