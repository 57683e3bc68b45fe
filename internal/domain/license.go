package domain

// LicenseDetail describes an open source license.
//
// The zero value is the empty fallback rendered when the lookup fails,
// see IsEmpty.
type LicenseDetail struct {
	LID         string   `json:"lid"`
	Key         string   `json:"key"`
	Name        string   `json:"name"`
	SPDXID      string   `json:"spdx_id"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	Conditions  []string `json:"conditions"`
	Limitations []string `json:"limitations"`
	Body        string   `json:"body"`
	HTMLURL     string   `json:"html_url"`
}

// IsEmpty reports whether l is the empty-shaped fallback.
func (l LicenseDetail) IsEmpty() bool {
	return l.LID == "" && l.Key == "" && l.Name == ""
}
