package site

// Config is the raw structure of site.yaml.
type Config struct {
	Title  string      `yaml:"title"`
	Nav    []LinkProps `yaml:"nav"`
	Footer []LinkProps `yaml:"footer"`
}

// LinkProps is a link as written in site.yaml.
type LinkProps struct {
	Label  string `yaml:"label"`
	Href   string `yaml:"href"`
	Target string `yaml:"target,omitempty"` // "_blank" marks an external link
}
