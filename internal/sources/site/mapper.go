package site

import (
	"errors"
	"net/url"
	"strings"

	"github.com/MrSnakeDoc/hubfeed/internal/domain"
)

// DefaultTitle is used when site.yaml sets none.
const DefaultTitle = "HelloGitHub"

// ErrEmptySite is returned when no usable link survives mapping.
var ErrEmptySite = errors.New("no valid links found in site config")

// Map converts the raw config into a domain.Site, dropping links without a
// label or with an href that is neither a site path nor an http(s) URL.
func Map(cfg Config) (domain.Site, error) {
	s := domain.Site{
		Title:  strings.TrimSpace(cfg.Title),
		Nav:    mapLinks(cfg.Nav),
		Footer: mapLinks(cfg.Footer),
	}
	if s.Title == "" {
		s.Title = DefaultTitle
	}
	if len(s.Nav) == 0 && len(s.Footer) == 0 {
		return domain.Site{}, ErrEmptySite
	}
	return s, nil
}

func mapLinks(in []LinkProps) []domain.Link {
	out := make([]domain.Link, 0, len(in))
	for _, p := range in {
		label := strings.TrimSpace(p.Label)
		href := strings.TrimSpace(p.Href)
		if label == "" || href == "" {
			continue
		}
		external, ok := classify(href)
		if !ok {
			continue
		}
		out = append(out, domain.Link{
			Label:    label,
			Href:     href,
			External: external || p.Target == "_blank",
		})
	}
	return out
}

// classify reports whether href leaves the site, and whether it is usable.
func classify(href string) (external, ok bool) {
	if strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "//") {
		return false, true
	}
	u, err := url.Parse(href)
	if err != nil || u.Host == "" {
		return false, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false, false
	}
	return true, true
}
