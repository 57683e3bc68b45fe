package redis

import "strings"

const (
	// KeyPrefixCache is the prefix for cached API responses
	KeyPrefixCache = "hubfeed:cache:"
	// KeyPrefixSession is the prefix for viewer sessions
	KeyPrefixSession = "hubfeed:session:"
)

// TagKey returns the cache key of a tag page
func TagKey(tagID string) string {
	return KeyPrefixCache + "tag:" + sanitize(tagID)
}

// LicenseKey returns the cache key of a license detail as answered to one
// caller IP
func LicenseKey(licenseID, callerIP string) string {
	return KeyPrefixCache + "license:" + sanitize(licenseID) + ":" + sanitize(callerIP)
}

// SessionKey returns the key of a session record
func SessionKey(sid string) string {
	return KeyPrefixSession + sid
}

// sanitize keeps ids from escaping their key namespace.
func sanitize(id string) string {
	return strings.NewReplacer(":", "_", "*", "_", " ", "_").Replace(id)
}
