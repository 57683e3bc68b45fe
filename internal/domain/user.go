package domain

// DefaultAvatar is shown when a user has no avatar configured.
const DefaultAvatar = "https://img.hellogithub.com/avatar/default.png"

// UserInfo is the identity of the logged in viewer.
type UserInfo struct {
	UID      string `json:"uid"`
	Nickname string `json:"nickname"`
	Avatar   string `json:"avatar"`
}

// AvatarURL returns the user's avatar or DefaultAvatar.
func (u UserInfo) AvatarURL() string {
	if u.Avatar == "" {
		return DefaultAvatar
	}
	return u.Avatar
}
