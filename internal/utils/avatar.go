package utils

import (
	"net/url"
	"strings"
)

const identiconBaseURL = "https://api.dicebear.com/7.x/avataaars/svg?seed="

// IdenticonURL returns a deterministic avatar URL seeded by the lowercased, trimmed seed.
func IdenticonURL(seed string) string {
	return identiconBaseURL + url.QueryEscape(strings.ToLower(strings.TrimSpace(seed)))
}

// AvatarURL prefers the stored avatar and falls back to an identicon of email, then nickname.
func AvatarURL(explicit, email, nickname string) string {
	if strings.TrimSpace(explicit) != "" {
		return explicit
	}
	seed := email
	if strings.TrimSpace(seed) == "" {
		seed = nickname
	}
	return IdenticonURL(seed)
}

// SplitMention splits a leading "@nickname " reply prefix off the content.
func SplitMention(content string) (mention, body string) {
	if !strings.HasPrefix(content, "@") {
		return "", content
	}
	idx := strings.IndexAny(content, " \n")
	if idx < 0 {
		return content, ""
	}
	return content[:idx], strings.TrimLeft(content[idx:], " ")
}
