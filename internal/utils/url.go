package utils

import (
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/idna"
)

var urlRegex = regexp.MustCompile(`https?://[^\s]+`)

var inviteHosts = map[string]struct{}{
	"discord.gg": {},
	"discord.io": {},
	"dsc.gg":     {},
	"discord.me": {},
	"invite.gg":  {},
}

func ExtractURLs(content string) []string {
	return urlRegex.FindAllString(content, -1)
}

// NormalizeHost lowercases and punycodes a hostname so look-alike unicode
// domains compare equal to their ASCII form.
func NormalizeHost(raw string) string {
	host := strings.ToLower(strings.TrimSpace(raw))
	if ascii, err := idna.ToASCII(host); err == nil {
		host = ascii
	}
	return host
}

// ContainsInvite reports whether a message carries a Discord server invite,
// either as a bare "discord.gg/..." fragment or as a full URL on an invite
// host or discord.com/invite path.
func ContainsInvite(content string) bool {
	lower := strings.ToLower(content)
	if strings.Contains(lower, "discord.gg/") || strings.Contains(lower, "discord.com/invite/") {
		return true
	}

	for _, raw := range ExtractURLs(content) {
		parsed, err := url.Parse(raw)
		if err != nil {
			continue
		}
		host := NormalizeHost(parsed.Hostname())
		if _, ok := inviteHosts[host]; ok {
			return true
		}
		if host == "discord.com" && strings.HasPrefix(strings.ToLower(parsed.Path), "/invite/") {
			return true
		}
	}
	return false
}
