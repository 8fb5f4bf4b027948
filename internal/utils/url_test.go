package utils

import "testing"

func TestExtractURLs(t *testing.T) {
	urls := ExtractURLs("see https://rustmaps.com/map/abc and http://example.com now")
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %v", urls)
	}
	if urls[0] != "https://rustmaps.com/map/abc" {
		t.Fatalf("unexpected first url %s", urls[0])
	}
}

func TestNormalizeHost(t *testing.T) {
	if got := NormalizeHost("  Discord.GG "); got != "discord.gg" {
		t.Fatalf("got %s", got)
	}
	if got := NormalizeHost("bücher.example"); got != "xn--bcher-kva.example" {
		t.Fatalf("punycode expected, got %s", got)
	}
}

func TestContainsInvite(t *testing.T) {
	cases := []struct {
		content string
		want    bool
	}{
		{"join discord.gg/abc123", true},
		{"https://discord.com/invite/abc123", true},
		{"https://dsc.gg/myserver", true},
		{"https://DISCORD.GG/loud", true},
		{"https://discord.com/channels/1/2", false},
		{"plain message about rust", false},
		{"https://rustmaps.com/map/abc", false},
	}
	for _, tc := range cases {
		if got := ContainsInvite(tc.content); got != tc.want {
			t.Fatalf("ContainsInvite(%q) = %v, want %v", tc.content, got, tc.want)
		}
	}
}
