// Package extid normalizes service handles and profile URLs into the
// canonical external ids accounts are keyed by, "<service>:<identifier>".
package extid

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

var githubUserPattern = regexp.MustCompile(`^(?:https?://)?(?:gist\.)?github\.(?:io|com)/([^/?&]+)`)

// NormalizeURL reduces a URL down to its host with an http scheme, the shape
// service records are stored under.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}
	return "http://" + u.Host, nil
}

// GitHub accepts either a bare username or a github.com / gist.github.io
// profile URL.
func GitHub(username string) string {
	if m := githubUserPattern.FindStringSubmatch(username); m != nil {
		username = m[1]
	}
	return "github+user:" + username
}

func Lobsters(name string) string {
	return "lobsters:" + name
}

// Twitter strips the conventional @ prefix off a handle.
func Twitter(handle string) string {
	return "twitter:" + strings.TrimPrefix(handle, "@")
}

// Reddit strips the u/ and /u/ prefixes off a username.
func Reddit(name string) string {
	name = strings.TrimPrefix(name, "/")
	name = strings.TrimPrefix(name, "u/")
	return "reddit:" + name
}

func HackerNews(name string) string {
	return "hn:" + name
}

func Keybase(name string) string {
	return "keybase:" + name
}
