package extid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"https://github.com/somebody/repo": "http://github.com",
		"http://lobste.rs/u/somebody":      "http://lobste.rs",
		"https://news.ycombinator.com":     "http://news.ycombinator.com",
	}
	for in, want := range cases {
		got, err := NormalizeURL(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
}

func TestNormalizeURLNoHost(t *testing.T) {
	_, err := NormalizeURL("not-a-url")
	assert.Error(t, err)
}

func TestGitHub(t *testing.T) {
	cases := map[string]string{
		"somebody":                          "github+user:somebody",
		"https://github.com/somebody":       "github+user:somebody",
		"github.com/somebody/project":       "github+user:somebody",
		"https://gist.github.io/somebody":   "github+user:somebody",
		"http://github.io/somebody?tab=all": "github+user:somebody",
	}
	for in, want := range cases {
		assert.Equal(t, want, GitHub(in), in)
	}
}

func TestHandles(t *testing.T) {
	assert.Equal(t, "lobsters:somebody", Lobsters("somebody"))
	assert.Equal(t, "twitter:somebody", Twitter("@somebody"))
	assert.Equal(t, "twitter:somebody", Twitter("somebody"))
	assert.Equal(t, "reddit:somebody", Reddit("/u/somebody"))
	assert.Equal(t, "reddit:somebody", Reddit("u/somebody"))
	assert.Equal(t, "reddit:somebody", Reddit("somebody"))
	assert.Equal(t, "hn:somebody", HackerNews("somebody"))
	assert.Equal(t, "keybase:somebody", Keybase("somebody"))
}
