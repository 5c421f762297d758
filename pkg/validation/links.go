package validation

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/aretw0/formflow/pkg/domain"
)

var telegramPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^@[a-zA-Z0-9_]+$`),
	regexp.MustCompile(`^(https?://)?t\.me/[a-zA-Z0-9_]+/?$`),
}

var facebookPaths = []*regexp.Regexp{
	regexp.MustCompile(`^/[a-z0-9._-]+/?$`),
	regexp.MustCompile(`^/pages/[^/]+/\d+/?$`),
	regexp.MustCompile(`^/[a-z0-9._-]+/posts/\d+/?$`),
	regexp.MustCompile(`^/groups/\d+/?$`),
	regexp.MustCompile(`^/events/\d+/?$`),
}

var instagramPaths = []*regexp.Regexp{
	regexp.MustCompile(`^/[a-z0-9._]+/?$`),
	regexp.MustCompile(`^/p/[a-z0-9_-]+/?$`),
	regexp.MustCompile(`^/reel/[a-z0-9_-]+/?$`),
	regexp.MustCompile(`^/tv/[a-z0-9_-]+/?$`),
	regexp.MustCompile(`^/stories/[a-z0-9._]+/\d+/?$`),
	regexp.MustCompile(`^/explore/tags/[a-z0-9_]+/?$`),
}

var (
	facebookHosts  = map[string]bool{"facebook.com": true, "m.facebook.com": true, "fb.com": true, "fb.me": true}
	instagramHosts = map[string]bool{"instagram.com": true, "instagr.am": true}
)

// MatchLink reports whether s is a well-formed link of the given kind.
// Only the shape of the link is checked; nothing is fetched.
func MatchLink(kind domain.LinkKind, s string) bool {
	switch kind {
	case domain.LinkTelegram:
		return matchAny(telegramPatterns, s)
	case domain.LinkFacebook:
		u, host, ok := parseSocial(s)
		return ok && facebookHosts[host] && facebookPath(u)
	case domain.LinkInstagram:
		u, host, ok := parseSocial(s)
		return ok && instagramHosts[host] && matchAny(instagramPaths, strings.ToLower(u.Path))
	case domain.LinkSocial:
		return MatchLink(domain.LinkFacebook, s) || MatchLink(domain.LinkInstagram, s)
	}
	return false
}

func matchAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

func parseSocial(s string) (*url.URL, string, bool) {
	if s == "" || strings.ContainsAny(s, " \t\n") {
		return nil, "", false
	}
	if !strings.HasPrefix(s, "http://") && !strings.HasPrefix(s, "https://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return nil, "", false
	}
	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	return u, host, true
}

func facebookPath(u *url.URL) bool {
	path := strings.ToLower(u.Path)
	if path == "/profile.php" {
		q := u.Query()
		return q.Get("id") != "" || q.Get("fbid") != ""
	}
	return matchAny(facebookPaths, path)
}
