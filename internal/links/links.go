// Package links keeps cross-document references consistent: it rewrites
// links when a page moves and reports links whose targets are missing.
package links

import (
	"net/url"
	"path"
	"regexp"
	"strings"
)

// linkRE matches markdown links and images, excluding in-page anchors.
var linkRE = regexp.MustCompile(`!?\[[^\]]*\]\(([^)#][^)]*)\)`)

// schemeRE matches a URL scheme such as http:, mailto: or data:.
var schemeRE = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.\-]*:`)

// IsExternal reports whether target is an absolute URL or uses a
// non-relative scheme.
func IsExternal(target string) bool {
	return strings.HasPrefix(target, "//") || schemeRE.MatchString(target)
}

// Clean strips surrounding whitespace, an optional quoted title and a
// #fragment from a raw link target.
func Clean(target string) string {
	t := strings.TrimSpace(target)
	if strings.HasPrefix(t, "<") {
		if end := strings.Index(t, ">"); end > 0 {
			t = t[1:end]
		}
	} else if i := strings.IndexAny(t, " \t"); i >= 0 {
		rest := strings.TrimSpace(t[i:])
		if strings.HasPrefix(rest, `"`) || strings.HasPrefix(rest, `'`) || strings.HasPrefix(rest, "(") {
			t = t[:i]
		}
	}
	if i := strings.Index(t, "#"); i >= 0 {
		t = t[:i]
	}
	if decoded, err := url.PathUnescape(t); err == nil {
		t = decoded
	}
	return t
}

// Resolve maps a link target found in doc to a vault-relative path. Targets
// starting with "/" are relative to the vault root, everything else to the
// document's directory. ok is false for external or empty targets. The
// result may start with "../" when the target escapes the vault.
func Resolve(doc, target string) (string, bool) {
	t := Clean(target)
	if t == "" || IsExternal(t) {
		return "", false
	}
	if strings.HasPrefix(t, "/") {
		return strings.TrimPrefix(path.Clean(t), "/"), true
	}
	return path.Join(path.Dir(doc), t), true
}
