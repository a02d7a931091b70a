// Package validate classifies response bodies as "false success": a 200 OK
// whose body is actually a block or challenge page. It never mutates the
// body, only returns a verdict.
package validate

import (
	"bytes"
	"strings"

	"github.com/theaidguild/spider/internal/trie"
)

// dataDomeSignature is the exact trailing marker DataDome's device-check
// page emits. An exact-tail match avoids false positives from pages that
// merely mention DataDome in passing.
const dataDomeSignature = `title="DataDome Device Check"></iframe></html>`

// maxScanBytes bounds the cost of the marker scan to the first N bytes of
// the body, where every known block/challenge page puts its tells.
const maxScanBytes = 2048

// maxBodySizeForWordMarkers is the size ceiling under which a loose word
// marker (rather than a strongly-tagged one) is allowed to contribute to a
// positive verdict, to keep long legitimate pages from tripping on
// incidental word matches.
const maxBodySizeForWordMarkers = 8 * 1024

type markerClass int

const (
	classHTMLGate markerClass = iota
	classCheckingBrowser
	classLangHint
	classGeneric403
	classStrongTagged
	classLooseWord
)

type marker struct {
	pattern string
	class   markerClass
	lang    string // "" = language-agnostic
}

var markers = []marker{
	{pattern: "<html", class: classHTMLGate},

	{pattern: "checking your browser", class: classCheckingBrowser},
	{pattern: "checking if the site connection is secure", class: classCheckingBrowser},
	{pattern: "cf-browser-verification", class: classCheckingBrowser},
	{pattern: "ddos protection by", class: classCheckingBrowser},

	{pattern: `lang="en"`, class: classLangHint, lang: "en"},
	{pattern: `lang="es"`, class: classLangHint, lang: "es"},
	{pattern: `lang="fr"`, class: classLangHint, lang: "fr"},
	{pattern: `lang="de"`, class: classLangHint, lang: "de"},
	{pattern: `lang="pt"`, class: classLangHint, lang: "pt"},

	{pattern: "403 forbidden", class: classGeneric403},
	{pattern: "access denied", class: classGeneric403},
	{pattern: "you don't have permission", class: classGeneric403},

	{pattern: "perimeterx", class: classStrongTagged, lang: "en"},
	{pattern: "radware bot manager", class: classStrongTagged, lang: "en"},
	{pattern: "perfdrive", class: classStrongTagged, lang: "en"},
	{pattern: "request unsuccessful. incapsula", class: classStrongTagged, lang: "en"},
	{pattern: "accès refusé", class: classStrongTagged, lang: "fr"},
	{pattern: "acceso denegado", class: classStrongTagged, lang: "es"},
	{pattern: "zugriff verweigert", class: classStrongTagged, lang: "de"},

	{pattern: "blocked", class: classLooseWord, lang: "en"},
	{pattern: "forbidden", class: classLooseWord, lang: "en"},
	{pattern: "bloqueado", class: classLooseWord, lang: "es"},
	{pattern: "bloqué", class: classLooseWord, lang: "fr"},
	{pattern: "gesperrt", class: classLooseWord, lang: "de"},
}

var matcher = buildMatcher()

func buildMatcher() *trie.Matcher {
	patterns := make([]string, len(markers))
	for i, m := range markers {
		patterns[i] = m.pattern
	}
	return trie.NewMatcher(patterns)
}

// LooksLikeFalseSuccess returns true if body appears to be a disguised
// block or challenge page despite (presumably) a 200 status. langHint, if
// non-empty, is an additional language to include in the effective
// language mask (e.g. from Content-Language or a caller's site-language
// config).
func LooksLikeFalseSuccess(body []byte, langHint string) bool {
	trimmed := bytes.TrimRight(body, " \t\r\n\f\v")
	if bytes.HasSuffix(trimmed, []byte(dataDomeSignature)) {
		return true
	}

	window := body
	if len(window) > maxScanBytes {
		window = window[:maxScanBytes]
	}
	text := string(window)
	matched := matcher.MatchedSet(text)
	if !matched.Any() {
		return false
	}

	var sawHTML, sawCheckingBrowser, sawGeneric403 bool
	var detectedLangs []string
	var wordHit bool
	strongLangs := map[string]bool{}
	wordLangs := map[string]bool{}

	for i, info := range markers {
		if !matched.Test(uint(i)) {
			continue
		}
		switch info.class {
		case classHTMLGate:
			sawHTML = true
		case classCheckingBrowser:
			sawCheckingBrowser = true
		case classLangHint:
			detectedLangs = append(detectedLangs, info.lang)
		case classGeneric403:
			sawGeneric403 = true
		case classStrongTagged:
			strongLangs[info.lang] = true
		case classLooseWord:
			wordHit = true
			wordLangs[info.lang] = true
		}
	}

	if !sawHTML {
		return false
	}
	if sawCheckingBrowser {
		return true
	}

	mask := effectiveLangMask(detectedLangs, langHint)

	for lang := range strongLangs {
		if mask[lang] {
			return true
		}
	}

	if len(body) <= maxBodySizeForWordMarkers && sawGeneric403 && wordHit {
		for lang := range wordLangs {
			if mask[lang] {
				return true
			}
		}
	}

	return false
}

// effectiveLangMask builds the set of languages considered "in scope" for
// a verdict: every language detected in the body, the caller's hint, and
// English always (the most common default for generic block pages).
func effectiveLangMask(detected []string, hint string) map[string]bool {
	mask := map[string]bool{"en": true}
	for _, l := range detected {
		mask[strings.ToLower(l)] = true
	}
	if hint != "" {
		mask[strings.ToLower(hint)] = true
	}
	return mask
}
