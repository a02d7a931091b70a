package fingerprint

import (
	"math/rand"
	"regexp"
	"strconv"
)

var chromeVersionRE = regexp.MustCompile(`Chrome/(\d+)`)

// extractChromeMajor parses the Chrome major version out of a user-agent
// string, defaulting to the latest known major if absent or unparsable.
func extractChromeMajor(userAgent string) int {
	m := chromeVersionRE.FindStringSubmatch(userAgent)
	if m == nil {
		return latestKnownMajor
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return latestKnownMajor
	}
	return n
}

// chromeFullVersions maps a major version to the full version strings
// actually shipped for it. The table only needs to be plausible, not
// exhaustive.
var chromeFullVersions = map[int][]string{
	130: {"130.0.6723.116", "130.0.6723.92"},
	131: {"131.0.6778.139", "131.0.6778.108"},
	132: {"132.0.6834.160", "132.0.6834.83"},
	133: {"133.0.6943.98", "133.0.6943.53"},
	134: {"134.0.6998.117", "134.0.6998.88"},
	135: {"135.0.7049.95", "135.0.7049.41"},
	136: {"136.0.7103.92", "136.0.7103.59"},
	137: {"137.0.7151.68", "137.0.7151.40"},
}

const latestKnownMajor = 137

// spoofedFullVersionBiasPercent is the chance the requested major's
// highest-listed ("true latest") full version is returned rather than a
// uniformly random pick from its table entry — biasing toward the version
// most real installs of that major actually report.
const spoofedFullVersionBiasPercent = 75

// spoofedFullVersion picks a full Chrome version string for major, biasing
// 75% of the time toward the newest entry for that major when it's known.
func spoofedFullVersion(major int) string {
	versions, ok := chromeFullVersions[major]
	if !ok || len(versions) == 0 {
		return strconv.Itoa(major) + ".0.0.0"
	}
	if rand.Intn(100) < spoofedFullVersionBiasPercent {
		return versions[0]
	}
	return versions[rand.Intn(len(versions))]
}

// notABrandBoundaryMajor is the Chrome major at which the spoofed
// userAgentData brand list's filler entry switched its stylized form.
// Decided per the spec's open question: the reference treats >=136 as the
// newer form; this table follows that decision until Chromium's source of
// truth is checked against a newer release.
const notABrandBoundaryMajor = 136

// notABrandToken returns the brand string Chrome uses as a deliberately
// unstable filler entry in navigator.userAgentData brand lists, varying
// its punctuation by era.
func notABrandToken(major int) string {
	if major >= notABrandBoundaryMajor {
		return "Not.A/Brand"
	}
	return "Not-A.Brand"
}
