package negotiation

import "golang.org/x/mod/semver"

// Supported reports whether the client version satisfies the minimum.
// An empty minimum accepts every client. A client version that is not valid
// semver never satisfies a non-empty minimum.
func Supported(clientVersion, minVersion string) bool {
	if minVersion == "" {
		return true
	}
	cv := normalizeVersion(clientVersion)
	if !semver.IsValid(cv) {
		return false
	}
	return semver.Compare(cv, normalizeVersion(minVersion)) >= 0
}

// ValidMinimum reports whether v can be used as a minimum version.
func ValidMinimum(v string) bool {
	return v == "" || semver.IsValid(normalizeVersion(v))
}

// normalizeVersion adds "v" prefix if needed for semver parsing.
func normalizeVersion(v string) string {
	if v == "" {
		return "v0.0.0"
	}
	if v[0] != 'v' {
		return "v" + v
	}
	return v
}
