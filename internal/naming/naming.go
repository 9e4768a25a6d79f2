// Package naming derives cluster-safe identifiers from user-supplied tenant
// names and validates ingress hostnames. All functions are pure: the same
// input always yields the same output, so derived identifiers can double as
// uniqueness keys.
package naming

import (
	"regexp"
	"strings"
)

const (
	stackPrefix  = "mautic-"
	dbPrefix     = "mautic_"
	dbUserSuffix = "_user"

	// MySQL limits: database names up to 64 characters, user names up to 32.
	maxDBNameLen = 64
	maxDBUserLen = 32
)

var (
	nonAlnumRun   = regexp.MustCompile(`[^a-z0-9]+`)
	stackNameRepl = regexp.MustCompile(`[^a-z0-9-]`)
	dbNameRepl    = regexp.MustCompile(`[^a-z0-9_]`)

	// Conservative DNS hostname grammar: dot-separated labels of letters,
	// digits and hyphens, no leading/trailing hyphen per label, no empty
	// labels (which also rules out consecutive dots).
	hostnameRe = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]*[a-zA-Z0-9])?)*$`)
)

// Slugify turns a display name into a canonical slug: lower-cased, runs of
// non-alphanumeric characters collapsed to a single hyphen, leading and
// trailing hyphens trimmed.
func Slugify(name string) string {
	slug := nonAlnumRun.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}

// StackName derives the deployment stack name for a slug. The result
// contains only characters from [a-z0-9-].
func StackName(slug string) string {
	return sanitizeStackName(stackPrefix + slug)
}

// DBName derives the tenant database name for a slug, restricted to
// [a-z0-9_] and truncated to the MySQL identifier limit.
func DBName(slug string) string {
	return truncate(sanitizeDBName(dbPrefix+slug), maxDBNameLen)
}

// DBUser derives the tenant database user for a slug, restricted to
// [a-z0-9_] and truncated to the MySQL user name limit. The suffix is kept
// even when the slug portion has to be shortened, so truncated users stay
// recognizable.
func DBUser(slug string) string {
	user := sanitizeDBName(dbPrefix + slug + dbUserSuffix)
	if len(user) <= maxDBUserLen {
		return user
	}
	head := truncate(sanitizeDBName(dbPrefix+slug), maxDBUserLen-len(dbUserSuffix))
	return head + dbUserSuffix
}

// ValidateDomain reports whether the given string is an acceptable ingress
// hostname: letters, digits, hyphens and dots only, no leading or trailing
// dot or hyphen, no consecutive dots, at most 253 characters with labels of
// at most 63.
func ValidateDomain(domain string) bool {
	if domain == "" || len(domain) > 253 {
		return false
	}
	if !hostnameRe.MatchString(domain) {
		return false
	}
	for _, label := range strings.Split(domain, ".") {
		if len(label) > 63 {
			return false
		}
	}
	return true
}

// SanitizeStackName replaces every character outside [a-z0-9-] with a
// hyphen, lower-casing first. Exposed for callers that embed externally
// supplied stack names in descriptors.
func SanitizeStackName(name string) string {
	return sanitizeStackName(name)
}

func sanitizeStackName(name string) string {
	return stackNameRepl.ReplaceAllString(strings.ToLower(name), "-")
}

func sanitizeDBName(name string) string {
	return dbNameRepl.ReplaceAllString(strings.ToLower(name), "_")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
