package memory

import (
	"regexp"
)

// secretPatterns match credential formats that must never be persisted as
// memory content. Favors false positives over false negatives; a rejected
// save is recoverable, a stored credential is not.
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)sk-[a-zA-Z0-9]{20,}`),
	regexp.MustCompile(`AIza[a-zA-Z0-9\-_]{35}`),
	regexp.MustCompile(`(?i)ghp_[a-zA-Z0-9]{36}`),
	regexp.MustCompile(`AKIA[A-Z0-9]{16}`),
	regexp.MustCompile(`(?i)eyJ[a-zA-Z0-9_\-]{20,}\.eyJ[a-zA-Z0-9_\-]+`),
	regexp.MustCompile(`(?i)(?:postgres|mysql|mongodb|redis)://\S+@\S+`),
	regexp.MustCompile(`-{5}BEGIN (?:RSA |EC |DSA )?PRIVATE KEY-{5}`),
	regexp.MustCompile(`(?i)bearer\s+[a-zA-Z0-9\-_.]{20,}`),
	regexp.MustCompile(`(?i)(?:api[_-]?key|api[_-]?secret|access[_-]?token|secret[_-]?key|auth[_-]?token)\s*[:=]\s*["']?[a-zA-Z0-9\-_.]{16,}["']?`),
	regexp.MustCompile(`(?i)(?:password|passwd|pwd)\s*[:=]\s*["']?[^\s"']{8,}["']?`),
}

// ContainsSecrets reports whether text matches any known secret pattern.
func ContainsSecrets(text string) bool {
	for _, p := range secretPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
