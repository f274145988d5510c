package whitelist

import (
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Checker reports whether a sender belongs to a domain that bypasses triage
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a checker for domains. Entries match the domain itself
// and every sub-domain; a leading "@" or "." is ignored.
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	normalized := lo.Uniq(lo.FilterMap(domains, func(d string, _ int) (string, bool) {
		d = strings.ToLower(strings.Trim(strings.TrimSpace(d), "@."))
		return d, d != ""
	}))

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized skip-domain checker", zap.Strings("domains", normalized))
	}

	return &Checker{
		domains: normalized,
		logger:  logger,
	}
}

// IsWhitelisted checks if the sender's domain, or a parent of it, is listed
func (c *Checker) IsWhitelisted(from string) bool {
	if c == nil || len(c.domains) == 0 {
		return false
	}

	at := strings.LastIndex(from, "@")
	if at < 0 || at == len(from)-1 {
		return false
	}
	domain := strings.ToLower(strings.Trim(from[at+1:], "> "))

	matched, ok := lo.Find(c.domains, func(listed string) bool {
		return domain == listed || strings.HasSuffix(domain, "."+listed)
	})
	if ok && c.logger != nil {
		c.logger.Debug("Sender domain skips triage",
			zap.String("domain", domain),
			zap.String("listed", matched),
			zap.String("email", from))
	}
	return ok
}
