package rules

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	"github.com/mikey/phish-quarantine/internal/core"
)

// Per-check score contributions. The sum of all maximums exceeds 1.0 on
// purpose; the engine caps the total.
const (
	lookalikeScore     = 0.50
	urgencyScorePerHit = 0.15
	urgencyScoreCap    = 0.30
	baitScorePerHit    = 0.15
	baitScoreCap       = 0.45
	displayNameScore   = 0.35
	ipLinkScore        = 0.30
	shortenerLinkScore = 0.20
	suspiciousLinksCap = 0.40
)

var urgencyKeywords = []string{
	"urgent", "immediately", "asap", "right away", "time sensitive",
	"act now", "expires today", "final notice", "last warning",
	"within 24 hours",
}

var credentialBaitKeywords = []string{
	"verify your account", "confirm your identity", "update your payment",
	"unusual activity", "suspicious activity", "account suspended",
	"account locked", "reset your password", "click the link below",
	"wire transfer", "gift card",
}

var (
	urlPattern       = regexp.MustCompile(`https?://[^\s<>"']+`)
	ipHostPattern    = regexp.MustCompile(`^https?://(?:\d{1,3}\.){3}\d{1,3}(?:[:/]|$)`)
	shortenerDomains = []string{"bit.ly", "tinyurl.com", "goo.gl", "t.co", "is.gd", "ow.ly"}

	// Homoglyph substitutions commonly used in lookalike domains
	substitutions = strings.NewReplacer(
		"0", "o",
		"1", "l",
		"3", "e",
		"4", "a",
		"5", "s",
		"7", "t",
		"8", "b",
		"@", "a",
	)
)

// checkLookalikeDomain flags sender domains that imitate a trusted domain
// through character substitution (payp4l.com) or a near-identical spelling
// (companny.com).
func checkLookalikeDomain(record *core.EmailRecord, trustedDomains []string) *checkResult {
	senderDomain := extractDomain(record.Sender)
	if senderDomain == "" {
		return nil
	}

	for _, trusted := range trustedDomains {
		if senderDomain == trusted {
			// Exact match is a legitimate sender
			return nil
		}

		// Undo common character substitutions before comparing
		if substitutions.Replace(senderDomain) == trusted {
			return &checkResult{
				Score: lookalikeScore,
				Reason: fmt.Sprintf(
					"Sender domain '%s' imitates trusted domain '%s' via character substitution",
					senderDomain, trusted,
				),
			}
		}

		// Near-identical spellings caught by edit distance
		distance := levenshteinDistance(senderDomain, trusted)
		maxLen := float64(max(len(senderDomain), len(trusted)))
		similarity := (1.0 - float64(distance)/maxLen) * 100

		if similarity > 85 && similarity < 100 {
			return &checkResult{
				Score: lookalikeScore,
				Reason: fmt.Sprintf(
					"Sender domain '%s' is %.1f%% similar to trusted domain '%s'",
					senderDomain, similarity, trusted,
				),
			}
		}
	}

	return nil
}

// checkUrgencyLanguage flags pressure language in the subject or body
func checkUrgencyLanguage(record *core.EmailRecord, _ []string) *checkResult {
	text := strings.ToLower(record.Subject + " " + record.Body)

	hits := matchedKeywords(text, urgencyKeywords)
	if len(hits) == 0 {
		return nil
	}

	score := capScore(float64(len(hits))*urgencyScorePerHit, urgencyScoreCap)
	return &checkResult{
		Score: score,
		Reason: fmt.Sprintf("Urgency language detected: %s",
			strings.Join(hits, ", ")),
	}
}

// checkCredentialBait flags phrases that push the recipient toward
// credentials or payment details
func checkCredentialBait(record *core.EmailRecord, _ []string) *checkResult {
	text := strings.ToLower(record.Subject + " " + record.Body)

	hits := matchedKeywords(text, credentialBaitKeywords)
	if len(hits) == 0 {
		return nil
	}

	score := capScore(float64(len(hits))*baitScorePerHit, baitScoreCap)
	return &checkResult{
		Score: score,
		Reason: fmt.Sprintf("Credential or payment bait detected: %s",
			strings.Join(hits, ", ")),
	}
}

// checkDisplayNameMismatch flags senders whose display name carries a
// trusted brand while the actual domain does not
func checkDisplayNameMismatch(record *core.EmailRecord, trustedDomains []string) *checkResult {
	addr, err := mail.ParseAddress(record.Sender)
	if err != nil || addr.Name == "" {
		return nil
	}

	name := strings.ToLower(addr.Name)
	senderDomain := extractDomain(addr.Address)

	for _, trusted := range trustedDomains {
		brand := trusted
		if idx := strings.Index(trusted, "."); idx > 0 {
			brand = trusted[:idx]
		}
		if strings.Contains(name, brand) && senderDomain != trusted {
			return &checkResult{
				Score: displayNameScore,
				Reason: fmt.Sprintf(
					"Display name '%s' references '%s' but sender domain is '%s'",
					addr.Name, trusted, senderDomain,
				),
			}
		}
	}

	return nil
}

// checkSuspiciousLinks flags IP-literal and link-shortener URLs in the body
func checkSuspiciousLinks(record *core.EmailRecord, _ []string) *checkResult {
	urls := urlPattern.FindAllString(record.Body, -1)
	if len(urls) == 0 {
		return nil
	}

	score := 0.0
	flagged := make([]string, 0)
	for _, u := range urls {
		switch {
		case ipHostPattern.MatchString(u):
			score += ipLinkScore
			flagged = append(flagged, fmt.Sprintf("IP-address link %s", u))
		case isShortenerURL(u):
			score += shortenerLinkScore
			flagged = append(flagged, fmt.Sprintf("link-shortener URL %s", u))
		}
	}

	if len(flagged) == 0 {
		return nil
	}

	return &checkResult{
		Score:  capScore(score, suspiciousLinksCap),
		Reason: fmt.Sprintf("Suspicious links: %s", strings.Join(flagged, "; ")),
	}
}

func isShortenerURL(u string) bool {
	lowered := strings.ToLower(u)
	for _, domain := range shortenerDomains {
		if strings.Contains(lowered, "://"+domain+"/") || strings.HasSuffix(lowered, "://"+domain) {
			return true
		}
	}
	return false
}

func matchedKeywords(text string, keywords []string) []string {
	hits := make([]string, 0)
	for _, keyword := range keywords {
		if strings.Contains(text, keyword) {
			hits = append(hits, keyword)
		}
	}
	return hits
}

func capScore(score, limit float64) float64 {
	if score > limit {
		return limit
	}
	return score
}
