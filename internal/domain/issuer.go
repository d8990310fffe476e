package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// Ordered longest-first so "INCORPORATED" is stripped before "INC".
var issuerSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bFORMERLY\b.*$`),
	regexp.MustCompile(`(?i)\bHOLDINGS?\b`),
	regexp.MustCompile(`(?i)\bHLDGS?\b`),
	regexp.MustCompile(`(?i)\bGROUP\b`),
	regexp.MustCompile(`(?i)\bINCORPORATED\b`),
	regexp.MustCompile(`(?i)\bCORPORATION\b`),
	regexp.MustCompile(`(?i)\bINC\.?\b`),
	regexp.MustCompile(`(?i)\bCORP\.?\b`),
	regexp.MustCompile(`(?i)\bLTD\.?\b`),
	regexp.MustCompile(`(?i)\bLLC\.?\b`),
	regexp.MustCompile(`(?i)\bL\.?P\.?\b`),
	regexp.MustCompile(`(?i)\bPLC\.?\b`),
	regexp.MustCompile(`(?i)\bN\.?V\.?\b`),
	regexp.MustCompile(`(?i)\bS\.?A\.?\b`),
	regexp.MustCompile(`(?i)\bCO\.?\b`),
	regexp.MustCompile(`(?i)\bTECHNOLOGIES\b`),
	regexp.MustCompile(`(?i)\bTECH\b`),
	regexp.MustCompile(`(?i)\bENTERPRISES?\b`),
	regexp.MustCompile(`(?i)\bINTERNATIONAL\b`),
	regexp.MustCompile(`(?i)\bINTL\b`),
	regexp.MustCompile(`(?i)\bSOLUTIONS?\b`),
	regexp.MustCompile(`(?i)\bSYSTEMS?\b`),
	regexp.MustCompile(`(?i)\bSERVICES?\b`),
	regexp.MustCompile(`(?i)\bCOMMS?\b`),
	regexp.MustCompile(`(?i)\bCOMMUNICATIONS?\b`),
	regexp.MustCompile(`(?i)\bCL [A-Z]$`),
	regexp.MustCompile(`(?i)\bCLASS [A-Z]$`),
	regexp.MustCompile(`(?i)\bSHS\b`),
	regexp.MustCompile(`(?i)\bCOM\b`),
	regexp.MustCompile(`(?i)\bNEW\b`),
	regexp.MustCompile(`[/-]+\s*$`),
}

var multiSpace = regexp.MustCompile(`\s{2,}`)

// ShortIssuerName strips common corporate suffixes from SEC issuer names:
// "MOLINA HEALTHCARE INC" becomes "MOLINA HEALTHCARE", "NVIDIA CORP"
// becomes "NVIDIA". Falls back to the input when stripping would leave
// nothing.
func ShortIssuerName(name string) string {
	result := strings.TrimSpace(name)
	for _, pat := range issuerSuffixes {
		result = strings.TrimSpace(pat.ReplaceAllString(result, ""))
	}
	result = strings.TrimSpace(multiSpace.ReplaceAllString(result, " "))
	result = strings.TrimRight(result, " .,;:-/")
	if result == "" {
		return strings.TrimSpace(name)
	}
	return result
}

// PositionLabel returns the ticker when known, otherwise the shortened
// issuer name, with a [PUT]/[CALL] suffix for option rows.
func PositionLabel(ticker *string, issuerName string, opt OptionType) string {
	base := ""
	if ticker != nil && *ticker != "" {
		base = *ticker
	} else {
		base = ShortIssuerName(issuerName)
	}
	if opt != OptionNone {
		return fmt.Sprintf("%s [%s]", base, opt)
	}
	return base
}
