package intent

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind identifies what a chat message is asking for.
type Kind int

const (
	KindFallback Kind = iota
	KindName
	KindProfile
	KindAirtime
	KindBundleBalance
	KindPurchase
	KindBrowse
)

var kindNames = map[Kind]string{
	KindFallback:      "fallback",
	KindName:          "name",
	KindProfile:       "profile",
	KindAirtime:       "airtime",
	KindBundleBalance: "bundle_balance",
	KindPurchase:      "purchase",
	KindBrowse:        "browse",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Intent is the classification of one normalized message.
type Intent struct {
	Kind Kind
	// OfferID is set for KindPurchase.
	OfferID int64
}

// Rule pairs a predicate with the intent it produces.
type Rule struct {
	Kind  Kind
	Match func(msg string) (Intent, bool)
}

var (
	namePattern     = regexp.MustCompile(`\b(what(\s+is|'s|s)?\s+my\s+name|who\s+am\s+i)\b`)
	profilePattern  = regexp.MustCompile(`^\s*(show my profile|profile|show my info)\s*$`)
	purchasePattern = regexp.MustCompile(`^\s*purchase\s+(\d+)\s*$`)
)

// BrowseKeywords trigger the bundle browse/buy rule.
var BrowseKeywords = []string{"buy", "purchase", "bundle", "subscribe", "get", "need", "want", "which", "show"}

// DefaultRules is the fixed priority order; the first match wins.
var DefaultRules = []Rule{
	{Kind: KindName, Match: matchPattern(KindName, namePattern)},
	{Kind: KindProfile, Match: matchPattern(KindProfile, profilePattern)},
	{Kind: KindAirtime, Match: matchAirtime},
	{Kind: KindBundleBalance, Match: matchBundleBalance},
	{Kind: KindPurchase, Match: matchPurchase},
	{Kind: KindBrowse, Match: matchBrowse},
}

// Router classifies normalized messages against an ordered rule list.
type Router struct {
	rules []Rule
}

// NewRouter creates a router over rules, or DefaultRules when none are given.
func NewRouter(rules ...Rule) *Router {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	return &Router{rules: rules}
}

// Classify returns the intent of the first matching rule, or KindFallback.
func (r *Router) Classify(msg string) Intent {
	for _, rule := range r.rules {
		if in, ok := rule.Match(msg); ok {
			return in
		}
	}
	return Intent{Kind: KindFallback}
}

func matchPattern(kind Kind, re *regexp.Regexp) func(string) (Intent, bool) {
	return func(msg string) (Intent, bool) {
		return Intent{Kind: kind}, re.MatchString(msg)
	}
}

// matchAirtime accepts "airtime", "account balance" and any bare "balance"
// that is not about bundles.
func matchAirtime(msg string) (Intent, bool) {
	if strings.Contains(msg, "bundle") {
		return Intent{}, false
	}
	ok := strings.Contains(msg, "airtime") || strings.Contains(msg, "balance")
	return Intent{Kind: KindAirtime}, ok
}

func matchBundleBalance(msg string) (Intent, bool) {
	ok := strings.Contains(msg, "bundle") && strings.Contains(msg, "balance")
	return Intent{Kind: KindBundleBalance}, ok
}

func matchPurchase(msg string) (Intent, bool) {
	m := purchasePattern.FindStringSubmatch(msg)
	if m == nil {
		return Intent{}, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return Intent{}, false
	}
	return Intent{Kind: KindPurchase, OfferID: id}, true
}

func matchBrowse(msg string) (Intent, bool) {
	for _, kw := range BrowseKeywords {
		if strings.Contains(msg, kw) {
			return Intent{Kind: KindBrowse}, true
		}
	}
	return Intent{}, false
}

// FirstContained returns the first name whose lowercase form is a substring
// of msg, in the order given.
func FirstContained(msg string, names []string) (string, bool) {
	for _, name := range names {
		lower := strings.ToLower(strings.TrimSpace(name))
		if lower != "" && strings.Contains(msg, lower) {
			return name, true
		}
	}
	return "", false
}
