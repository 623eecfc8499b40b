package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Vocabulary lists the match tokens for each keyword category used by the
// moderation rules.
type Vocabulary struct {
	// Payment marks a title clause as offering or asking for money.
	Payment []string `yaml:"payment"`

	// ElectronicPayment are irreversible payment methods gated by reputation.
	ElectronicPayment []string `yaml:"electronic_payment"`

	// ImageHosts are domains accepted as a timestamp picture.
	ImageHosts []string `yaml:"image_hosts"`

	// Price indicates the body mentions a price.
	Price []string `yaml:"price"`

	// OffsiteListings are classifieds sites that may not be linked.
	OffsiteListings []string `yaml:"offsite_listings"`
}

// TagIDs maps each submission kind to the platform's content tag template.
type TagIDs struct {
	Buy         string `yaml:"buy"`
	Sell        string `yaml:"sell"`
	Trade       string `yaml:"trade"`
	TradeThread string `yaml:"trade_thread"`
}

// ForKind returns the tag template for a kind, or "" when none applies.
func (t TagIDs) ForKind(k Kind) string {
	switch k {
	case KindBuy:
		return t.Buy
	case KindSell:
		return t.Sell
	case KindTrade:
		return t.Trade
	default:
		return ""
	}
}

// Policy is the tunable part of the moderation rules.
type Policy struct {
	Vocabulary Vocabulary `yaml:"vocabulary"`
	Tags       TagIDs     `yaml:"tags"`

	// MinAccountAge is the youngest account allowed to post.
	MinAccountAge time.Duration `yaml:"min_account_age"`

	// EMTRepRequired is the confirmed-trade count needed before a user may
	// ask for electronic payment.
	EMTRepRequired int `yaml:"emt_rep_required"`
}

// Rules holds the compiled matchers for a Policy.
type Rules struct {
	payment    *regexp.Regexp
	electronic *regexp.Regexp
	imageHosts *regexp.Regexp
	price      *regexp.Regexp
	offsite    *regexp.Regexp
}

// NewRules compiles the vocabulary of p. Every category except
// ElectronicPayment matches as a case-insensitive substring; electronic
// payment terms must stand on word boundaries.
func NewRules(p Policy) (*Rules, error) {
	var (
		r   Rules
		err error
	)
	v := p.Vocabulary
	if r.payment, err = compileTerms("payment", v.Payment, false); err != nil {
		return nil, err
	}
	if r.electronic, err = compileTerms("electronic_payment", v.ElectronicPayment, true); err != nil {
		return nil, err
	}
	if r.imageHosts, err = compileTerms("image_hosts", v.ImageHosts, false); err != nil {
		return nil, err
	}
	if r.price, err = compileTerms("price", v.Price, false); err != nil {
		return nil, err
	}
	if r.offsite, err = compileTerms("offsite_listings", v.OffsiteListings, false); err != nil {
		return nil, err
	}
	return &r, nil
}

func compileTerms(category string, terms []string, wordBoundary bool) (*regexp.Regexp, error) {
	escaped := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			escaped = append(escaped, regexp.QuoteMeta(t))
		}
	}
	if len(escaped) == 0 {
		return nil, nil
	}

	expr := `(?i)(?:` + strings.Join(escaped, "|") + `)`
	if wordBoundary {
		expr = `(?i)\b(?:` + strings.Join(escaped, "|") + `)\b`
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("vocabulary %s: compile pattern: %w", category, err)
	}
	return re, nil
}

// matches reports whether re matches s. A nil pattern (empty category)
// never matches.
func matches(re *regexp.Regexp, s string) bool {
	return re != nil && re.MatchString(s)
}
