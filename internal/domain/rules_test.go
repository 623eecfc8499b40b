package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTitle(t *testing.T) {
	rules := testRules()

	tests := []struct {
		title string
		kind  Kind
		have  string
		want  string
	}{
		{"[ON] [H] Cash [W] RTX 3080", KindBuy, "Cash", "RTX 3080"},
		{"[ON][H] RTX 3080 [W] PayPal, local cash", KindSell, "RTX 3080", "PayPal, local cash"},
		{"[BC] [H] 3080 [W] 6800 XT", KindTrade, "3080", "6800 XT"},
		{"[QC] [h] cash [w] e-transfer", KindTrade, "cash", "e-transfer"},
		{"[AB] [H] Moneyclip [W] Bitcoin", KindTrade, "Moneyclip", "Bitcoin"},
		{"[ON] [H] GPU [W]", KindTrade, "GPU", ""},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			info := rules.ParseTitle(tt.title)
			assert.Empty(t, info.Errors)
			assert.Equal(t, tt.kind, info.Kind)
			assert.Equal(t, tt.have, info.Have)
			assert.Equal(t, tt.want, info.Want)
		})
	}
}

func TestParseTitleRejectsMalformed(t *testing.T) {
	rules := testRules()

	for _, title := range []string{
		"",
		"Selling my GPU",
		"WTS [ON] [H] GPU [W] Cash",
		"[ON] x [H] GPU [W] Cash",
		"[ON] [Have] GPU [W] Cash",
		"[ON] [H] GPU [Want] Cash",
		"[ON] [ H ] GPU [W] Cash",
		"[ON] [H] GPU [W] Cash [extra]",
		"[ON] [W] Cash [H] GPU",
	} {
		t.Run(title, func(t *testing.T) {
			info := rules.ParseTitle(title)
			assert.Equal(t, KindInvalid, info.Kind)
			assert.Equal(t, []string{msgTitleFormat}, info.Errors)
			assert.Empty(t, info.Have)
			assert.Empty(t, info.Want)
		})
	}
}

func TestValidateBody(t *testing.T) {
	rules := testRules()

	tests := []struct {
		name     string
		kind     Kind
		body     string
		errors   []string
		warnings []string
	}{
		{
			name:     "sell with timestamp and price",
			kind:     KindSell,
			body:     "Timestamp: https://imgur.com/a/xyz\n\n$400 shipped",
			warnings: []string{msgScamDM},
		},
		{
			name:     "sell without timestamp or price",
			kind:     KindSell,
			body:     "GPU, works great",
			errors:   []string{fmt.Sprintf(msgNoTimestamp, "selling")},
			warnings: []string{msgScamDM, msgNoSellPrice},
		},
		{
			name:     "trade without timestamp",
			kind:     KindTrade,
			body:     "Looking to swap",
			errors:   []string{fmt.Sprintf(msgNoTimestamp, "trading")},
			warnings: []string{msgScamDM},
		},
		{
			name:     "buy without price",
			kind:     KindBuy,
			body:     "Looking for a 3080",
			warnings: []string{msgNoBuyPrice},
		},
		{
			name: "buy with price in CAD",
			kind: KindBuy,
			body: "Budget is 500 cad",
		},
		{
			name:     "offsite link",
			kind:     KindSell,
			body:     "See my ad https://www.kijiji.ca/v-123 timestamp imgur.com/x $5",
			errors:   []string{msgOffsite},
			warnings: []string{msgScamDM},
		},
		{
			name:   "invalid kind gets no content checks except offsite",
			kind:   KindInvalid,
			body:   "craigslist.com/listing",
			errors: []string{msgOffsite},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := PostInfo{Kind: tt.kind}
			rules.ValidateBody(tt.body, &info)
			assert.Equal(t, tt.errors, info.Errors)
			assert.Equal(t, tt.warnings, info.Warnings)
		})
	}
}

func TestValidateAuthor(t *testing.T) {
	var young PostInfo
	ValidateAuthor(10*day, 28*day, &young)
	assert.Equal(t, []string{msgAccountAge}, young.Errors)
	assert.Equal(t, "10 days", young.AccountAge)

	var boundary PostInfo
	ValidateAuthor(28*day, 28*day, &boundary)
	assert.Empty(t, boundary.Errors)
	assert.Equal(t, "28 days", boundary.AccountAge)

	var old PostInfo
	ValidateAuthor(2*year, 28*day, &old)
	assert.Empty(t, old.Errors)
	assert.Equal(t, "2 years", old.AccountAge)
}

func TestValidateElectronicPayment(t *testing.T) {
	rules := testRules()

	tests := []struct {
		name    string
		title   string
		body    string
		rep     int
		wants   bool
		blocked bool
	}{
		{"no mention", "[ON] [H] GPU [W] PayPal", "paypal g&s only", 0, false, false},
		{"title mention under threshold", "[ON] [H] GPU [W] EMT", "", 4, true, true},
		{"body mention at threshold", "[ON] [H] GPU [W] Cash", "e-transfer ok", 5, true, false},
		{"substring is not a token", "[ON] [H] GPU [W] Cash", "my temtem cards", 0, false, false},
		{"interac in body", "[ON] [H] GPU [W] Cash", "Interac accepted", 0, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var info PostInfo
			rules.ValidateElectronicPayment(tt.title, tt.body, tt.rep, 5, &info)
			assert.Equal(t, tt.wants, info.WantsElectronicPayment)
			if tt.blocked {
				assert.Equal(t, []string{fmt.Sprintf(msgEMT, 5)}, info.Errors)
			} else {
				assert.Empty(t, info.Errors)
			}
		})
	}
}

func TestHumanizeAge(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    string
	}{
		{-time.Hour, "0 seconds"},
		{0, "0 seconds"},
		{59 * time.Second, "59 seconds"},
		{time.Minute, "1 minutes"},
		{59 * time.Minute, "59 minutes"},
		{time.Hour, "1 hours"},
		{23 * time.Hour, "23 hours"},
		{day, "1 days"},
		{10 * day, "10 days"},
		{29 * day, "29 days"},
		{month, "1 months"},
		{45 * day, "2 months"},
		{364 * day, "12 months"},
		{year, "1 years"},
		{3 * year, "3 years"},
	}
	for _, tt := range tests {
		t.Run(tt.elapsed.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, HumanizeAge(tt.elapsed))
		})
	}
}

func TestNewRulesEmptyCategoryNeverMatches(t *testing.T) {
	p := testPolicy()
	p.Vocabulary.OffsiteListings = nil
	p.Vocabulary.Payment = []string{"  "}

	rules, err := NewRules(p)
	require.NoError(t, err)

	info := rules.ParseTitle("[ON] [H] Cash [W] GPU")
	assert.Equal(t, KindTrade, info.Kind)

	info.Kind = KindBuy
	rules.ValidateBody("kijiji.ca $5", &info)
	assert.Empty(t, info.Errors)
}

func TestNewRulesQuotesTerms(t *testing.T) {
	p := testPolicy()
	p.Vocabulary.Price = []string{"$", "c$"}

	rules, err := NewRules(p)
	require.NoError(t, err)

	info := PostInfo{Kind: KindBuy}
	rules.ValidateBody("nothing priced", &info)
	assert.Equal(t, []string{msgNoBuyPrice}, info.Warnings)
}

func TestTagIDsForKind(t *testing.T) {
	tags := testPolicy().Tags
	assert.Equal(t, "tag-buy", tags.ForKind(KindBuy))
	assert.Equal(t, "tag-sell", tags.ForKind(KindSell))
	assert.Equal(t, "tag-trade", tags.ForKind(KindTrade))
	assert.Empty(t, tags.ForKind(KindInvalid))
}
