package domain

import (
	"fmt"
	"time"
)

const (
	msgNoTimestamp = "Your submission appears to be a %s thread that lacks a timestamp picture. For best results please use imgur."
	msgScamDM      = "Any user who DMs you without first commenting on your post may be a scammer trying to evade our ban list. Please let the mod team know if this happens."
	msgNoBuyPrice  = "The bot wasn't able to identify a buying price in your post. We require buying posts to include the approximate price they're hoping to pay. If your post doesn't include a price please edit one in. If you've already included a price - great, ignore this warning."
	msgNoSellPrice = "The bot wasn't able to identify a selling price in your post. We require selling posts to include a price. If your post doesn't include a price please edit one in. If you've already included a price - great, ignore this warning."
	msgOffsite     = "Your submission appears to contain a link to an offsite ad."
	msgAccountAge  = "We require posting accounts to be at least 30 days old."
	msgEMT         = "EMT, E-Transfer, Bitcoin and other electronic payment methods that do not have anti-scam prevention are banned for users with less than %d confirmed trades. Instead, we require that you use *PayPal Goods and Services* for non-local swaps. If your post says that you are only looking for EMT for local swaps please message the mods and ask us to manually approve your post."
)

// ValidateBody appends the body content violations and warnings for info.
// All checks run; none short-circuits another.
func (r *Rules) ValidateBody(body string, info *PostInfo) {
	if info.Kind == KindSell || info.Kind == KindTrade {
		if !matches(r.imageHosts, body) {
			noun := "selling"
			if info.Kind == KindTrade {
				noun = "trading"
			}
			info.Errors = append(info.Errors, fmt.Sprintf(msgNoTimestamp, noun))
		}
		info.Warnings = append(info.Warnings, msgScamDM)
	}

	if !matches(r.price, body) {
		switch info.Kind {
		case KindBuy:
			info.Warnings = append(info.Warnings, msgNoBuyPrice)
		case KindSell:
			info.Warnings = append(info.Warnings, msgNoSellPrice)
		}
	}

	if matches(r.offsite, body) {
		info.Errors = append(info.Errors, msgOffsite)
	}
}

// ValidateAuthor records the author's humanized account age on info and
// rejects accounts younger than minAge.
func ValidateAuthor(age, minAge time.Duration, info *PostInfo) {
	if age < minAge {
		info.Errors = append(info.Errors, msgAccountAge)
	}
	info.AccountAge = HumanizeAge(age)
}

// ValidateElectronicPayment flags submissions that mention an irreversible
// payment method and rejects them when the author's reputation is below
// required.
func (r *Rules) ValidateElectronicPayment(title, body string, reputation, required int, info *PostInfo) {
	if !matches(r.electronic, title) && !matches(r.electronic, body) {
		return
	}
	info.WantsElectronicPayment = true
	if reputation < required {
		info.Errors = append(info.Errors, fmt.Sprintf(msgEMT, required))
	}
}
