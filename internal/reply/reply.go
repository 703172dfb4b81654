// Package reply renders chat results into the text sent back to users.
// Internal identifiers never appear in any reply.
package reply

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"telecom-bundle-chat/internal/models"
)

// MaxOfferLines caps the offers listed in one reply.
const MaxOfferLines = 10

// NoActiveBundles is the phrase used when a user owns no bundles.
const NoActiveBundles = "no active bundles"

// FormatAmount renders a monetary value as a plain float string that always
// carries a fractional part, e.g. 0.0, 125.5, 99.99.
func FormatAmount(d decimal.Decimal) string {
	s := strconv.FormatFloat(d.InexactFloat64(), 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func Name(user models.User) string {
	return fmt.Sprintf("Your name is %s.", user.Name)
}

func Profile(user models.User) string {
	return fmt.Sprintf("%s, here is your profile.", user.Name)
}

func Airtime(user models.User, balance decimal.Decimal) string {
	return fmt.Sprintf("%s, your airtime balance is: %s", user.Name, FormatAmount(balance))
}

// BundleBalances lists bundles numbered from 1 in the order given.
func BundleBalances(user models.User, bundles []models.PurchasedBundle) string {
	if len(bundles) == 0 {
		return fmt.Sprintf("%s, you have %s.", user.Name, NoActiveBundles)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s, here are your bundles:", user.Name)
	for i, bundle := range bundles {
		fmt.Fprintf(&b, "\n%d. %s / %s — %d remaining — %s — purchased %s",
			i+1,
			bundle.MainCategory,
			bundle.SubCategory,
			bundle.RemainingQuantity,
			bundle.Period,
			bundle.PurchasedAt.Format("2006-01-02"),
		)
	}
	return b.String()
}

// PurchasePending acknowledges a purchase command that is not wired to any
// transaction logic.
func PurchasePending(offerID int64) string {
	return fmt.Sprintf("Purchase of offer %d is not implemented yet.", offerID)
}

func Subcategories(user models.User, main string, subs []string) string {
	return fmt.Sprintf("%s, under '%s' you can choose: %s", user.Name, main, strings.Join(subs, ", "))
}

// Offers lists at most MaxOfferLines offers.
func Offers(user models.User, offers []models.Offer) string {
	if len(offers) == 0 {
		return fmt.Sprintf("%s, no bundles match your request.", user.Name)
	}
	if len(offers) > MaxOfferLines {
		offers = offers[:MaxOfferLines]
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s, here are the bundles that match:", user.Name)
	for _, o := range offers {
		fmt.Fprintf(&b, "\n%s / %s — %d units — %s — %s",
			o.MainCategory, o.SubCategory, o.Quantity, o.Period, FormatAmount(o.Price))
	}
	return b.String()
}

func Greeting(user models.User) string {
	return fmt.Sprintf("Hello %s! I can tell you your name, show your profile, check your airtime balance, "+
		"list your bundle balances, or help you find a bundle (try \"show me weekly data bundles\").", user.Name)
}
