package services

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// SuperchatBadge opens every line the bridge posts.
const SuperchatBadge = "⚡⚡ 𝗦𝗨𝗣𝗘𝗥𝗖𝗛𝗔𝗧"

// DefaultMaxLineRunes is the live chat message limit.
const DefaultMaxLineRunes = 200

var upper = cases.Upper(language.Und)

// SanitizeMessage makes free text safe to embed in a chat line: NFC form,
// no control or format characters (bidi overrides, zero-width joiners), and
// every whitespace run collapsed to one space.
func SanitizeMessage(s string) string {
	s = norm.NFC.String(s)
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case r == utf8.RuneError:
			continue
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r), unicode.Is(unicode.Cf, r):
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// minMessageRunes is the part of a line always left for the message.
const minMessageRunes = 4

// FormatSuperchat renders the chat line for a payment. The message is
// sanitized, upper-cased, and cut with an ellipsis so the whole line fits
// maxRunes. The "]: " separator and the start of the message are always
// kept: when the amount leaves no room it is shortened with an ellipsis
// instead, and only a limit below the fixed decoration yields a longer line.
func FormatSuperchat(amount decimal.Decimal, currency, message string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = DefaultMaxLineRunes
	}
	body := upper.String(SanitizeMessage(message))
	amt := []rune(amountText(amount))

	head := formatHead(string(amt), currency)
	budget := maxRunes - utf8.RuneCountInString(head)
	if body != "" && budget < minMessageRunes {
		keep := len(amt) - (minMessageRunes - budget) - 1
		if keep < 1 {
			keep = 1
		}
		if keep < len(amt) {
			head = formatHead(string(amt[:keep])+"…", currency)
			budget = maxRunes - utf8.RuneCountInString(head)
		}
	}
	if budget < minMessageRunes {
		budget = minMessageRunes
	}
	if utf8.RuneCountInString(body) > budget {
		r := []rune(body)
		body = strings.TrimRight(string(r[:budget-1]), " ") + "…"
	}
	return head + body
}

func formatHead(amount, currency string) string {
	return fmt.Sprintf("%s [%s %s]: ", SuperchatBadge, amount, currency)
}

// amountText is the canonical amount, or coefficient and exponent when the
// canonical form would be absurdly long. Submit never gets that far.
func amountText(d decimal.Decimal) string {
	if amountDigits(d) > maxAmountDigits {
		return fmt.Sprintf("%se%d", d.Coefficient().String(), d.Exponent())
	}
	return d.String()
}

// HasSuperchatBadge reports whether a chat line claims to be a superchat.
func HasSuperchatBadge(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(norm.NFC.String(text)), SuperchatBadge)
}
