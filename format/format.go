// Package format holds the display helpers shared by hosts embedding the
// client: notification badges, message timestamps, price strings and text
// previews. It renders plain strings so any UI layer can use it.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Notification kinds as stored by the backend
const (
	KindOrder  = "commande"
	KindReview = "avis"
	KindStock  = "stock"
	KindSystem = "systeme"
)

// Notification kind icons
const (
	IconOrder   = "🛒"
	IconReview  = "⭐"
	IconStock   = "📦"
	IconSystem  = "🔔"
	IconUnknown = "•"
)

// NotificationIcon returns the icon for a notification kind.
func NotificationIcon(kind string) string {
	switch strings.ToLower(kind) {
	case KindOrder:
		return IconOrder
	case KindReview:
		return IconReview
	case KindStock:
		return IconStock
	case KindSystem:
		return IconSystem
	default:
		return IconUnknown
	}
}

// Price renders a backend decimal string ("15000.00") as a display amount
// ("15 000 FCFA"). Unparseable input is returned unchanged.
func Price(amount string) string {
	value, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return amount
	}
	return groupThousands(int64(value)) + " FCFA"
}

// groupThousands inserts non-breaking spaces every three digits.
func groupThousands(n int64) string {
	digits := strconv.FormatInt(n, 10)
	negative := strings.HasPrefix(digits, "-")
	if negative {
		digits = digits[1:]
	}

	var parts []string
	for len(digits) > 3 {
		parts = append([]string{digits[len(digits)-3:]}, parts...)
		digits = digits[:len(digits)-3]
	}
	parts = append([]string{digits}, parts...)

	grouped := strings.Join(parts, " ")
	if negative {
		grouped = "-" + grouped
	}
	return grouped
}

// Truncate shortens text to at most max runes, appending an ellipsis when
// something was cut.
func Truncate(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "…"
}

// MessageTime renders a backend ISO timestamp for display next to a chat
// message: the clock time for today, day and clock time otherwise. Input
// that does not parse is returned unchanged.
func MessageTime(timestamp string, now time.Time) string {
	t, err := parseTimestamp(timestamp)
	if err != nil {
		return timestamp
	}

	t = t.In(now.Location())
	if sameDay(t, now) {
		return t.Format("15:04")
	}
	return t.Format("02/01/2006 15:04")
}

// TimeAgo renders how long ago a backend ISO timestamp was, in the
// application's French wording. Future or unparseable timestamps fall back
// to MessageTime rendering.
func TimeAgo(timestamp string, now time.Time) string {
	t, err := parseTimestamp(timestamp)
	if err != nil {
		return timestamp
	}

	elapsed := now.Sub(t)
	switch {
	case elapsed < 0:
		return MessageTime(timestamp, now)
	case elapsed < time.Minute:
		return "à l'instant"
	case elapsed < time.Hour:
		return fmt.Sprintf("il y a %d min", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		return fmt.Sprintf("il y a %d h", int(elapsed.Hours()))
	default:
		return t.In(now.Location()).Format("02/01/2006")
	}
}

// parseTimestamp accepts the timestamp shapes the backend emits: RFC 3339
// with or without offset or fractional seconds.
func parseTimestamp(timestamp string) (time.Time, error) {
	layouts := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05.999999",
		"2006-01-02T15:04:05",
	}

	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, timestamp)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
