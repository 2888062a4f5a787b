// internal/workers/assistant/generate-operation/templates/extract.go
package templates

import (
	"regexp"
	"strconv"
	"strings"

	"restaurant-assistant/internal/models"
	"restaurant-assistant/internal/workers/assistant/execute-operation/filter"
)

var (
	tableRe       = regexp.MustCompile(`\btable\s*(?:no\.?|number|num|#)?\s*(\d+)\b`)
	phoneRe       = regexp.MustCompile(`(?:\b(?:phone|mobile|contact|ph)\s*(?:no\.?|number|num|is|:)?\s*)?\b(\d{10})\b`)
	capacityRe    = regexp.MustCompile(`\b(?:capacity|seats|seating)\s*(?:of|:|for|is)?\s*(\d+)\b`)
	seatsRe       = regexp.MustCompile(`\b(\d+)\s*(?:seats|seater|people|persons|guests|pax)\b`)
	orderNumberRe = regexp.MustCompile(`\bord-[a-z0-9]{6}\b`)
	customerRe    = regexp.MustCompile(`\b(?:customer(?:\s+name)?|name)\s*(?:is|:)?\s+([a-z][a-z.'-]*(?:\s+[a-z][a-z.'-]*)?)`)
	averageRe     = regexp.MustCompile(`\b(?:average|avg|mean)\b`)
	orderWordRe   = regexp.MustCompile(`\border\b`)
	leadingVerbRe = regexp.MustCompile(`^(?:(?:please|pls|kindly)\s+)?(?:place|get|add|bring|give\s+me|i\s+want|i'd\s+like|we\s+want|we'd\s+like|can\s+i\s+get|can\s+we\s+get|need|want)\b`)
	itemSplitRe   = regexp.MustCompile(`\s*(?:,|&|\band\b|\bplus\b)\s*`)
	leadingQtyRe  = regexp.MustCompile(`^(\d+|a|an|one|two|three|four|five|six|seven|eight|nine|ten)(?:\s*x)?\b\s*(?:nos?\s+|plates?\s+of\s+|pieces?\s+of\s+|portions?\s+of\s+)?(.+)$`)
	trailingQtyRe = regexp.MustCompile(`^(.+?)\s*(?:x|\*)?\s*(\d+)$`)
	spaceRe       = regexp.MustCompile(`\s+`)
)

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
}

// windowPhrases is checked in order so longer phrases win.
var windowPhrases = []struct {
	re     *regexp.Regexp
	window string
}{
	{regexp.MustCompile(`\b(?:last|past)\s+30\s+days\b`), filter.WindowLast30Days},
	{regexp.MustCompile(`\b(?:last|past)\s+(?:7\s+days|seven\s+days)\b`), filter.WindowLast7Days},
	{regexp.MustCompile(`\blast\s+week\b`), filter.WindowLastWeek},
	{regexp.MustCompile(`\bthis\s+week\b`), filter.WindowThisWeek},
	{regexp.MustCompile(`\blast\s+month\b`), filter.WindowLastMonth},
	{regexp.MustCompile(`\bthis\s+month\b`), filter.WindowThisMonth},
	{regexp.MustCompile(`\bthis\s+year\b`), filter.WindowThisYear},
	{regexp.MustCompile(`\byesterday(?:'s)?\b`), filter.WindowYesterday},
	{regexp.MustCompile(`\b(?:today(?:'s)?|tonight)\b`), filter.WindowToday},
}

var tableStatusWords = []struct {
	re     *regexp.Regexp
	status string
}{
	{regexp.MustCompile(`\b(?:available|free|vacant|empty|open)\b`), models.TableStatusAvailable},
	{regexp.MustCompile(`\b(?:occupied|busy|taken|seated)\b`), models.TableStatusOccupied},
	{regexp.MustCompile(`\b(?:reserved|booked)\b`), models.TableStatusReserved},
	{regexp.MustCompile(`\b(?:cleaning|dirty|being\s+cleaned)\b`), models.TableStatusCleaning},
}

var orderStatusWords = []struct {
	re     *regexp.Regexp
	status string
}{
	{regexp.MustCompile(`\bpending\b`), models.OrderStatusPending},
	{regexp.MustCompile(`\b(?:preparing|cooking|in\s+progress)\b`), models.OrderStatusPreparing},
	{regexp.MustCompile(`\bserved\b`), models.OrderStatusServed},
	{regexp.MustCompile(`\b(?:completed|finished|paid)\b`), models.OrderStatusCompleted},
	{regexp.MustCompile(`\b(?:cancelled|canceled)\b`), models.OrderStatusCancelled},
}

// cutWords end an item phrase once at least one item word has been seen.
var cutWords = map[string]bool{
	"for": true, "to": true, "at": true, "on": true, "with": true, "by": true,
	"customer": true, "phone": true, "mobile": true, "please": true, "pls": true,
}

var leadingFillers = map[string]bool{
	"for": true, "of": true, "the": true, "me": true, "us": true, "some": true,
	"please": true, "pls": true, "to": true, "with": true,
}

var nameStopWords = map[string]bool{
	"for": true, "table": true, "phone": true, "mobile": true, "with": true,
	"and": true, "at": true, "number": true, "to": true, "order": true,
}

// Item is one ordered dish as written in the utterance.
type Item struct {
	Phrase   string `json:"phrase"`
	Quantity int    `json:"quantity"`
}

// Slots are the values found in the utterance itself.
type Slots struct {
	TableNumber   string `json:"tableNumber,omitempty"`
	CustomerName  string `json:"customerName,omitempty"`
	CustomerPhone string `json:"customerPhone,omitempty"`
	OrderNumber   string `json:"orderNumber,omitempty"`
	Capacity      int    `json:"capacity,omitempty"`
	TableStatus   string `json:"tableStatus,omitempty"`
	OrderStatus   string `json:"orderStatus,omitempty"`
	Window        string `json:"window,omitempty"`
	Average       bool   `json:"average,omitempty"`
	Items         []Item `json:"items,omitempty"`
}

// Extraction is the parsed utterance plus the context it may be backfilled from.
type Extraction struct {
	Text    string
	Slots   Slots
	Context *models.ConversationContext
}

// Extract applies the fixed patterns to an utterance. It is pure.
func Extract(utterance string, convo *models.ConversationContext) *Extraction {
	text := normalizeText(utterance)
	x := &Extraction{Text: text, Context: convo}
	s := &x.Slots

	if m := tableRe.FindStringSubmatch(text); m != nil {
		s.TableNumber = trimNumber(m[1])
	}
	if m := phoneRe.FindStringSubmatch(text); m != nil {
		s.CustomerPhone = m[1]
	}
	if m := capacityRe.FindStringSubmatch(text); m != nil {
		s.Capacity, _ = strconv.Atoi(m[1])
	} else if m := seatsRe.FindStringSubmatch(text); m != nil {
		s.Capacity, _ = strconv.Atoi(m[1])
	}
	if m := orderNumberRe.FindString(text); m != "" {
		s.OrderNumber = strings.ToUpper(m)
	}
	if m := customerRe.FindStringSubmatch(text); m != nil {
		s.CustomerName = customerName(m[1])
	}
	for _, w := range windowPhrases {
		if w.re.MatchString(text) {
			s.Window = w.window
			break
		}
	}
	for _, w := range tableStatusWords {
		if w.re.MatchString(text) {
			s.TableStatus = w.status
			break
		}
	}
	for _, w := range orderStatusWords {
		if w.re.MatchString(text) {
			s.OrderStatus = w.status
			break
		}
	}
	s.Average = averageRe.MatchString(text)
	s.Items = extractItems(text)

	return x
}

// TableOrContext returns the table named in the utterance, else the last one
// from the conversation.
func (x *Extraction) TableOrContext() string {
	if x.Slots.TableNumber != "" {
		return x.Slots.TableNumber
	}
	if x.Context != nil {
		return x.Context.LastTableNumber
	}
	return ""
}

func (x *Extraction) CustomerNameOrContext() string {
	if x.Slots.CustomerName != "" {
		return x.Slots.CustomerName
	}
	if x.Context != nil {
		return x.Context.LastCustomerName
	}
	return ""
}

func (x *Extraction) CustomerPhoneOrContext() string {
	if x.Slots.CustomerPhone != "" {
		return x.Slots.CustomerPhone
	}
	if x.Context != nil {
		return x.Context.LastCustomerPhone
	}
	return ""
}

func normalizeText(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("’", "'", "‘", "'", "“", "", "”", "", "\"", "").Replace(s)
	s = strings.TrimRight(strings.TrimSpace(s), "?.!")
	return spaceRe.ReplaceAllString(s, " ")
}

func trimNumber(s string) string {
	n, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	return strconv.Itoa(n)
}

func customerName(raw string) string {
	words := strings.Fields(raw)
	out := make([]string, 0, 2)
	for _, w := range words {
		if nameStopWords[w] || len(out) == 2 {
			break
		}
		out = append(out, strings.ToUpper(w[:1])+w[1:])
	}
	return strings.Join(out, " ")
}

// extractItems finds the dish phrase: after the word "order" (or a leading
// verb), with the table, phone and customer phrases removed, cut at the first
// delimiter word, then split into items with optional quantities.
func extractItems(text string) []Item {
	region := text
	if loc := orderWordRe.FindStringIndex(region); loc != nil {
		region = region[loc[1]:]
	} else if loc := leadingVerbRe.FindStringIndex(region); loc != nil {
		region = region[loc[1]:]
	} else {
		return nil
	}

	region = tableRe.ReplaceAllString(region, " | ")
	region = phoneRe.ReplaceAllString(region, " | ")
	region = customerRe.ReplaceAllString(region, " | ")
	region = orderNumberRe.ReplaceAllString(region, " | ")

	words := strings.Fields(region)
	for len(words) > 0 && (leadingFillers[words[0]] || words[0] == "|") {
		words = words[1:]
	}
	if len(words) == 0 {
		return nil
	}

	kept := make([]string, 0, len(words))
	for _, w := range words {
		if w == "|" || cutWords[w] {
			break
		}
		kept = append(kept, w)
	}

	var items []Item
	for _, part := range itemSplitRe.Split(strings.Join(kept, " "), -1) {
		if item, ok := parseItem(part); ok {
			items = append(items, item)
		}
	}
	return items
}

func parseItem(part string) (Item, bool) {
	part = strings.TrimSpace(part)
	qty := 1

	if m := leadingQtyRe.FindStringSubmatch(part); m != nil {
		qty = quantity(m[1])
		part = m[2]
	} else if m := trailingQtyRe.FindStringSubmatch(part); m != nil {
		part = m[1]
		qty = quantity(m[2])
	}

	words := strings.Fields(part)
	for len(words) > 0 && leadingFillers[words[0]] {
		words = words[1:]
	}
	phrase := strings.Join(words, " ")
	if phrase == "" {
		return Item{}, false
	}
	if qty < 1 {
		qty = 1
	}
	return Item{Phrase: phrase, Quantity: qty}, true
}

func quantity(s string) int {
	if n, ok := numberWords[s]; ok {
		return n
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return n
}
