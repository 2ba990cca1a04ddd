package nlu

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	orderKeywordPattern    = regexp.MustCompile(`\b(?:orden|ordenes|order|pedido|pedidos|estado|compra)\b`)
	looseUUIDPattern       = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F-]{13,}$`)
	alnumPattern           = regexp.MustCompile(`^[0-9A-Za-z]{10,}$`)
	idSplitPattern         = regexp.MustCompile(`[^0-9A-Za-z-]+`)
	myOrdersPattern        = regexp.MustCompile(`\b(?:mis|ultimas|ultimos)\b.*\b(?:compras|ordenes|pedidos)\b`)
	smallNumberPattern     = regexp.MustCompile(`\b(\d{1,2})\b`)
	emailPattern           = regexp.MustCompile(`[^\s@]+@[^\s@]+\.[^\s@]+`)
	ordersOfPattern        = regexp.MustCompile(`\b(?:ordenes|pedidos|compras|orden|pedido)\b.*\b(?:de|por|del)\b.*@`)
	ratingKeywordPattern   = regexp.MustCompile(`\b(?:rating|ratings|promedio|calificacion|calificaciones|resena|resenas|review|reviews|puntaje|opiniones)\b`)
	prefixedProductPattern = regexp.MustCompile(`(?i)\bprod(?:ucto)?[\s:#-]*([0-9a-z][0-9a-z-]{9,})`)
	productIDPattern       = regexp.MustCompile(`^[0-9A-Za-z-]{10,}$`)
	commercePattern        = regexp.MustCompile(`\b(?:tenes|tienes|tenemos|hay|buscar|busco|busca|precio|precios|stock|conseguis|vendes|venden|producto|productos|filtro|filtros|aceite|aceites|lubricante|lubricantes|bujia|bujias|pastilla|pastillas|cuanto|cuesta|comprar)\b`)
	inStockPattern         = regexp.MustCompile(`\b(?:en stock|con stock|hay stock|disponible|disponibles)\b`)
	yearPattern            = regexp.MustCompile(`\b(?:ano|modelo|del)\s+((?:19[5-9]|20[0-4])\d)\b`)
)

// Classifier maps messages to intents with an ordered rule list. The first
// rule that matches decides; later rules are never consulted.
type Classifier struct {
	lexicon *Lexicon
}

// NewClassifier creates a classifier over the given vocabulary. A nil lexicon
// selects DefaultLexicon.
func NewClassifier(lex *Lexicon) *Classifier {
	if lex == nil {
		lex = DefaultLexicon()
	}
	return &Classifier{lexicon: lex}
}

// Lexicon returns the vocabulary in use.
func (c *Classifier) Lexicon() *Lexicon {
	return c.lexicon
}

// message carries the three views of the input the rules need.
type message struct {
	raw        string
	folded     string // lowercase, no accents, punctuation kept
	normalized string
}

type rule struct {
	kind  Kind
	match func(c *Classifier, m *message) (Intent, bool)
}

// rules is the priority order. An order keyword next to an id beats
// everything; product search sits just above the smalltalk fallback.
var rules = []rule{
	{KindOrderByID, (*Classifier).matchOrderByID},
	{KindOrderMine, (*Classifier).matchOrderMine},
	{KindOrderByEmail, (*Classifier).matchOrderByEmail},
	{KindProductRating, (*Classifier).matchProductRating},
	{KindProductSearch, (*Classifier).matchProductSearch},
}

// Classify returns exactly one intent for raw. It never fails: text that
// matches no rule is Smalltalk.
func (c *Classifier) Classify(raw string) Intent {
	m := &message{
		raw:        raw,
		folded:     fold(raw),
		normalized: Normalize(raw),
	}
	for _, r := range rules {
		if intent, ok := r.match(c, m); ok {
			return intent
		}
	}
	return Smalltalk{}
}

func (c *Classifier) matchOrderByID(m *message) (Intent, bool) {
	if !orderKeywordPattern.MatchString(m.normalized) {
		return nil, false
	}
	id, ok := c.findOrderID(m.raw)
	if !ok {
		return nil, false
	}
	return OrderByID{ID: id}, true
}

func (c *Classifier) matchOrderMine(m *message) (Intent, bool) {
	if !myOrdersPattern.MatchString(m.normalized) {
		return nil, false
	}
	intent := OrderMine{}
	if n := smallNumberPattern.FindStringSubmatch(m.normalized); n != nil {
		if v, err := strconv.Atoi(n[1]); err == nil && v > 0 {
			intent.Limit = v
		}
	}
	return intent, true
}

func (c *Classifier) matchOrderByEmail(m *message) (Intent, bool) {
	email := emailPattern.FindString(m.raw)
	if email == "" || !ordersOfPattern.MatchString(m.folded) {
		return nil, false
	}
	email = strings.Trim(email, `.,;:!?()<>"'`)
	return OrderByEmail{Email: strings.ToLower(email)}, true
}

func (c *Classifier) matchProductRating(m *message) (Intent, bool) {
	if !ratingKeywordPattern.MatchString(m.normalized) {
		return nil, false
	}
	id, ok := findProductID(m.raw)
	if !ok {
		return nil, false
	}
	return ProductRating{ProductID: id}, true
}

func (c *Classifier) matchProductSearch(m *message) (Intent, bool) {
	_, hasBrand := c.lexicon.DetectBrand(m.normalized)
	if !commercePattern.MatchString(m.normalized) && !HasGrade(m.normalized) && !hasBrand {
		return nil, false
	}
	return ProductSearch{Criteria: c.Criteria(m.raw)}, true
}

// Criteria runs every extractor over raw and assembles search criteria. It
// is exported so callers can build criteria for text they already know is a
// search (the CLI does this).
func (c *Classifier) Criteria(raw string) SearchCriteria {
	normalized := Normalize(raw)

	text := normalized
	year := 0
	if y := yearPattern.FindStringSubmatch(normalized); y != nil {
		year, _ = strconv.Atoi(y[1])
		// the cue word goes too, or "modelo" would become a required term
		text = strings.Replace(text, y[0], " ", 1)
	}

	tokens := c.lexicon.Tokenize(text)
	criteria := SearchCriteria{
		Tokens: tokens.Generic,
		Grades: tokens.Grades,
		Year:   year,
	}

	if brand, ok := c.lexicon.DetectBrand(normalized); ok {
		criteria.Brand = brand
	}

	if inStockPattern.MatchString(normalized) {
		inStock := true
		criteria.InStock = &inStock
	}

	if price := ParsePriceRange(raw); !price.IsZero() {
		criteria.PriceMin = price.Min
		criteria.PriceMax = price.Max
		// the figures were price bounds, not catalog text
		criteria.Tokens = withoutNumbers(criteria.Tokens)
	}

	return criteria
}

// findOrderID returns the first token of raw that looks like an order id:
// a UUID, or an alphanumeric run of at least ten characters. Email addresses
// and vocabulary words ("disponibles") are skipped.
func (c *Classifier) findOrderID(raw string) (string, bool) {
	text := emailPattern.ReplaceAllString(raw, " ")
	for _, tok := range idSplitPattern.Split(text, -1) {
		if len(tok) == 36 {
			if _, err := uuid.Parse(tok); err == nil {
				return tok, true
			}
		}
		if looseUUIDPattern.MatchString(tok) {
			return tok, true
		}
		tok = strings.Trim(tok, "-")
		if alnumPattern.MatchString(tok) && !c.lexicon.Known(Normalize(tok)) {
			return tok, true
		}
	}
	return "", false
}

// findProductID prefers an id introduced by "prod"/"producto" and otherwise
// takes the first long id-shaped token.
func findProductID(raw string) (string, bool) {
	text := emailPattern.ReplaceAllString(raw, " ")
	for _, m := range prefixedProductPattern.FindAllStringSubmatch(text, -1) {
		if id := strings.Trim(m[1], "-"); len(id) >= 10 && containsDigit(id) {
			return id, true
		}
	}
	for _, tok := range idSplitPattern.Split(text, -1) {
		tok = strings.Trim(tok, "-")
		if productIDPattern.MatchString(tok) && containsDigit(tok) {
			return tok, true
		}
	}
	return "", false
}

func containsDigit(s string) bool {
	return strings.IndexAny(s, "0123456789") >= 0
}
