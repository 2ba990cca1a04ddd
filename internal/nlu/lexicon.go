package nlu

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SynonymFamily groups interchangeable search terms under a canonical key.
type SynonymFamily struct {
	Key     string   `yaml:"key"`
	Members []string `yaml:"members"`
}

// BrandAlias maps a vocabulary entry to the form stored in the catalog.
type BrandAlias struct {
	Name      string `yaml:"name"`
	Canonical string `yaml:"canonical,omitempty"`
}

// Lexicon is the vocabulary the extractors work from. It is data, not code:
// a deployment can replace any list through a YAML file.
type Lexicon struct {
	StopWords []string        `yaml:"stop_words"`
	Synonyms  []SynonymFamily `yaml:"synonyms"`
	Brands    []BrandAlias    `yaml:"brands"`

	stop     map[string]struct{}
	families map[string]int
}

// DefaultLexicon returns the built-in Spanish commerce vocabulary.
func DefaultLexicon() *Lexicon {
	lex := &Lexicon{
		StopWords: []string{
			// verbs and question words
			"tenes", "tienes", "tenemos", "hay", "buscar", "busca", "busco",
			"conseguis", "vendes", "venden", "tengo", "anda", "quiero",
			"necesito", "comprar", "cuanto", "cuesta", "sale", "mostrar",
			// commerce nouns that never appear in catalog text
			"precio", "precios", "stock", "producto", "productos",
			"disponible", "disponibles", "disponibilidad", "pesos",
			"informacion", "consulta", "consultar",
			// articles and prepositions
			"en", "de", "la", "el", "los", "las", "un", "una", "unos", "unas",
			"por", "para", "del", "al", "me", "con", "sin", "que", "algun", "alguna",
			"mis", "ultimas", "ultimos",
			// price cues
			"hasta", "entre", "desde", "menor", "mayor", "igual", "mas",
			"menos", "maximo", "minimo",
			// greetings
			"hola", "buenas", "buenos", "buen", "dia", "dias", "tardes",
			"noches", "gracias", "favor",
		},
		Synonyms: []SynonymFamily{
			{Key: "aceite", Members: []string{"lubricante", "oil"}},
			{Key: "filtro", Members: []string{"filtros", "filter"}},
			{Key: "bujia", Members: []string{"bujias", "spark", "sparkplug"}},
			{Key: "pastilla", Members: []string{"pastillas", "freno", "frenos"}},
		},
		Brands: []BrandAlias{
			{Name: "shell"},
			{Name: "total"},
			{Name: "castrol"},
			{Name: "ypf"},
			{Name: "bosch"},
			{Name: "ngk"},
			{Name: "mann"},
			{Name: "mann-filter", Canonical: "mann"},
			{Name: "fram"},
			{Name: "wix"},
			{Name: "mobil"},
			{Name: "elf"},
			{Name: "liqui"},
			{Name: "liqui moly", Canonical: "liqui"},
			{Name: "motul"},
			{Name: "acdelco"},
			{Name: "champion"},
			{Name: "valvoline"},
		},
	}
	lex.compile()
	return lex
}

// LoadLexicon reads a YAML override file. Lists present in the file replace
// the defaults; lists left out keep the built-in values.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}

	var override Lexicon
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}

	lex := DefaultLexicon()
	if len(override.StopWords) > 0 {
		lex.StopWords = override.StopWords
	}
	if len(override.Synonyms) > 0 {
		lex.Synonyms = override.Synonyms
	}
	if len(override.Brands) > 0 {
		lex.Brands = override.Brands
	}
	lex.compile()
	return lex, nil
}

// compile builds the lookup tables. Entries are normalized so that a file
// written with accents ("bujía") still matches folded input.
func (l *Lexicon) compile() {
	l.stop = make(map[string]struct{}, len(l.StopWords))
	for _, w := range l.StopWords {
		l.stop[Normalize(w)] = struct{}{}
	}

	l.families = make(map[string]int)
	for i := range l.Synonyms {
		fam := &l.Synonyms[i]
		fam.Key = Normalize(fam.Key)
		for j, m := range fam.Members {
			fam.Members[j] = Normalize(m)
		}
		if _, ok := l.families[fam.Key]; !ok {
			l.families[fam.Key] = i
		}
		for _, m := range fam.Members {
			if _, ok := l.families[m]; !ok {
				l.families[m] = i
			}
		}
	}

	for i := range l.Brands {
		l.Brands[i].Name = Normalize(l.Brands[i].Name)
		l.Brands[i].Canonical = Normalize(l.Brands[i].Canonical)
	}
}

// IsStopWord reports whether a normalized token carries no search meaning.
func (l *Lexicon) IsStopWord(token string) bool {
	_, ok := l.stop[token]
	return ok
}

// Known reports whether a normalized word is part of the vocabulary: a stop
// word, a synonym family member or a brand.
func (l *Lexicon) Known(word string) bool {
	if l.IsStopWord(word) {
		return true
	}
	if _, ok := l.families[word]; ok {
		return true
	}
	for _, b := range l.Brands {
		if b.Name == word {
			return true
		}
	}
	return false
}

// expand returns the token followed by its synonym family, if any.
func (l *Lexicon) expand(token string) []string {
	idx, ok := l.families[token]
	if !ok {
		return []string{token}
	}
	fam := l.Synonyms[idx]
	out := make([]string, 0, len(fam.Members)+2)
	out = append(out, token, fam.Key)
	out = append(out, fam.Members...)
	return out
}
