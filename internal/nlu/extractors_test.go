package nlu

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"¿Tenés aceite   Castrol 5W-40?", "tenes aceite castrol 5w-40"},
		{"BUJÍAS   NGK!!!", "bujias ngk"},
		{"  reseñas\tdel\nproducto ", "resenas del producto"},
		{"mann-filter", "mann-filter"},
		{"$10.000", "10 000"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, in := range []string{"Pastillas de freno ¿hay?", "Filtro MANN-FILTER w712/75", "órdenes de ana@mail.com"} {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), in)
	}
}

func TestExtractGrades(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"mixed formats", "5W-40, 0w20", []string{"5w40", "0w20"}},
		{"duplicates collapse", "5w40 5W40 5 w 40 5w-40", []string{"5w40"}},
		{"two digit prefix", "10W-30 y 15w40", []string{"10w30", "15w40"}},
		{"no grade", "filtro de aceite", nil},
		{"number too long", "150w400", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractGrades(tt.in))
		})
	}
}

func TestGradeVariants(t *testing.T) {
	assert.ElementsMatch(t,
		[]string{"5w40", "5w-40", "5 w 40", "5 w-40", "5w 40"},
		GradeVariants("5w40"))
	assert.Equal(t, []string{"abc"}, GradeVariants("abc"))
}

func TestTokenize(t *testing.T) {
	lex := DefaultLexicon()

	tests := []struct {
		name    string
		in      string
		generic []string
		grades  []string
	}{
		{
			name:    "synonym key expands family",
			in:      "¿Tenés aceite Castrol 5W-40 en stock?",
			generic: []string{"aceite", "lubricante", "oil", "castrol"},
			grades:  []string{"5w40"},
		},
		{
			name:    "family member expands symmetrically",
			in:      "busco bujías NGK",
			generic: []string{"bujias", "bujia", "spark", "sparkplug", "ngk"},
		},
		{
			name:    "stop words and short tokens dropped",
			in:      "hay un filtro y de la",
			generic: []string{"filtro", "filtros", "filter"},
		},
		{
			name:    "generic cap keeps grades",
			in:      "filtro aceite bujia pastilla 5w40 10w30 15w40 20w50",
			generic: []string{"filtro", "filtros", "filter", "aceite", "lubricante", "oil", "bujia", "bujias"},
			grades:  []string{"5w40", "10w30", "15w40"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := lex.Tokenize(Normalize(tt.in))
			assert.Equal(t, tt.generic, got.Generic)
			assert.Equal(t, tt.grades, got.Grades)
			assert.LessOrEqual(t, len(got.Generic), MaxTokens)
			assert.LessOrEqual(t, len(got.Grades), MaxGrades)
		})
	}
}

func TestTokenize_RoundTrip(t *testing.T) {
	lex := DefaultLexicon()
	messages := []string{
		"¿Tenés aceite Castrol 5W-40 en stock?",
		"filtro aceite bujia pastilla frenos",
		"pastillas de freno bosch para gol",
		"lubricante 10w-30 sintetico liqui moly",
		"oil filter mann-filter w712",
		"hola",
	}

	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			first := lex.Tokenize(Normalize(msg))
			second := lex.Tokenize(Normalize(strings.Join(first.All(), " ")))
			assert.Equal(t, first, second)
		})
	}
}

func TestDetectBrand(t *testing.T) {
	lex := DefaultLexicon()

	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"aceite castrol 5w40", "castrol", true},
		{"aceite liqui moly 10w40", "liqui", true},
		{"filtro mann-filter w712", "mann", true},
		{"shell o castrol", "shell", true},
		{"un delfin de peluche", "", false},
		{"filtro de aire", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := lex.DetectBrand(Normalize(tt.in))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePriceRange(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	tests := []struct {
		name string
		in   string
		want PriceRange
	}{
		{"between", "entre 20 y 40", PriceRange{Min: f(20), Max: f(40)}},
		{"between reversed", "entre 40 y 20", PriceRange{Min: f(20), Max: f(40)}},
		{"upper", "hasta 30", PriceRange{Max: f(30)}},
		{"lower", "mayor a 100", PriceRange{Min: f(100)}},
		{"symbol upper", "aceite <= 50", PriceRange{Max: f(50)}},
		{"symbol lower", "filtro > 15", PriceRange{Min: f(15)}},
		{"thousands dot", "aceite hasta $10.000", PriceRange{Max: f(10000)}},
		{"thousands comma", "entre 1,500 y 2,500", PriceRange{Min: f(1500), Max: f(2500)}},
		{"millions", "menos de 1.000.000", PriceRange{Max: f(1000000)}},
		{"decimal kept", "hasta 20.50", PriceRange{Max: f(20.5)}},
		{"accented cue", "máximo 80", PriceRange{Max: f(80)}},
		{"upper wins over lower", "mayor a 20 hasta 50", PriceRange{Max: f(20)}},
		{"grade digits ignored", "aceite 5w40 hasta 30", PriceRange{Max: f(30)}},
		{"no cue", "filtro 100", PriceRange{}},
		{"cue without number", "lo mas barato hasta ahora", PriceRange{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePriceRange(tt.in))
		})
	}
}

func TestLoadLexicon_Override(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexicon.yaml")
	body := `
synonyms:
  - key: Bujía
    members: [vela, velas]
brands:
  - name: Petronas
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	lex, err := LoadLexicon(path)
	require.NoError(t, err)

	got := lex.Tokenize(Normalize("vela petronas"))
	assert.Equal(t, []string{"vela", "bujia", "velas", "petronas"}, got.Generic)

	brand, ok := lex.DetectBrand("vela petronas")
	assert.True(t, ok)
	assert.Equal(t, "petronas", brand)

	// stop words were not overridden
	assert.True(t, lex.IsStopWord("tenes"))
	_, ok = lex.DetectBrand("castrol")
	assert.False(t, ok)
}

func TestLoadLexicon_Errors(t *testing.T) {
	_, err := LoadLexicon(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("synonyms: [::"), 0o600))
	_, err = LoadLexicon(path)
	assert.Error(t, err)
}
