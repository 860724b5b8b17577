package usecase

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CanonicalQuery is the comparable form of a user query or a product name
type CanonicalQuery struct {
	Core       string
	VolumeL    *float64
	WeightKg   *float64
	WantsCombo bool
	WantsZero  bool
}

// HasSize reports whether a volume or weight was extracted
func (q CanonicalQuery) HasSize() bool {
	return q.VolumeL != nil || q.WeightKg != nil
}

// CoreTokens splits Core on whitespace
func (q CanonicalQuery) CoreTokens() []string {
	return strings.Fields(q.Core)
}

// Accepted size ranges; anything outside is treated as a product code, not a size.
const (
	minVolumeL  = 0.02
	maxVolumeL  = 10.0
	minWeightKg = 0.01
	maxWeightKg = 50.0
)

var (
	separatorRegex  = regexp.MustCompile(`[-_/]`)
	whitespaceRegex = regexp.MustCompile(`\s+`)

	ccRegex        = regexp.MustCompile(`\bc\.?\s*c\.?\b`)
	mlWordRegex    = regexp.MustCompile(`\b(?:mililitros|mililitro|mls)\b`)
	literWordRegex = regexp.MustCompile(`\b(?:lts|litros|litro|lt)\b`)
	kgWordRegex    = regexp.MustCompile(`\b(?:kilogramos|kilogramo|kilos|kilo)\b`)
	gramWordRegex  = regexp.MustCompile(`\b(?:gramos|gramo)\b`)

	ccAmountRegex    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:cm3|cc)\b`)
	mlAmountRegex    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*ml\b`)
	literAmountRegex = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*l\b`)
	kgAmountRegex    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*kg\b`)
	gramAmountRegex  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*g\b`)

	volumeTokenRegex = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(ml|l|lt|lts)\b`)
	weightTokenRegex = regexp.MustCompile(`\b(\d+(?:\.\d+)?)\s*(g|kg)\b`)

	bareUnitRegex   = regexp.MustCompile(`\b(?:ml|l|kg|g)\b`)
	bareNumberRegex = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	symbolRegex     = regexp.MustCompile(`[^\p{L}\p{N}\s+]`)

	comboWordRegex = regexp.MustCompile(`\b(?:pack|combo|multipack|promo|oferta)\b`)
	zeroWordRegex  = regexp.MustCompile(`\b(?:zero|light|liviana|diet|liviano)\b`)
	noSugarRegex   = regexp.MustCompile(`\bsin\s*azucar\b|\bno\s*sugar\b`)

	unitCountRegex  = regexp.MustCompile(`\b\d+\s*(?:u|uds|unidades)\b`)
	multiplierRegex = regexp.MustCompile(`\b\d+\s*x\s*\d+\b`)
	timesRegex      = regexp.MustCompile(`\bx\s*\d+\b`)
	takeHomeRegex   = regexp.MustCompile(`\b(?:lleva|llevas|llevate)\s*\d+\b`)
)

// coreStopWords are generic descriptors that never discriminate between products
var coreStopWords = map[string]bool{
	"gaseosa": true, "bebida": true, "jugo": true, "agua": true, "vino": true,
	"cerveza": true, "sabor": true, "original": true,
	"pack": true, "combo": true, "multipack": true, "promo": true, "oferta": true,
	"zero": true, "light": true, "liviana": true, "liviano": true, "diet": true,
	"sin": true, "azucar": true, "sugar": true, "no": true,
	"unidad": true, "unidades": true, "un": true, "u": true, "ud": true, "uds": true,
	"x": true,
}

// Canonicalize turns free text into its comparable form. The same function is applied to
// user queries and to product names.
func Canonicalize(text string) CanonicalQuery {
	raw := normalizeUnits(text)

	q := CanonicalQuery{
		WantsCombo: strings.Contains(raw, "+") || comboWordRegex.MatchString(raw),
		WantsZero:  hasZeroMarker(raw),
		VolumeL:    extractVolumeLiters(raw),
		WeightKg:   extractWeightKg(raw),
	}

	cleaned := stripUnitsEverywhere(raw)
	cleaned = bareNumberRegex.ReplaceAllString(cleaned, " ")
	cleaned = symbolRegex.ReplaceAllString(cleaned, " ")
	cleaned = collapseSpaces(cleaned)

	kept := make([]string, 0, 8)
	for _, tok := range strings.Fields(cleaned) {
		if !coreStopWords[tok] {
			kept = append(kept, tok)
		}
	}

	q.Core = strings.Join(kept, " ")
	if q.Core == "" {
		q.Core = cleaned
	}

	return q
}

// baseNormalize lower-cases, strips diacritics and unifies separators
func baseNormalize(input string) string {
	s := strings.ToLower(input)
	s = stripDiacritics(s)
	s = strings.ReplaceAll(s, ",", ".")
	s = separatorRegex.ReplaceAllString(s, " ")
	return collapseSpaces(s)
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// normalizeUnits rewrites unit spellings to ml, l, g and kg, separated from their amount by one space
func normalizeUnits(text string) string {
	t := baseNormalize(text)

	t = strings.ReplaceAll(t, "cm³", "cm3")
	t = ccRegex.ReplaceAllString(t, "cc")

	t = mlWordRegex.ReplaceAllString(t, "ml")
	t = literWordRegex.ReplaceAllString(t, "l")
	t = kgWordRegex.ReplaceAllString(t, "kg")
	t = gramWordRegex.ReplaceAllString(t, "g")

	t = ccAmountRegex.ReplaceAllString(t, "${1} ml")
	t = mlAmountRegex.ReplaceAllString(t, "${1} ml")
	t = literAmountRegex.ReplaceAllString(t, "${1} l")
	t = kgAmountRegex.ReplaceAllString(t, "${1} kg")
	t = gramAmountRegex.ReplaceAllString(t, "${1} g")

	return collapseSpaces(t)
}

func stripUnitsEverywhere(normalized string) string {
	return collapseSpaces(bareUnitRegex.ReplaceAllString(normalized, " "))
}

func hasZeroMarker(normalized string) bool {
	return zeroWordRegex.MatchString(normalized) || noSugarRegex.MatchString(normalized)
}

// isZeroName reports a sugar-free or diet variant
func isZeroName(name string) bool {
	return hasZeroMarker(normalizeUnits(name))
}

// isComboName reports a multi-pack, bundle or promotion listing
func isComboName(name string) bool {
	t := normalizeUnits(name)
	return strings.Contains(t, "+") ||
		comboWordRegex.MatchString(t) ||
		unitCountRegex.MatchString(t) ||
		multiplierRegex.MatchString(t) ||
		timesRegex.MatchString(t) ||
		takeHomeRegex.MatchString(t)
}

func extractVolumeLiters(normalized string) *float64 {
	m := volumeTokenRegex.FindStringSubmatch(normalized)
	if m == nil {
		return nil
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}

	liters := v
	if m[2] == "ml" {
		liters = v / 1000
	}

	if liters < minVolumeL || liters > maxVolumeL {
		return nil
	}
	return ptr(round3(liters))
}

func extractWeightKg(normalized string) *float64 {
	m := weightTokenRegex.FindStringSubmatch(normalized)
	if m == nil {
		return nil
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return nil
	}

	kg := v
	if m[2] == "g" {
		kg = v / 1000
	}

	if kg < minWeightKg || kg > maxWeightKg {
		return nil
	}
	return ptr(round3(kg))
}

func round3(n float64) float64 {
	return math.Round(n*1000) / 1000
}

func ptr(f float64) *float64 {
	return &f
}
