package usecase

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/pricelens/backend/internal/domain"
)

// Scoring weights. Size carries more weight once the query names one.
const (
	weightCoreNoSize   = 0.85
	weightSizeNoSize   = 0.15
	weightCoreWithSize = 0.65
	weightSizeWithSize = 0.35
)

// Penalties and gates
const (
	minCoreWithSize    = 0.45 // text similarity floor when a size is given
	coreGatePenalty    = -999.0
	missingSizePenalty = 0.55
	plusComboPenalty   = 0.55
	wordComboPenalty   = 0.45
	zeroVariantPenalty = 0.6
)

// Acceptance thresholds and output bounds
const (
	defaultMinScore        = 0.25
	defaultGenericMinScore = -0.2
	defaultGenericLimit    = 40
	genericMinTokenLength  = 4
)

// MatchConfig holds configuration for the matching service
type MatchConfig struct {
	MinScore        float64
	GenericMinScore float64
	GenericLimit    int
	Logger          zerolog.Logger
}

// MatchingService re-ranks raw retailer candidates against a free-text query
type MatchingService struct {
	minScore        float64
	genericMinScore float64
	genericLimit    int
	logger          zerolog.Logger
}

// NewMatchingService creates a new matching service with the given configuration
func NewMatchingService(config MatchConfig) *MatchingService {
	minScore := config.MinScore
	if minScore == 0 {
		minScore = defaultMinScore
	}

	genericMinScore := config.GenericMinScore
	if genericMinScore == 0 {
		genericMinScore = defaultGenericMinScore
	}

	genericLimit := config.GenericLimit
	if genericLimit <= 0 {
		genericLimit = defaultGenericLimit
	}

	return &MatchingService{
		minScore:        minScore,
		genericMinScore: genericMinScore,
		genericLimit:    genericLimit,
		logger:          config.Logger.With().Str("component", "matcher").Logger(),
	}
}

type candidate struct {
	product domain.Product
	canon   CanonicalQuery
	score   float64
}

// Match filters and orders candidates by relevance to query. The result never holds more
// than the effective limit and only contains products taken from candidates.
func (s *MatchingService) Match(query string, candidates []domain.Product, limit int) []domain.Product {
	if len(candidates) == 0 {
		return []domain.Product{}
	}

	q := Canonicalize(query)

	pool := make([]*candidate, 0, len(candidates))
	for _, p := range candidates {
		if !q.WantsCombo && isComboName(p.Name) {
			continue
		}
		if !q.WantsZero && isZeroName(p.Name) {
			continue
		}
		pool = append(pool, &candidate{product: p, canon: Canonicalize(p.Name)})
	}

	pool = applyTokenGate(pool, q)
	pool = applySizeBand(pool, q)

	generic := isGenericProfile(q)
	ranked := s.rank(pool, q, generic)

	effectiveLimit := limit
	if generic && effectiveLimit < s.genericLimit {
		effectiveLimit = s.genericLimit
	}
	if effectiveLimit < 0 {
		effectiveLimit = 0
	}
	if len(ranked) > effectiveLimit {
		ranked = ranked[:effectiveLimit]
	}

	out := make([]domain.Product, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, c.product)
	}

	s.logger.Debug().
		Str("query", query).
		Str("core", q.Core).
		Bool("generic", generic).
		Int("candidates", len(candidates)).
		Int("returned", len(out)).
		Msg("matched candidates")

	return out
}

// isGenericProfile is a single long keyword with no size: fuzzy-only matching, relaxed acceptance
func isGenericProfile(q CanonicalQuery) bool {
	tokens := q.CoreTokens()
	return len(tokens) == 1 && len([]rune(tokens[0])) >= genericMinTokenLength && !q.HasSize()
}

// applyTokenGate requires every core token of a multi-token query as a whole word in the name
func applyTokenGate(pool []*candidate, q CanonicalQuery) []*candidate {
	tokens := q.CoreTokens()
	if len(tokens) < 2 {
		return pool
	}

	patterns := make([]*regexp.Regexp, 0, len(tokens))
	for _, t := range tokens {
		patterns = append(patterns, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(baseNormalize(t))+`\b`))
	}

	kept := make([]*candidate, 0, len(pool))
	for _, c := range pool {
		name := baseNormalize(c.product.Name)
		ok := true
		for _, re := range patterns {
			if !re.MatchString(name) {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, c)
		}
	}
	return kept
}

// applySizeBand keeps candidates whose size is within tolerance of the query size. It is a
// no-op when no candidate carries that dimension, and falls back to all sized candidates
// when none are in band.
func applySizeBand(pool []*candidate, q CanonicalQuery) []*candidate {
	var (
		target float64
		tol    float64
		sizeOf func(CanonicalQuery) *float64
	)

	switch {
	case q.VolumeL != nil:
		target = *q.VolumeL
		tol = volumeToleranceLiters(target)
		sizeOf = func(c CanonicalQuery) *float64 { return c.VolumeL }
	case q.WeightKg != nil:
		target = *q.WeightKg
		tol = weightToleranceKg(target)
		sizeOf = func(c CanonicalQuery) *float64 { return c.WeightKg }
	default:
		return pool
	}

	var sized, inBand []*candidate
	for _, c := range pool {
		v := sizeOf(c.canon)
		if v == nil {
			continue
		}
		sized = append(sized, c)
		if *v >= target-tol && *v <= target+tol {
			inBand = append(inBand, c)
		}
	}

	if len(sized) == 0 {
		return pool
	}
	if len(inBand) > 0 {
		return inBand
	}
	return sized
}

func volumeToleranceLiters(qL float64) float64 {
	switch {
	case qL < 0.2:
		return math.Max(0.01, qL*0.12)
	case qL < 1:
		return math.Max(0.05, qL*0.12)
	case qL < 2:
		return math.Max(0.12, qL*0.1)
	default:
		return math.Max(0.25, qL*0.12)
	}
}

func weightToleranceKg(qKg float64) float64 {
	switch {
	case qKg < 0.5:
		return math.Max(0.02, qKg*0.1)
	case qKg < 2:
		return math.Max(0.05, qKg*0.07)
	default:
		return math.Max(0.08, qKg*0.06)
	}
}

// volumeClosenessScore is a step function of |pL - qL|; the bands are tuned, not derived
func volumeClosenessScore(qL, pL *float64) float64 {
	if qL == nil || pL == nil {
		return 0
	}

	diff := math.Abs(*pL - *qL)

	if *qL < 1 {
		switch {
		case diff <= 0.015:
			return 0.55
		case diff <= 0.03:
			return 0.4
		case diff <= 0.06:
			return 0.15
		case diff <= 0.12:
			return -0.2
		default:
			return -0.7
		}
	}

	switch {
	case diff <= 0.05:
		return 0.45
	case diff <= 0.1:
		return 0.3
	case diff <= 0.2:
		return 0.1
	case diff <= 0.35:
		return -0.2
	case diff <= 0.5:
		return -0.45
	default:
		return -0.7
	}
}

func weightClosenessScore(qKg, pKg *float64) float64 {
	if qKg == nil || pKg == nil {
		return 0
	}

	diff := math.Abs(*pKg - *qKg)

	if *qKg < 0.5 {
		switch {
		case diff <= 0.01:
			return 0.55
		case diff <= 0.02:
			return 0.4
		case diff <= 0.05:
			return 0.15
		case diff <= 0.1:
			return -0.2
		default:
			return -0.7
		}
	}

	switch {
	case diff <= 0.05:
		return 0.45
	case diff <= 0.1:
		return 0.3
	case diff <= 0.25:
		return 0.1
	case diff <= 0.4:
		return -0.2
	case diff <= 0.6:
		return -0.45
	default:
		return -0.7
	}
}

func comboPenalty(q CanonicalQuery, name string) float64 {
	if q.WantsCombo {
		return 0
	}

	t := normalizeUnits(name)
	penalty := 0.0
	if strings.Contains(t, "+") {
		penalty += plusComboPenalty
	}
	if comboWordRegex.MatchString(t) || multiplierRegex.MatchString(t) || timesRegex.MatchString(t) {
		penalty += wordComboPenalty
	}
	return penalty
}

func zeroPenalty(q CanonicalQuery, name string) float64 {
	if q.WantsZero || !isZeroName(name) {
		return 0
	}
	return zeroVariantPenalty
}

// rank scores the pool and sorts it best first
func (s *MatchingService) rank(pool []*candidate, q CanonicalQuery, generic bool) []*candidate {
	hasVolume := q.VolumeL != nil
	hasWeight := q.WeightKg != nil
	hasSize := hasVolume || hasWeight

	wCore, wSize := weightCoreNoSize, weightSizeNoSize
	if hasSize {
		wCore, wSize = weightCoreWithSize, weightSizeWithSize
	}

	threshold := s.minScore
	if generic {
		threshold = s.genericMinScore
	}

	for _, c := range pool {
		coreScore := fuzzySimilarity(q.Core, c.canon.Core)

		sizeScore := 0.0
		missing := 0.0
		switch {
		case hasVolume:
			sizeScore = volumeClosenessScore(q.VolumeL, c.canon.VolumeL)
			if c.canon.VolumeL == nil {
				missing = missingSizePenalty
			}
		case hasWeight:
			sizeScore = weightClosenessScore(q.WeightKg, c.canon.WeightKg)
			if c.canon.WeightKg == nil {
				missing = missingSizePenalty
			}
		}

		gate := 0.0
		if hasSize && !generic && coreScore < minCoreWithSize {
			gate = coreGatePenalty
		}

		c.score = gate +
			wCore*coreScore +
			wSize*sizeScore -
			comboPenalty(q, c.product.Name) -
			zeroPenalty(q, c.product.Name) -
			missing
	}

	working := make([]*candidate, 0, len(pool))
	for _, c := range pool {
		if c.score >= threshold {
			working = append(working, c)
		}
	}
	if len(working) == 0 {
		working = append(working, pool...)
	}

	collator := collate.New(language.Spanish)

	sort.SliceStable(working, func(i, j int) bool {
		a, b := working[i], working[j]
		if a.score != b.score {
			return a.score > b.score
		}

		if hasVolume {
			qa := *q.VolumeL
			da, db := volumeDistance(a.canon.VolumeL, qa), volumeDistance(b.canon.VolumeL, qa)
			if da != db {
				return da < db
			}

			aAbove := a.canon.VolumeL != nil && *a.canon.VolumeL >= qa
			bAbove := b.canon.VolumeL != nil && *b.canon.VolumeL >= qa
			if aAbove != bAbove {
				return aAbove
			}
		}

		if cmp := a.product.Price.Cmp(b.product.Price); cmp != 0 {
			return cmp < 0
		}

		return collator.CompareString(a.product.Name, b.product.Name) < 0
	})

	return working
}

func volumeDistance(v *float64, target float64) float64 {
	if v == nil {
		return math.Inf(1)
	}
	return math.Abs(*v - target)
}
