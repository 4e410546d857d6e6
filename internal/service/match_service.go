package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/Freeeeeet/skillswap/internal/metrics"
	"github.com/Freeeeeet/skillswap/internal/model"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Веса итоговой оценки совпадения
const (
	TagOverlapWeight    = 0.4
	LocationWeight      = 0.2
	RatingWeight        = 0.2
	AvailabilityWeight  = 0.2
	NeutralRatingScore  = 0.5 // у новых пользователей нет оценок, их нельзя штрафовать
	DefaultMatchLimit   = 20
	DefaultMatchMaximum = 100
)

// MatchBreakdown частные оценки в диапазоне [0, 1]
type MatchBreakdown struct {
	TagOverlap   float64 `json:"tag_overlap"`
	Location     float64 `json:"location"`
	Rating       float64 `json:"rating"`
	Availability float64 `json:"availability"`
}

// Score взвешенная сумма частных оценок
func (b MatchBreakdown) Score() float64 {
	return TagOverlapWeight*b.TagOverlap +
		LocationWeight*b.Location +
		RatingWeight*b.Rating +
		AvailabilityWeight*b.Availability
}

type Match struct {
	Candidate *model.User    `json:"candidate"`
	Score     float64        `json:"score"`
	Breakdown MatchBreakdown `json:"breakdown"`
}

type MatchService struct {
	stores       Stores
	defaultLimit int
	maxLimit     int
	metrics      *metrics.Metrics
	logger       *zap.Logger
}

func NewMatchService(stores Stores, defaultLimit, maxLimit int, m *metrics.Metrics, logger *zap.Logger) *MatchService {
	if defaultLimit <= 0 {
		defaultLimit = DefaultMatchLimit
	}
	if maxLimit < defaultLimit {
		maxLimit = max(defaultLimit, DefaultMatchMaximum)
	}
	return &MatchService{
		stores:       stores,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		metrics:      m,
		logger:       logger,
	}
}

// FindMatches подбирает пользователей для взаимного обмена навыками.
// Результат отсортирован по убыванию оценки, при равенстве - по возрастанию ID кандидата.
func (s *MatchService) FindMatches(ctx context.Context, userID int64, limit int) (_ []Match, err error) {
	ctx, span := startSpan(ctx, "MatchService.FindMatches",
		attribute.Int64("user_id", userID), attribute.Int("limit", limit))
	defer func() { endSpan(span, err) }()

	switch {
	case limit <= 0:
		limit = s.defaultLimit
	case limit > s.maxLimit:
		limit = s.maxLimit
	}

	user, err := s.stores.Users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, notFound("user")
	}

	teach := user.SkillIDs(model.SkillKindTeach)
	learn := user.SkillIDs(model.SkillKindLearn)
	if len(teach) == 0 && len(learn) == 0 {
		return []Match{}, nil
	}

	candidates, err := s.stores.Users.FindCandidates(ctx, userID, idList(teach), idList(learn))
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	s.metrics.MatchCandidates(len(candidates))

	if len(candidates) == 0 {
		return []Match{}, nil
	}

	ids := make([]int64, 0, len(candidates)+1)
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}

	var summaries map[int64]model.RatingSummary
	var slots map[int64][]model.AvailabilitySlot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summaries, err = s.stores.Ratings.SummariesForRatees(gctx, ids)
		if err != nil {
			return fmt.Errorf("load ratings: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		slots, err = s.stores.Availability.GetByUserIDs(gctx, append(ids, userID))
		if err != nil {
			return fmt.Errorf("load availability: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if !eligibleCandidate(user, c) {
			continue
		}

		m := ScoreCandidate(user, slots[userID], c, slots[c.ID], summaries[c.ID])
		// без общего навыка обмен невозможен, даже если остальные оценки положительны
		if m.Breakdown.TagOverlap > 0 && m.Score > 0 {
			matches = append(matches, m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Candidate.ID < matches[j].Candidate.ID
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}

	s.logger.Debug("Matches computed",
		zap.Int64("user_id", userID),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(matches)),
	)

	return matches, nil
}

// ScoreCandidate вычисляет частные и итоговую оценки пары пользователей
func ScoreCandidate(
	requester *model.User,
	requesterSlots []model.AvailabilitySlot,
	candidate *model.User,
	candidateSlots []model.AvailabilitySlot,
	ratings model.RatingSummary,
) Match {
	b := MatchBreakdown{
		TagOverlap:   TagOverlapScore(requester, candidate),
		Location:     LocationScore(requester.Location, candidate.Location),
		Rating:       RatingScore(ratings),
		Availability: AvailabilityOverlapScore(requesterSlots, candidateSlots),
	}

	return Match{
		Candidate: candidate,
		Score:     b.Score(),
		Breakdown: b,
	}
}

// TagOverlapScore доля взаимно полезных навыков; ограничена единицей
func TagOverlapScore(requester, candidate *model.User) float64 {
	teach := requester.SkillIDs(model.SkillKindTeach)
	learn := requester.SkillIDs(model.SkillKindLearn)
	candTeach := candidate.SkillIDs(model.SkillKindTeach)
	candLearn := candidate.SkillIDs(model.SkillKindLearn)

	overlap := intersectionSize(teach, candLearn) + intersectionSize(learn, candTeach)
	if overlap == 0 {
		return 0
	}

	denominator := max(len(teach), len(learn), len(candTeach), len(candLearn), 1)
	return min(1, float64(overlap)/float64(denominator))
}

// LocationScore 1, если оба города заданы и совпадают без учёта регистра и пробелов
func LocationScore(a, b string) float64 {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return 0
	}
	if strings.EqualFold(a, b) {
		return 1
	}
	return 0
}

// RatingScore средняя оценка, нормированная к [0, 1]
func RatingScore(summary model.RatingSummary) float64 {
	if summary.Count == 0 {
		return NeutralRatingScore
	}
	return summary.Mean() / model.MaxRatingValue
}

func eligibleCandidate(requester, candidate *model.User) bool {
	return candidate.ID != requester.ID && candidate.IsPublic && !candidate.Role.IsPrivileged()
}

func intersectionSize(a, b map[int64]struct{}) int {
	n := 0
	for id := range a {
		if _, ok := b[id]; ok {
			n++
		}
	}
	return n
}

func idList(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
