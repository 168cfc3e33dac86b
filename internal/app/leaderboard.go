package app

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/logger"
)

const (
	maxEntryName      = 60
	defaultDifficulty = "Medium"
)

// LeaderboardStore owns the owner's local score collection and view settings.
type LeaderboardStore struct {
	docs        DocumentStore
	key         string
	settingsKey string
	profile     *ProfileStore
	capacity    int
	now         func() time.Time
	newID       func() string
	log         *logger.Logger
}

// AddScore coerces and appends a result, re-ranks, trims to capacity and persists.
// It then records the play on the profile; profile failures are logged, never returned.
func (s *LeaderboardStore) AddScore(ctx context.Context, in domain.ScoreInput, id *domain.Identity) ([]domain.LeaderboardEntry, error) {
	now := s.now()
	profile, err := s.profile.Get(ctx, id)
	if err != nil {
		s.log.Warn("profile unavailable while saving score", "error", err)
		profile = defaultProfile(id, now)
	}

	entry := domain.LeaderboardEntry{
		ID:              "local-" + s.newID(),
		Name:            entryName(in.Name, profile.DisplayName),
		Score:           finiteInt(in.Score),
		Total:           finiteInt(in.Total),
		Difficulty:      strings.TrimSpace(in.Difficulty),
		DurationSeconds: finiteIntPtr(in.DurationSeconds),
		Date:            now,
		ProfileEmail:    profile.Email,
		Avatar:          profile.AvatarDataURL,
	}
	if entry.Difficulty == "" {
		entry.Difficulty = defaultDifficulty
	}
	if in.Date != nil && !in.Date.IsZero() {
		entry.Date = *in.Date
	}
	if id != nil {
		if entry.ProfileEmail == "" {
			entry.ProfileEmail = id.Email
		}
		if entry.Avatar == "" {
			entry.Avatar = id.Picture
		}
	}

	existing, err := s.Local(ctx)
	if err != nil {
		return nil, err
	}
	next := append(existing, entry)
	rank(next)
	if len(next) > s.capacity {
		next = next[:s.capacity]
	}
	if err := saveDocument(ctx, s.docs, s.key, next); err != nil {
		return nil, err
	}

	play := domain.PlayResult{Score: entry.Score, Total: entry.Total, StreakEarned: entry.Score == entry.Total}
	if _, err := s.profile.RecordPlay(ctx, play, id); err != nil {
		s.log.Warn("failed to update profile from score", "error", err)
	}
	return next, nil
}

// Leaderboard returns the local collection as stored, or the read-only global seed.
func (s *LeaderboardStore) Leaderboard(ctx context.Context, scope domain.Scope) ([]domain.LeaderboardEntry, error) {
	switch scope {
	case domain.ScopeGlobal:
		return GlobalLeaderboard(), nil
	case domain.ScopeLocal, "":
		return s.Local(ctx)
	default:
		return nil, domain.ErrInvalidScope
	}
}

// Local reads the persisted local collection.
func (s *LeaderboardStore) Local(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	var entries []domain.LeaderboardEntry
	if _, err := loadDocument(ctx, s.docs, s.log, s.key, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.LeaderboardEntry{}
	}
	return entries, nil
}

// ClearLocal removes every local entry. The global seed is unaffected.
func (s *LeaderboardStore) ClearLocal(ctx context.Context) error {
	return s.docs.Delete(ctx, s.key)
}

// SummarizePlayer aggregates local entries whose name matches exactly.
func (s *LeaderboardStore) SummarizePlayer(ctx context.Context, name string) (domain.PlayerSummary, error) {
	entries, err := s.Local(ctx)
	if err != nil {
		return domain.PlayerSummary{}, err
	}
	var summary domain.PlayerSummary
	pctSum := 0.0
	for _, e := range entries {
		if e.Name != name {
			continue
		}
		summary.TotalGames++
		summary.BestScore = max(summary.BestScore, e.Score)
		if e.Total > 0 {
			pctSum += float64(e.Score) / float64(e.Total) * 100
		}
	}
	if summary.TotalGames > 0 {
		summary.AverageScore = roundHalfUp(pctSum / float64(summary.TotalGames))
	}
	return summary, nil
}

// Settings returns the persisted view preference, defaulting to the local scope.
func (s *LeaderboardStore) Settings(ctx context.Context) (domain.LeaderboardSettings, error) {
	settings := domain.LeaderboardSettings{Scope: domain.ScopeLocal}
	ok, err := loadDocument(ctx, s.docs, s.log, s.settingsKey, &settings)
	if err != nil {
		return domain.LeaderboardSettings{}, err
	}
	if !ok || !settings.Scope.Valid() {
		settings.Scope = domain.ScopeLocal
	}
	return settings, nil
}

// SaveSettings merges and persists the view preference.
func (s *LeaderboardStore) SaveSettings(ctx context.Context, next domain.LeaderboardSettings) (domain.LeaderboardSettings, error) {
	current, err := s.Settings(ctx)
	if err != nil {
		return domain.LeaderboardSettings{}, err
	}
	if next.Scope != "" {
		if !next.Scope.Valid() {
			return domain.LeaderboardSettings{}, domain.ErrInvalidScope
		}
		current.Scope = next.Scope
	}
	if err := saveDocument(ctx, s.docs, s.settingsKey, current); err != nil {
		return domain.LeaderboardSettings{}, err
	}
	return current, nil
}

// rank orders entries by accuracy, then raw score, then who got there first.
// The same rule is used for every scope and every view.
func rank(entries []domain.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ai, aj := entries[i].Accuracy(), entries[j].Accuracy()
		if ai != aj {
			return ai > aj
		}
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].Date.Before(entries[j].Date)
	})
}

var globalSeed = []domain.LeaderboardEntry{
	{ID: "global-1", Name: "Avery Chen", Score: 19, Total: 20, Difficulty: "Hard", Date: seedDate("2024-09-02T14:32:00Z"), Avatar: "https://i.pravatar.cc/120?img=12", Location: "Seattle, USA"},
	{ID: "global-2", Name: "Priya Sharma", Score: 18, Total: 20, Difficulty: "Hard", Date: seedDate("2024-09-04T10:14:00Z"), Avatar: "https://i.pravatar.cc/120?img=32", Location: "Mumbai, India"},
	{ID: "global-3", Name: "Luis Martínez", Score: 17, Total: 20, Difficulty: "Medium", Date: seedDate("2024-09-08T17:54:00Z"), Avatar: "https://i.pravatar.cc/120?img=45", Location: "Madrid, Spain"},
	{ID: "global-4", Name: "Naomi West", Score: 16, Total: 20, Difficulty: "Medium", Date: seedDate("2024-09-09T19:21:00Z"), Avatar: "https://i.pravatar.cc/120?img=5", Location: "Austin, USA"},
	{ID: "global-5", Name: "Omar Farouk", Score: 15, Total: 20, Difficulty: "Medium", Date: seedDate("2024-09-11T09:44:00Z"), Avatar: "https://i.pravatar.cc/120?img=24", Location: "Dubai, UAE"},
}

// GlobalLeaderboard returns a ranked copy of the static reference list.
func GlobalLeaderboard() []domain.LeaderboardEntry {
	out := append([]domain.LeaderboardEntry(nil), globalSeed...)
	rank(out)
	return out
}

func seedDate(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func entryName(name, fallback string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(fallback)
	}
	if name == "" {
		name = guestName
	}
	if utf8.RuneCountInString(name) > maxEntryName {
		name = string([]rune(name)[:maxEntryName])
	}
	return name
}

// finiteInt rounds f into [0, math.MaxInt32]; NaN and infinities become 0.
func finiteInt(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(math.Min(math.Max(f, 0), math.MaxInt32)))
}

func finiteIntPtr(f *float64) *int {
	if f == nil || math.IsNaN(*f) || math.IsInf(*f, 0) {
		return nil
	}
	v := finiteInt(*f)
	return &v
}
