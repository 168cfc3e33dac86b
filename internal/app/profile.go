package app

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"notes-quiz-service/internal/domain"
	"notes-quiz-service/internal/logger"
)

const (
	xpPerLevel      = 500
	xpPerQuiz       = 120
	xpStreakBonus   = 20
	maxAvatarBytes  = 400 * 1024
	guestName       = "Guest"
	badgePerfect    = "Perfect Score"
	badgeWhisperer  = "Quiz Whisperer"
	badgeVeteran    = "Quiz Veteran"
	maxBadges       = 20
	maxDisplayName  = 40
	maxBio          = 280
	maxLocation     = 60
	maxEmail        = 120
	maxXP           = 1_000_000
	maxLevel        = 999
	avatarURLPrefix = "data:image/"
)

// ProfileStore owns the owner's single player-progress record.
type ProfileStore struct {
	docs DocumentStore
	key  string
	now  func() time.Time
	log  *logger.Logger
}

// Get returns the profile, creating and persisting a default one on first access.
// Persisted fields are layered over current defaults so older documents pick up new fields.
func (s *ProfileStore) Get(ctx context.Context, id *domain.Identity) (domain.Profile, error) {
	base := defaultProfile(id, s.now())
	stored := base
	ok, err := loadDocument(ctx, s.docs, s.log, s.key, &stored)
	if err != nil {
		return domain.Profile{}, err
	}
	if !ok {
		if err := saveDocument(ctx, s.docs, s.key, base); err != nil {
			return domain.Profile{}, err
		}
		return base, nil
	}
	if stored.Badges == nil {
		stored.Badges = []string{}
	}
	stored.XP = max(stored.XP, 0)
	stored.Level = max(stored.Level, 1)
	return stored, nil
}

// RecordPlay applies one completed quiz: XP, level, streak and badges.
func (s *ProfileStore) RecordPlay(ctx context.Context, play domain.PlayResult, id *domain.Identity) (domain.Profile, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Profile{}, err
	}
	now := s.now()

	accuracy := 0.0
	if play.Total > 0 {
		accuracy = float64(play.Score) / float64(play.Total)
	}
	gained := roundHalfUp(accuracy * xpPerQuiz)
	if play.StreakEarned {
		gained += xpStreakBonus
	}
	next := current
	next.XP = max(current.XP+gained, 0)
	next.Level = levelFor(next.XP)

	if play.StreakEarned {
		next.Streak = current.Streak + 1
	} else {
		next.Streak = 0
	}
	next.LongestStreak = max(current.LongestStreak, next.Streak)
	next.TotalQuizzes = current.TotalQuizzes + 1

	badges := append([]string{}, current.Badges...)
	if play.Total > 0 {
		if play.Score == play.Total && play.Total >= 5 {
			badges = addBadge(badges, badgePerfect)
		}
		if accuracy >= 0.9 && play.Total >= 10 {
			badges = addBadge(badges, badgeWhisperer)
		}
		if next.TotalQuizzes >= 10 {
			badges = addBadge(badges, badgeVeteran)
		}
	}
	next.Badges = badges
	next.LastPlayedAt = &now
	next.UpdatedAt = now

	if err := saveDocument(ctx, s.docs, s.key, next); err != nil {
		return domain.Profile{}, err
	}
	return next, nil
}

// Save merges sanitized user edits over the current profile.
// Invalid avatars are rejected before anything is written.
func (s *ProfileStore) Save(ctx context.Context, upd domain.ProfileUpdate, id *domain.Identity) (domain.Profile, error) {
	if upd.AvatarDataURL != nil {
		if err := validateAvatar(*upd.AvatarDataURL); err != nil {
			return domain.Profile{}, err
		}
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Profile{}, err
	}
	next := applyUpdate(current, upd)
	next.UpdatedAt = s.now()
	if err := saveDocument(ctx, s.docs, s.key, next); err != nil {
		return domain.Profile{}, err
	}
	return next, nil
}

// EnsureFromIdentity copies identity fields into the profile where it holds only placeholders.
// A customized display name is kept unless it still looks like a raw email.
func (s *ProfileStore) EnsureFromIdentity(ctx context.Context, id *domain.Identity) (domain.Profile, error) {
	current, err := s.Get(ctx, id)
	if err != nil || id == nil {
		return current, err
	}

	var upd domain.ProfileUpdate
	changed := false
	if id.Email != "" && strings.TrimSpace(current.Email) == "" {
		email := id.Email
		upd.Email = &email
		changed = true
	}
	if isPlaceholderName(current.DisplayName) {
		if derived := deriveDisplayName(id); derived != guestName && derived != current.DisplayName {
			upd.DisplayName = &derived
			changed = true
		}
	}
	if current.AvatarDataURL == "" && id.Picture != "" {
		picture := id.Picture
		upd.AvatarDataURL = &picture
		changed = true
	}
	if !changed {
		return current, nil
	}
	next := applyUpdate(current, upd)
	next.UpdatedAt = s.now()
	if err := saveDocument(ctx, s.docs, s.key, next); err != nil {
		return domain.Profile{}, err
	}
	return next, nil
}

// AwardBadge adds a badge outside of RecordPlay.
func (s *ProfileStore) AwardBadge(ctx context.Context, badge string, id *domain.Identity) (domain.Profile, error) {
	badge = strings.TrimSpace(badge)
	current, err := s.Get(ctx, id)
	if err != nil || badge == "" || current.HasBadge(badge) {
		return current, err
	}
	return s.Save(ctx, domain.ProfileUpdate{Badges: append(append([]string{}, current.Badges...), badge)}, id)
}

// Reset drops the stored profile; the next read recreates defaults.
func (s *ProfileStore) Reset(ctx context.Context) error {
	return s.docs.Delete(ctx, s.key)
}

func defaultProfile(id *domain.Identity, now time.Time) domain.Profile {
	p := domain.Profile{
		DisplayName: deriveDisplayName(id),
		Level:       1,
		JoinDate:    now,
		UpdatedAt:   now,
		Badges:      []string{},
	}
	if id != nil {
		p.Email = id.Email
		p.AvatarDataURL = id.Picture
	}
	return p
}

// deriveDisplayName prefers given name, nickname, name, then the email's local part,
// skipping anything that looks like an email address.
func deriveDisplayName(id *domain.Identity) string {
	if id == nil {
		return guestName
	}
	var candidates []string
	for _, c := range []string{id.GivenName, id.Nickname, id.Name} {
		if strings.TrimSpace(c) != "" {
			candidates = append(candidates, c)
		}
	}
	if local, _, ok := strings.Cut(id.Email, "@"); ok && local != "" {
		candidates = append(candidates, local)
	}
	if len(candidates) == 0 {
		return guestName
	}
	chosen := candidates[0]
	for _, c := range candidates {
		if !strings.Contains(c, "@") {
			chosen = c
			break
		}
	}
	return capitalize(strings.TrimSpace(chosen))
}

func isPlaceholderName(name string) bool {
	name = strings.TrimSpace(name)
	return name == "" || name == guestName || strings.Contains(name, "@")
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

func applyUpdate(p domain.Profile, upd domain.ProfileUpdate) domain.Profile {
	if upd.DisplayName != nil {
		p.DisplayName = clip(*upd.DisplayName, maxDisplayName)
	}
	if upd.Email != nil {
		p.Email = clip(*upd.Email, maxEmail)
	}
	if upd.Bio != nil {
		p.Bio = clip(*upd.Bio, maxBio)
	}
	if upd.Location != nil {
		p.Location = clip(*upd.Location, maxLocation)
	}
	if upd.AvatarDataURL != nil {
		p.AvatarDataURL = *upd.AvatarDataURL
	}
	if upd.XP != nil {
		p.XP = clamp(*upd.XP, 0, maxXP)
	}
	if upd.Level != nil {
		p.Level = clamp(*upd.Level, 1, maxLevel)
	}
	if upd.Badges != nil {
		badges := make([]string, 0, min(len(upd.Badges), maxBadges))
		for _, b := range upd.Badges {
			if len(badges) == maxBadges {
				break
			}
			badges = append(badges, b)
		}
		p.Badges = badges
	}
	return p
}

// validateAvatar accepts an empty value (removal), remote picture URLs from the identity
// provider, or an image data URL under the size cap.
func validateAvatar(v string) error {
	switch {
	case v == "":
		return nil
	case strings.HasPrefix(v, "https://"), strings.HasPrefix(v, "http://"):
		return nil
	case !strings.HasPrefix(v, avatarURLPrefix):
		return domain.ErrAvatarNotImage
	case len(v) > maxAvatarBytes:
		return domain.ErrAvatarTooLarge
	}
	return nil
}

// ComputeStats summarizes a player's leaderboard entries.
func ComputeStats(entries []domain.LeaderboardEntry) domain.ProfileStats {
	var stats domain.ProfileStats
	if len(entries) == 0 {
		return stats
	}
	scoreSum, totalSum := 0, 0
	bestPercent := 0.0
	for _, e := range entries {
		stats.TotalQuizzes++
		scoreSum += e.Score
		totalSum += e.Total
		pct := 0.0
		if e.Total > 0 {
			pct = float64(e.Score) / float64(e.Total) * 100
		}
		if pct > bestPercent {
			bestPercent = pct
			stats.BestScore = e.Score
			stats.BestScoreTotal = e.Total
		}
	}
	if totalSum > 0 {
		stats.AverageScore = roundHalfUp(float64(scoreSum) / float64(totalSum) * 100)
	}
	stats.BestScorePercent = roundHalfUp(bestPercent)
	return stats
}

// PersonalEntries filters entries belonging to the profile by email or display name.
func PersonalEntries(p domain.Profile, entries []domain.LeaderboardEntry) []domain.LeaderboardEntry {
	name := p.DisplayName
	if name == "" {
		name = guestName
	}
	out := make([]domain.LeaderboardEntry, 0, len(entries))
	for _, e := range entries {
		if (p.Email != "" && e.ProfileEmail == p.Email) || e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func levelFor(xp int) int {
	return max(1, xp/xpPerLevel+1)
}

func addBadge(badges []string, badge string) []string {
	for _, b := range badges {
		if b == badge {
			return badges
		}
	}
	return append(badges, badge)
}

// roundHalfUp matches the rounding used for scores everywhere else in the app.
func roundHalfUp(f float64) int {
	return int(math.Floor(f + 0.5))
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// clip trims and caps s at n runes.
func clip(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
