package domain

import "time"

// Note is a block of staged text awaiting quiz generation.
type Note struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	WordCount int       `json:"wordCount"`
}

// Question is the canonical multiple choice question.
// Answer is always a valid index into Options.
type Question struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Answer   int      `json:"answer"`
}

// QuizMeta is descriptive data passed through from generated payloads.
type QuizMeta struct {
	Title           string `json:"title,omitempty"`
	Difficulty      string `json:"difficulty,omitempty"`
	DurationSeconds *int   `json:"durationSeconds,omitempty"`
}

// GeneratedQuiz is the cached result of one generation request.
type GeneratedQuiz struct {
	RequestID string     `json:"requestId"`
	Query     string     `json:"query,omitempty"`
	Questions []Question `json:"questions"`
	Meta      QuizMeta   `json:"meta"`
	// Fallback is set when the collaborator's payload yielded no questions and the sample set was used.
	Fallback  bool      `json:"fallback"`
	Notice    string    `json:"notice,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Scope selects which leaderboard collection to read.
type Scope string

const (
	ScopeLocal  Scope = "local"
	ScopeGlobal Scope = "global"
)

// Valid reports whether the scope is known.
func (s Scope) Valid() bool {
	return s == ScopeLocal || s == ScopeGlobal
}

// LeaderboardEntry is one saved quiz result.
type LeaderboardEntry struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Score           int       `json:"score"`
	Total           int       `json:"total"`
	Difficulty      string    `json:"difficulty"`
	DurationSeconds *int      `json:"durationSeconds,omitempty"`
	Date            time.Time `json:"date"`
	ProfileEmail    string    `json:"profileEmail,omitempty"`
	Avatar          string    `json:"avatar,omitempty"`
	Location        string    `json:"location,omitempty"`
}

// Accuracy is the ranking key; a zero total counts as one.
func (e LeaderboardEntry) Accuracy() float64 {
	total := e.Total
	if total == 0 {
		total = 1
	}
	return float64(e.Score) / float64(total)
}

// ScoreInput is the loosely validated request to save a score.
type ScoreInput struct {
	Name            string     `json:"name"`
	Score           float64    `json:"score"`
	Total           float64    `json:"total"`
	Difficulty      string     `json:"difficulty"`
	DurationSeconds *float64   `json:"durationSeconds,omitempty"`
	Date            *time.Time `json:"date,omitempty"`
}

// LeaderboardSettings is the persisted view preference.
type LeaderboardSettings struct {
	Scope Scope `json:"scope"`
}

// PlayerSummary aggregates local entries for one player name.
type PlayerSummary struct {
	TotalGames   int `json:"totalGames"`
	BestScore    int `json:"bestScore"`
	AverageScore int `json:"averageScore"`
}

// Identity is the optional record supplied by the identity provider.
type Identity struct {
	GivenName     string `json:"given_name,omitempty"`
	Nickname      string `json:"nickname,omitempty"`
	Name          string `json:"name,omitempty"`
	Email         string `json:"email,omitempty"`
	Picture       string `json:"picture,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`
}

// Profile is the per-owner player progress record.
type Profile struct {
	DisplayName   string     `json:"displayName"`
	Email         string     `json:"email"`
	Bio           string     `json:"bio"`
	Location      string     `json:"location"`
	AvatarDataURL string     `json:"avatarDataUrl"`
	XP            int        `json:"xp"`
	Level         int        `json:"level"`
	Streak        int        `json:"streak"`
	LongestStreak int        `json:"longestStreak"`
	TotalQuizzes  int        `json:"totalQuizzes"`
	LastPlayedAt  *time.Time `json:"lastPlayedAt"`
	JoinDate      time.Time  `json:"joinDate"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	Badges        []string   `json:"badges"`
}

// HasBadge reports whether the badge was already awarded.
func (p Profile) HasBadge(badge string) bool {
	for _, b := range p.Badges {
		if b == badge {
			return true
		}
	}
	return false
}

// ProfileUpdate carries user edits; nil fields are left unchanged.
type ProfileUpdate struct {
	DisplayName   *string  `json:"displayName,omitempty"`
	Email         *string  `json:"email,omitempty"`
	Bio           *string  `json:"bio,omitempty"`
	Location      *string  `json:"location,omitempty"`
	AvatarDataURL *string  `json:"avatarDataUrl,omitempty"`
	XP            *int     `json:"xp,omitempty"`
	Level         *int     `json:"level,omitempty"`
	Badges        []string `json:"badges,omitempty"`
}

// PlayResult is the outcome of one completed quiz fed to the profile.
type PlayResult struct {
	Score        int  `json:"score"`
	Total        int  `json:"total"`
	StreakEarned bool `json:"streakEarned"`
}

// ProfileStats summarizes a player's own leaderboard entries.
type ProfileStats struct {
	TotalQuizzes     int `json:"totalQuizzes"`
	AverageScore     int `json:"averageScore"`
	BestScore        int `json:"bestScore"`
	BestScoreTotal   int `json:"bestScoreTotal"`
	BestScorePercent int `json:"bestScorePercent"`
}

// SessionState is a point-in-time view of a quiz attempt.
type SessionState struct {
	ID           string    `json:"id"`
	CurrentIndex int       `json:"currentIndex"`
	Total        int       `json:"total"`
	Score        int       `json:"score"`
	Selected     *int      `json:"selected"`
	Finished     bool      `json:"finished"`
	Prompt       string    `json:"prompt,omitempty"`
	Options      []string  `json:"options,omitempty"`
	LastCorrect  *bool     `json:"lastCorrect,omitempty"`
	StartedAt    time.Time `json:"startedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
