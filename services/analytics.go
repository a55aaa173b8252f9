package services

import (
	"context"

	"github.com/examprep/client-go/httpclient"
	"github.com/examprep/client-go/validation"
)

const analyticsPath = APIPrefix + "/analytics"

// AnalyticsParams selects the period and subject of a report.
type AnalyticsParams struct {
	Period  string `json:"period" validate:"omitempty,period"`
	Subject string `json:"subject"`
}

// ActivityData is the activity of one day.
type ActivityData struct {
	Date              string  `json:"date"`
	QuestionsAnswered int     `json:"questionsAnswered"`
	Accuracy          float64 `json:"accuracy"`
}

// Overview is the dashboard summary.
type Overview struct {
	TotalQuestions     int                  `json:"totalQuestions"`
	AnsweredQuestions  int                  `json:"answeredQuestions"`
	CorrectAnswers     int                  `json:"correctAnswers"`
	AccuracyRate       float64              `json:"accuracyRate"`
	SubjectPerformance []SubjectPerformance `json:"subjectPerformance"`
	RecentActivity     []ActivityData       `json:"recentActivity"`
}

// UserStats are the headline numbers of the current user.
type UserStats struct {
	QuestionsAnswered  int     `json:"questionsAnswered"`
	AccuracyRate       float64 `json:"accuracyRate"`
	SimuladosCompleted int     `json:"simuladosCompleted"`
	Ranking            int     `json:"ranking"`
	TotalStudyTime     int     `json:"totalStudyTime,omitempty"`
	StreakDays         int     `json:"streakDays,omitempty"`
}

// ActivityParams narrows RecentActivity.
type ActivityParams struct {
	Period string `json:"period" validate:"omitempty,oneof=7d 30d 90d"`
	Limit  int    `json:"limit" validate:"gte=0,lte=365"`
}

// RankingParams selects the ranking scope.
type RankingParams struct {
	Scope   string `json:"scope" validate:"omitempty,oneof=global monthly weekly"`
	Subject string `json:"subject"`
}

// Ranking is the current user's position.
type Ranking struct {
	Position   int     `json:"position"`
	TotalUsers int     `json:"total_users"`
	Score      float64 `json:"score"`
	Percentile float64 `json:"percentile"`
}

// StudySession is the study time of one day.
type StudySession struct {
	Date              string `json:"date"`
	Duration          int    `json:"duration"`
	QuestionsAnswered int    `json:"questions_answered"`
}

// StudyTime summarizes study time over a period.
type StudyTime struct {
	TotalTime     int            `json:"total_time"`
	DailyAverage  float64        `json:"daily_average"`
	StreakDays    int            `json:"streak_days"`
	BestStreak    int            `json:"best_streak"`
	StudySessions []StudySession `json:"study_sessions"`
}

// ProgressParams selects the metric plotted by Progress.
type ProgressParams struct {
	Period string `json:"period" validate:"omitempty,oneof=30d 90d 1y"`
	Metric string `json:"metric" validate:"omitempty,oneof=accuracy speed questions_per_day"`
}

// ProgressPoint is one sample of a progress series.
type ProgressPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// ComparisonParams narrows Comparison.
type ComparisonParams struct {
	Subject string `json:"subject"`
	Period  string `json:"period" validate:"omitempty,oneof=30d 90d 1y"`
}

// PerformanceSnapshot is the performance of a user or of the average user.
type PerformanceSnapshot struct {
	Accuracy          float64 `json:"accuracy"`
	QuestionsAnswered int     `json:"questions_answered"`
	StudyTime         int     `json:"study_time"`
}

// Comparison sets the current user against the average.
type Comparison struct {
	UserPerformance    PerformanceSnapshot `json:"user_performance"`
	AveragePerformance PerformanceSnapshot `json:"average_performance"`
	PercentileRank     float64             `json:"percentile_rank"`
}

// Analytics is the client for /api/v1/analytics.
type Analytics struct {
	client    httpclient.Client
	validator *validation.Validator
}

// Overview returns the dashboard summary.
func (a *Analytics) Overview(ctx context.Context, params AnalyticsParams) (*Overview, error) {
	if err := validate(a.validator, params); err != nil {
		return nil, err
	}
	res, err := httpclient.Get[Overview](ctx, a.client, analyticsPath+"/overview",
		httpclient.WithQuery("period", params.Period),
		httpclient.WithQuery("subject", params.Subject),
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// UserStats returns the headline numbers of the current user.
func (a *Analytics) UserStats(ctx context.Context) (*UserStats, error) {
	res, err := httpclient.Get[UserStats](ctx, a.client, analyticsPath+"/user-stats")
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SubjectPerformance returns accuracy per subject. Only the period is sent.
func (a *Analytics) SubjectPerformance(ctx context.Context, params AnalyticsParams) ([]SubjectPerformance, error) {
	if err := validate(a.validator, params); err != nil {
		return nil, err
	}
	return httpclient.Get[[]SubjectPerformance](ctx, a.client, analyticsPath+"/performance",
		httpclient.WithQuery("period", params.Period),
	)
}

// RecentActivity returns daily activity.
func (a *Analytics) RecentActivity(ctx context.Context, params ActivityParams) ([]ActivityData, error) {
	if err := validate(a.validator, params); err != nil {
		return nil, err
	}
	return httpclient.Get[[]ActivityData](ctx, a.client, analyticsPath+"/activity",
		httpclient.WithQuery("period", params.Period),
		httpclient.WithQueryInt("limit", params.Limit),
	)
}

// Ranking returns the current user's ranking.
func (a *Analytics) Ranking(ctx context.Context, params RankingParams) (*Ranking, error) {
	if err := validate(a.validator, params); err != nil {
		return nil, err
	}
	res, err := httpclient.Get[Ranking](ctx, a.client, analyticsPath+"/ranking",
		httpclient.WithQuery("scope", params.Scope),
		httpclient.WithQuery("subject", params.Subject),
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// StudyTime returns study time statistics. Only the period of params is sent.
func (a *Analytics) StudyTime(ctx context.Context, params AnalyticsParams) (*StudyTime, error) {
	if err := validate(a.validator, params); err != nil {
		return nil, err
	}
	res, err := httpclient.Get[StudyTime](ctx, a.client, analyticsPath+"/study-time",
		httpclient.WithQuery("period", params.Period),
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Progress returns a metric over time.
func (a *Analytics) Progress(ctx context.Context, params ProgressParams) ([]ProgressPoint, error) {
	if err := validate(a.validator, params); err != nil {
		return nil, err
	}
	return httpclient.Get[[]ProgressPoint](ctx, a.client, analyticsPath+"/progress",
		httpclient.WithQuery("period", params.Period),
		httpclient.WithQuery("metric", params.Metric),
	)
}

// Comparison sets the current user against the average user.
func (a *Analytics) Comparison(ctx context.Context, params ComparisonParams) (*Comparison, error) {
	if err := validate(a.validator, params); err != nil {
		return nil, err
	}
	res, err := httpclient.Get[Comparison](ctx, a.client, analyticsPath+"/comparison",
		httpclient.WithQuery("subject", params.Subject),
		httpclient.WithQuery("period", params.Period),
	)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
