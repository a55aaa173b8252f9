package services

import (
	"context"

	"github.com/examprep/client-go/httpclient"
	"github.com/examprep/client-go/validation"
)

const essaysPath = APIPrefix + "/essays"

// Essay is a submitted essay with its correction, when there is one.
type Essay struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Score       *float64 `json:"score,omitempty"`
	Feedback    string   `json:"feedback,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Strengths   []string `json:"strengths,omitempty"`
	Weaknesses  []string `json:"weaknesses,omitempty"`
	CorrectedAt string   `json:"corrected_at,omitempty"`
	CreatedAt   string   `json:"created_at"`
}

// CorrectEssayRequest submits an essay for AI correction.
type CorrectEssayRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
	Subject string `json:"subject,omitempty"`
}

// EssayCorrection is the AI correction of an essay.
type EssayCorrection struct {
	EssayID     string   `json:"essay_id"`
	Score       float64  `json:"score"`
	Feedback    string   `json:"feedback"`
	Suggestions []string `json:"suggestions"`
	Strengths   []string `json:"strengths"`
	Weaknesses  []string `json:"weaknesses"`
}

// EssayHistoryParams narrows History.
type EssayHistoryParams struct {
	Subject string `json:"subject"`
	PageParams
}

// Draft is an essay saved before correction.
type Draft struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
	Subject string `json:"subject,omitempty"`
}

// SavedDraft acknowledges SaveDraft.
type SavedDraft struct {
	ID      string `json:"id"`
	SavedAt string `json:"saved_at"`
}

// DraftEntry is a stored draft.
type DraftEntry struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
	Subject string `json:"subject,omitempty"`
	SavedAt string `json:"saved_at"`
}

// TopicParams narrows Topics.
type TopicParams struct {
	Subject    string `json:"subject"`
	Difficulty string `json:"difficulty" validate:"omitempty,difficulty"`
	Year       int    `json:"year" validate:"gte=0"`
}

// EssayTopic is a prompt to write about.
type EssayTopic struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Subject      string   `json:"subject"`
	Difficulty   string   `json:"difficulty"`
	Year         int      `json:"year"`
	Requirements []string `json:"requirements"`
}

// SubjectEssayStats summarizes essays of one subject.
type SubjectEssayStats struct {
	Subject      string  `json:"subject"`
	EssaysCount  int     `json:"essays_count"`
	AverageScore float64 `json:"average_score"`
}

// ScorePoint is a dated score.
type ScorePoint struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

// EssayStats summarizes the current user's essays.
type EssayStats struct {
	TotalEssays         int                 `json:"total_essays"`
	AverageScore        float64             `json:"average_score"`
	BestScore           float64             `json:"best_score"`
	ImprovementRate     float64             `json:"improvement_rate"`
	SubjectsPerformance []SubjectEssayStats `json:"subjects_performance"`
	RecentScores        []ScorePoint        `json:"recent_scores"`
}

// FeedbackRating grades a correction on a 1 to 5 scale.
type FeedbackRating struct {
	Helpfulness int    `json:"helpfulness" validate:"min=1,max=5"`
	Accuracy    int    `json:"accuracy" validate:"min=1,max=5"`
	Clarity     int    `json:"clarity" validate:"min=1,max=5"`
	Comments    string `json:"comments,omitempty"`
}

// ExampleParams narrows Examples.
type ExampleParams struct {
	Subject  string `json:"subject"`
	MinScore int    `json:"min_score" validate:"gte=0"`
	Limit    int    `json:"limit" validate:"gte=0,lte=100"`
}

// ExampleEssay is a high scoring essay with highlighted passages.
type ExampleEssay struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Score      float64  `json:"score"`
	Subject    string   `json:"subject"`
	Highlights []string `json:"highlights"`
}

// Essays is the client for /api/v1/essays.
type Essays struct {
	client    httpclient.Client
	validator *validation.Validator
}

// Correct submits an essay for correction.
func (e *Essays) Correct(ctx context.Context, req CorrectEssayRequest) (*EssayCorrection, error) {
	if err := validate(e.validator, req); err != nil {
		return nil, err
	}
	res, err := httpclient.Post[EssayCorrection](ctx, e.client, essaysPath+"/correct", req)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// History returns previously corrected essays.
func (e *Essays) History(ctx context.Context, params EssayHistoryParams) (*Page[Essay], error) {
	if err := validate(e.validator, params); err != nil {
		return nil, err
	}
	opts := append(params.options(), httpclient.WithQuery("subject", params.Subject))
	page, err := httpclient.Get[Page[Essay]](ctx, e.client, essaysPath+"/history", opts...)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns one essay with its correction.
func (e *Essays) Get(ctx context.Context, id string) (*Essay, error) {
	path, err := resourcePath(essaysPath, "id", id)
	if err != nil {
		return nil, err
	}
	essay, err := httpclient.Get[Essay](ctx, e.client, path)
	if err != nil {
		return nil, err
	}
	return &essay, nil
}

// SaveDraft stores a draft.
func (e *Essays) SaveDraft(ctx context.Context, draft Draft) (*SavedDraft, error) {
	if err := validate(e.validator, draft); err != nil {
		return nil, err
	}
	res, err := httpclient.Post[SavedDraft](ctx, e.client, essaysPath+"/drafts", draft)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Drafts lists stored drafts.
func (e *Essays) Drafts(ctx context.Context, page PageParams) (*Page[DraftEntry], error) {
	if err := validate(e.validator, page); err != nil {
		return nil, err
	}
	res, err := httpclient.Get[Page[DraftEntry]](ctx, e.client, essaysPath+"/drafts", page.options()...)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteDraft removes a draft.
func (e *Essays) DeleteDraft(ctx context.Context, id string) error {
	path, err := resourcePath(essaysPath+"/drafts", "id", id)
	if err != nil {
		return err
	}
	_, err = httpclient.Delete[httpclient.NoContent](ctx, e.client, path)
	return err
}

// Topics lists essay prompts.
func (e *Essays) Topics(ctx context.Context, params TopicParams) ([]EssayTopic, error) {
	if err := validate(e.validator, params); err != nil {
		return nil, err
	}
	return httpclient.Get[[]EssayTopic](ctx, e.client, essaysPath+"/topics",
		httpclient.WithQuery("subject", params.Subject),
		httpclient.WithQuery("difficulty", params.Difficulty),
		httpclient.WithQueryInt("year", params.Year),
	)
}

// Stats summarizes the current user's essays.
func (e *Essays) Stats(ctx context.Context) (*EssayStats, error) {
	stats, err := httpclient.Get[EssayStats](ctx, e.client, essaysPath+"/stats")
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// RequestReCorrection asks for a new correction. notes may be empty.
func (e *Essays) RequestReCorrection(ctx context.Context, id, notes string) (*EssayCorrection, error) {
	path, err := resourcePath(essaysPath, "id", id, "re-correct")
	if err != nil {
		return nil, err
	}
	body := struct {
		Notes string `json:"notes,omitempty"`
	}{Notes: notes}
	res, err := httpclient.Post[EssayCorrection](ctx, e.client, path, body)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// RateFeedback grades the correction of an essay.
func (e *Essays) RateFeedback(ctx context.Context, id string, rating FeedbackRating) error {
	if err := validate(e.validator, rating); err != nil {
		return err
	}
	path, err := resourcePath(essaysPath, "id", id, "rate-feedback")
	if err != nil {
		return err
	}
	_, err = httpclient.Post[httpclient.NoContent](ctx, e.client, path, rating)
	return err
}

// Examples lists high scoring essays.
func (e *Essays) Examples(ctx context.Context, params ExampleParams) ([]ExampleEssay, error) {
	if err := validate(e.validator, params); err != nil {
		return nil, err
	}
	return httpclient.Get[[]ExampleEssay](ctx, e.client, essaysPath+"/examples",
		httpclient.WithQuery("subject", params.Subject),
		httpclient.WithQueryInt("min_score", params.MinScore),
		httpclient.WithQueryInt("limit", params.Limit),
	)
}
