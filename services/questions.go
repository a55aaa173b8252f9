package services

import (
	"context"
	"strconv"

	"github.com/examprep/client-go/httpclient"
	"github.com/examprep/client-go/validation"
)

const questionsPath = APIPrefix + "/questions"

// Question is a multiple choice exam question. Timestamps are ISO 8601 strings as
// sent by the API.
type Question struct {
	ID            string   `json:"id"`
	Statement     string   `json:"statement"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Subject       string   `json:"subject"`
	Year          int      `json:"year"`
	Difficulty    string   `json:"difficulty"`
	Explanation   string   `json:"explanation,omitempty"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

// QuestionFilters narrows List. Zero values are not sent.
type QuestionFilters struct {
	Subject    string `json:"subject"`
	Year       int    `json:"year" validate:"gte=0"`
	Difficulty string `json:"difficulty" validate:"omitempty,difficulty"`
	Status     string `json:"status"`
	Limit      int    `json:"limit" validate:"gte=0,lte=100"`
	Offset     int    `json:"offset" validate:"gte=0"`
}

// QuestionsPage is the List response.
type QuestionsPage struct {
	Questions []Question `json:"questions"`
	Total     int        `json:"total"`
	HasMore   bool       `json:"hasMore"`
}

// AnswerRequest answers one question.
type AnswerRequest struct {
	QuestionID     string `json:"question_id" validate:"required"`
	SelectedOption int    `json:"selected_option" validate:"gte=0"`
}

// AnswerResult tells whether an answer was correct.
type AnswerResult struct {
	IsCorrect     bool   `json:"is_correct"`
	CorrectAnswer int    `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

// RandomParams selects random questions for a practice set.
type RandomParams struct {
	Count           int    `json:"count" validate:"min=1,max=200"`
	Subject         string `json:"subject"`
	Difficulty      string `json:"difficulty" validate:"omitempty,difficulty"`
	ExcludeAnswered bool   `json:"exclude_answered"`
}

// UserAnswersFilter narrows UserAnswers.
type UserAnswersFilter struct {
	QuestionID string `json:"question_id"`
	PageParams
}

// UserAnswer is one recorded answer of the current user.
type UserAnswer struct {
	ID             string `json:"id"`
	QuestionID     string `json:"question_id"`
	UserID         string `json:"user_id"`
	SelectedOption int    `json:"selected_option"`
	IsCorrect      bool   `json:"is_correct"`
	AnsweredAt     string `json:"answered_at"`
}

// FavoriteStatus is the state after ToggleFavorite.
type FavoriteStatus struct {
	IsFavorite bool `json:"is_favorite"`
}

// ReportRequest flags a problem with a question.
type ReportRequest struct {
	Reason      string `json:"reason" validate:"required"`
	Description string `json:"description,omitempty"`
}

// Questions is the client for /api/v1/questions.
type Questions struct {
	client    httpclient.Client
	validator *validation.Validator
}

// List returns questions matching filters.
func (q *Questions) List(ctx context.Context, filters QuestionFilters) (*QuestionsPage, error) {
	if err := validate(q.validator, filters); err != nil {
		return nil, err
	}
	page, err := httpclient.Get[QuestionsPage](ctx, q.client, questionsPath,
		httpclient.WithQuery("subject", filters.Subject),
		httpclient.WithQueryInt("year", filters.Year),
		httpclient.WithQuery("difficulty", filters.Difficulty),
		httpclient.WithQuery("status", filters.Status),
		httpclient.WithQueryInt("limit", filters.Limit),
		httpclient.WithQueryInt("offset", filters.Offset),
	)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns one question.
func (q *Questions) Get(ctx context.Context, id string) (*Question, error) {
	path, err := resourcePath(questionsPath, "id", id)
	if err != nil {
		return nil, err
	}
	question, err := httpclient.Get[Question](ctx, q.client, path)
	if err != nil {
		return nil, err
	}
	return &question, nil
}

// Answer submits the selected option for a question.
func (q *Questions) Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	if err := validate(q.validator, req); err != nil {
		return nil, err
	}
	path, err := resourcePath(questionsPath, "question_id", req.QuestionID, "answer")
	if err != nil {
		return nil, err
	}
	res, err := httpclient.Post[AnswerResult](ctx, q.client, path,
		map[string]int{"selected_option": req.SelectedOption})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Subjects lists the subjects questions are filed under.
func (q *Questions) Subjects(ctx context.Context) ([]string, error) {
	return httpclient.Get[[]string](ctx, q.client, questionsPath+"/subjects")
}

// Random returns a random selection of questions.
func (q *Questions) Random(ctx context.Context, params RandomParams) ([]Question, error) {
	if err := validate(q.validator, params); err != nil {
		return nil, err
	}
	return httpclient.Get[[]Question](ctx, q.client, questionsPath+"/random",
		httpclient.WithQuery("count", strconv.Itoa(params.Count)),
		httpclient.WithQuery("subject", params.Subject),
		httpclient.WithQuery("difficulty", params.Difficulty),
		withBool("exclude_answered", params.ExcludeAnswered),
	)
}

// UserAnswers returns the current user's answer history.
func (q *Questions) UserAnswers(ctx context.Context, filter UserAnswersFilter) (*Page[UserAnswer], error) {
	if err := validate(q.validator, filter); err != nil {
		return nil, err
	}
	opts := append([]httpclient.RequestOption{httpclient.WithQuery("question_id", filter.QuestionID)}, filter.options()...)
	page, err := httpclient.Get[Page[UserAnswer]](ctx, q.client, questionsPath+"/answers", opts...)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// ToggleFavorite flips the favorite flag of a question.
func (q *Questions) ToggleFavorite(ctx context.Context, id string) (*FavoriteStatus, error) {
	path, err := resourcePath(questionsPath, "id", id, "favorite")
	if err != nil {
		return nil, err
	}
	status, err := httpclient.Post[FavoriteStatus](ctx, q.client, path, nil)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

// Favorites returns the current user's favorite questions.
func (q *Questions) Favorites(ctx context.Context, page PageParams) (*Page[Question], error) {
	if err := validate(q.validator, page); err != nil {
		return nil, err
	}
	res, err := httpclient.Get[Page[Question]](ctx, q.client, questionsPath+"/favorites", page.options()...)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Report flags a problem with a question.
func (q *Questions) Report(ctx context.Context, id string, req ReportRequest) error {
	if err := validate(q.validator, req); err != nil {
		return err
	}
	path, err := resourcePath(questionsPath, "id", id, "report")
	if err != nil {
		return err
	}
	_, err = httpclient.Post[httpclient.NoContent](ctx, q.client, path, req)
	return err
}
