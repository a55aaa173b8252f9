package services

import (
	"context"

	"github.com/examprep/client-go/httpclient"
	"github.com/examprep/client-go/validation"
)

const simulationsPath = APIPrefix + "/simulations"

// Simulation statuses.
const (
	SimulationPending    = "pending"
	SimulationInProgress = "in_progress"
	SimulationCompleted  = "completed"
)

// Simulation is a timed mock exam.
type Simulation struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Questions   []Question `json:"questions"`
	TimeLimit   int        `json:"timeLimit"` // minutes
	Status      string     `json:"status"`
	Score       *float64   `json:"score,omitempty"`
	StartedAt   string     `json:"startedAt,omitempty"`
	CompletedAt string     `json:"completedAt,omitempty"`
	CreatedAt   string     `json:"created_at"`
}

// ListSimulationsParams narrows List.
type ListSimulationsParams struct {
	Status string `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	PageParams
}

// CreateSimulationRequest creates a simulation from scratch.
type CreateSimulationRequest struct {
	Title         string `json:"title" validate:"required"`
	Subject       string `json:"subject,omitempty"`
	QuestionCount int    `json:"questionCount" validate:"min=1,max=200"`
	TimeLimit     int    `json:"timeLimit" validate:"min=1"`
	Difficulty    string `json:"difficulty,omitempty" validate:"omitempty,difficulty"`
}

// AnswerItem is one answer inside a simulation.
type AnswerItem struct {
	QuestionID     string `json:"question_id" validate:"required"`
	SelectedOption int    `json:"selected_option" validate:"gte=0"`
}

// SubmitSimulationRequest hands in every answer of a simulation.
type SubmitSimulationRequest struct {
	SimulationID string       `json:"simulation_id" validate:"required"`
	Answers      []AnswerItem `json:"answers" validate:"min=1,dive"`
}

// DetailedResult is the outcome for one question of a simulation.
type DetailedResult struct {
	QuestionID     string `json:"question_id"`
	IsCorrect      bool   `json:"is_correct"`
	SelectedOption int    `json:"selected_option"`
	CorrectAnswer  int    `json:"correct_answer"`
}

// SimulationResult is the graded simulation.
type SimulationResult struct {
	SimulationID       string               `json:"simulation_id"`
	Score              float64              `json:"score"`
	TotalQuestions     int                  `json:"total_questions"`
	CorrectAnswers     int                  `json:"correct_answers"`
	TimeSpent          int                  `json:"time_spent"`
	SubjectPerformance []SubjectPerformance `json:"subject_performance"`
	DetailedResults    []DetailedResult     `json:"detailed_results"`
}

// StartedSimulation is returned by Start.
type StartedSimulation struct {
	SimulationID string `json:"simulation_id"`
	StartedAt    string `json:"started_at"`
	TimeLimit    int    `json:"time_limit"`
}

// PausedSimulation is returned by Pause.
type PausedSimulation struct {
	SimulationID  string `json:"simulation_id"`
	PausedAt      string `json:"paused_at"`
	RemainingTime int    `json:"remaining_time"`
}

// ResumedSimulation is returned by Resume.
type ResumedSimulation struct {
	SimulationID  string `json:"simulation_id"`
	ResumedAt     string `json:"resumed_at"`
	RemainingTime int    `json:"remaining_time"`
}

// SaveProgressRequest stores partial answers of a running simulation.
type SaveProgressRequest struct {
	SimulationID    string       `json:"simulation_id"`
	CurrentQuestion int          `json:"current_question" validate:"gte=0"`
	Answers         []AnswerItem `json:"answers" validate:"dive"`
	TimeSpent       int          `json:"time_spent" validate:"gte=0"`
}

// SavedProgress acknowledges SaveProgress.
type SavedProgress struct {
	SimulationID       string  `json:"simulation_id"`
	SavedAt            string  `json:"saved_at"`
	ProgressPercentage float64 `json:"progress_percentage"`
}

// ProgressAnswer is a saved answer; SelectedOption is nil for unanswered questions.
type ProgressAnswer struct {
	QuestionID     string `json:"question_id"`
	SelectedOption *int   `json:"selected_option,omitempty"`
}

// SimulationProgress is the saved state of a simulation.
type SimulationProgress struct {
	SimulationID       string           `json:"simulation_id"`
	Answers            []ProgressAnswer `json:"answers"`
	ProgressPercentage float64          `json:"progress_percentage"`
	LastSavedAt        string           `json:"last_saved_at"`
}

// SimulationTemplate is a predefined simulation layout.
type SimulationTemplate struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	QuestionCount int      `json:"question_count"`
	TimeLimit     int      `json:"time_limit"`
	Subjects      []string `json:"subjects"`
	Difficulty    string   `json:"difficulty"`
}

// TemplateCustomizations overrides template fields. Zero values keep the template's.
type TemplateCustomizations struct {
	Title         string `json:"title,omitempty"`
	QuestionCount int    `json:"question_count,omitempty" validate:"gte=0,lte=200"`
	TimeLimit     int    `json:"time_limit,omitempty" validate:"gte=0"`
}

// SubjectSimulationStats summarizes simulations of one subject.
type SubjectSimulationStats struct {
	Subject          string  `json:"subject"`
	SimulationsCount int     `json:"simulations_count"`
	AverageScore     float64 `json:"average_score"`
}

// SimulationStats summarizes every simulation of the current user.
type SimulationStats struct {
	TotalSimulations     int                      `json:"total_simulations"`
	CompletedSimulations int                      `json:"completed_simulations"`
	AverageScore         float64                  `json:"average_score"`
	BestScore            float64                  `json:"best_score"`
	TotalTimeSpent       int                      `json:"total_time_spent"`
	SubjectsPerformance  []SubjectSimulationStats `json:"subjects_performance"`
}

// Simulations is the client for /api/v1/simulations.
type Simulations struct {
	client    httpclient.Client
	validator *validation.Validator
}

// List returns the current user's simulations.
func (s *Simulations) List(ctx context.Context, params ListSimulationsParams) (*Page[Simulation], error) {
	if err := validate(s.validator, params); err != nil {
		return nil, err
	}
	opts := append([]httpclient.RequestOption{httpclient.WithQuery("status", params.Status)}, params.options()...)
	page, err := httpclient.Get[Page[Simulation]](ctx, s.client, simulationsPath, opts...)
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// Get returns one simulation.
func (s *Simulations) Get(ctx context.Context, id string) (*Simulation, error) {
	path, err := resourcePath(simulationsPath, "id", id)
	if err != nil {
		return nil, err
	}
	sim, err := httpclient.Get[Simulation](ctx, s.client, path)
	if err != nil {
		return nil, err
	}
	return &sim, nil
}

// Create creates a simulation.
func (s *Simulations) Create(ctx context.Context, req CreateSimulationRequest) (*Simulation, error) {
	if err := validate(s.validator, req); err != nil {
		return nil, err
	}
	sim, err := httpclient.Post[Simulation](ctx, s.client, simulationsPath, req)
	if err != nil {
		return nil, err
	}
	return &sim, nil
}

// Start marks a simulation as in progress.
func (s *Simulations) Start(ctx context.Context, id string) (*StartedSimulation, error) {
	return postAction[StartedSimulation](ctx, s.client, id, "start")
}

// Submit hands in the answers and returns the graded result.
func (s *Simulations) Submit(ctx context.Context, req SubmitSimulationRequest) (*SimulationResult, error) {
	if err := validate(s.validator, req); err != nil {
		return nil, err
	}
	path, err := resourcePath(simulationsPath, "simulation_id", req.SimulationID, "submit")
	if err != nil {
		return nil, err
	}
	res, err := httpclient.Post[SimulationResult](ctx, s.client, path,
		map[string][]AnswerItem{"answers": req.Answers})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Result returns the result of a finished simulation.
func (s *Simulations) Result(ctx context.Context, id string) (*SimulationResult, error) {
	path, err := resourcePath(simulationsPath, "id", id, "results")
	if err != nil {
		return nil, err
	}
	res, err := httpclient.Get[SimulationResult](ctx, s.client, path)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Pause pauses a running simulation.
func (s *Simulations) Pause(ctx context.Context, id string) (*PausedSimulation, error) {
	return postAction[PausedSimulation](ctx, s.client, id, "pause")
}

// Resume resumes a paused simulation.
func (s *Simulations) Resume(ctx context.Context, id string) (*ResumedSimulation, error) {
	return postAction[ResumedSimulation](ctx, s.client, id, "resume")
}

// SaveProgress stores partial answers. The simulation id in req defaults to id.
func (s *Simulations) SaveProgress(ctx context.Context, id string, req SaveProgressRequest) (*SavedProgress, error) {
	if req.SimulationID == "" {
		req.SimulationID = id
	}
	if err := validate(s.validator, req); err != nil {
		return nil, err
	}
	path, err := resourcePath(simulationsPath, "id", id, "progress")
	if err != nil {
		return nil, err
	}
	res, err := httpclient.Post[SavedProgress](ctx, s.client, path, req)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Progress returns the saved progress of a simulation.
func (s *Simulations) Progress(ctx context.Context, id string) (*SimulationProgress, error) {
	path, err := resourcePath(simulationsPath, "id", id, "progress")
	if err != nil {
		return nil, err
	}
	res, err := httpclient.Get[SimulationProgress](ctx, s.client, path)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Delete removes a simulation.
func (s *Simulations) Delete(ctx context.Context, id string) error {
	path, err := resourcePath(simulationsPath, "id", id)
	if err != nil {
		return err
	}
	_, err = httpclient.Delete[httpclient.NoContent](ctx, s.client, path)
	return err
}

// Templates lists the predefined simulation templates.
func (s *Simulations) Templates(ctx context.Context) ([]SimulationTemplate, error) {
	return httpclient.Get[[]SimulationTemplate](ctx, s.client, simulationsPath+"/templates")
}

// CreateFromTemplate creates a simulation from a template. custom may be nil.
func (s *Simulations) CreateFromTemplate(ctx context.Context, templateID string, custom *TemplateCustomizations) (*Simulation, error) {
	var body any
	if custom != nil {
		if err := validate(s.validator, custom); err != nil {
			return nil, err
		}
		body = custom
	}
	path, err := resourcePath(simulationsPath+"/templates", "template_id", templateID)
	if err != nil {
		return nil, err
	}
	sim, err := httpclient.Post[Simulation](ctx, s.client, path, body)
	if err != nil {
		return nil, err
	}
	return &sim, nil
}

// Stats summarizes the current user's simulations.
func (s *Simulations) Stats(ctx context.Context) (*SimulationStats, error) {
	stats, err := httpclient.Get[SimulationStats](ctx, s.client, simulationsPath+"/stats")
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Active returns the running simulation, or nil when there is none.
func (s *Simulations) Active(ctx context.Context) (*Simulation, error) {
	return httpclient.Get[*Simulation](ctx, s.client, simulationsPath+"/active")
}

// Finish ends a simulation and returns its result.
func (s *Simulations) Finish(ctx context.Context, id string) (*SimulationResult, error) {
	return postAction[SimulationResult](ctx, s.client, id, "finish")
}

// SubmitAnswer answers one question while the simulation is running.
func (s *Simulations) SubmitAnswer(ctx context.Context, id string, answer AnswerItem) (*AnswerResult, error) {
	if err := validate(s.validator, answer); err != nil {
		return nil, err
	}
	path, err := resourcePath(simulationsPath, "id", id, "answer")
	if err != nil {
		return nil, err
	}
	res, err := httpclient.Post[AnswerResult](ctx, s.client, path, answer)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// postAction POSTs to /simulations/{id}/{action} without a body.
func postAction[T any](ctx context.Context, c httpclient.Client, id, action string) (*T, error) {
	path, err := resourcePath(simulationsPath, "id", id, action)
	if err != nil {
		return nil, err
	}
	res, err := httpclient.Post[T](ctx, c, path, nil)
	if err != nil {
		return nil, err
	}
	return &res, nil
}
