package services

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examprep/client-go/internal/testutil"
)

const simulationsRoute = "/api/v1/simulations"

func sampleSimulation() map[string]any {
	return map[string]any{
		"id":         testutil.TestSimulationID,
		"title":      "ENEM 2023 - Matemática",
		"questions":  []any{sampleQuestion()},
		"timeLimit":  90,
		"status":     SimulationInProgress,
		"startedAt":  "2024-03-01T10:00:00Z",
		"created_at": "2024-03-01T09:59:00Z",
	}
}

func sampleResult() map[string]any {
	return map[string]any{
		"simulation_id":   testutil.TestSimulationID,
		"score":           80.0,
		"total_questions": 10,
		"correct_answers": 8,
		"time_spent":      3600,
		"subject_performance": []any{
			map[string]any{"subject": "math", "total": 10, "correct": 8, "accuracy": 0.8},
		},
		"detailed_results": []any{
			map[string]any{"question_id": testutil.TestQuestionID, "is_correct": true, "selected_option": 1, "correct_answer": 1},
		},
	}
}

func TestSimulationsList(t *testing.T) {
	svc, backend := newTestServices(t)
	backend.JSON(http.MethodGet, simulationsRoute, http.StatusOK, map[string]any{
		"data":  []any{sampleSimulation()},
		"total": 1,
	})

	page, err := svc.Simulations.List(context.Background(), ListSimulationsParams{
		Status:     SimulationCompleted,
		PageParams: PageParams{Limit: 5},
	})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	sim := page.Data[0]
	assert.Equal(t, 90, sim.TimeLimit)
	assert.Equal(t, "2024-03-01T10:00:00Z", sim.StartedAt)
	assert.Len(t, sim.Questions, 1)
	assert.Nil(t, sim.Score)
	assert.Equal(t, "limit=5&status=completed", backend.LastRequest().RawQuery)
}

func TestSimulationsRejectInvalidInput(t *testing.T) {
	svc, backend := newTestServices(t)
	ctx := context.Background()

	_, err := svc.Simulations.List(ctx, ListSimulationsParams{Status: "archived"})
	herr := requireValidationError(t, err, "status")
	assert.Equal(t, "status must be one of: pending, in_progress, completed", herr.Message)

	_, err = svc.Simulations.Create(ctx, CreateSimulationRequest{QuestionCount: 10, TimeLimit: 60})
	requireValidationError(t, err, "title")

	_, err = svc.Simulations.Create(ctx, CreateSimulationRequest{Title: "x", QuestionCount: 500, TimeLimit: 60})
	requireValidationError(t, err, "questionCount")

	_, err = svc.Simulations.Submit(ctx, SubmitSimulationRequest{SimulationID: testutil.TestSimulationID})
	requireValidationError(t, err, "answers")

	_, err = svc.Simulations.Submit(ctx, SubmitSimulationRequest{
		SimulationID: testutil.TestSimulationID,
		Answers:      []AnswerItem{{SelectedOption: 1}},
	})
	requireValidationError(t, err, "answers[0].question_id")

	_, err = svc.Simulations.Submit(ctx, SubmitSimulationRequest{Answers: []AnswerItem{{QuestionID: "q", SelectedOption: 1}}})
	requireValidationError(t, err, "simulation_id")

	_, err = svc.Simulations.Start(ctx, "")
	requireValidationError(t, err, "id")

	_, err = svc.Simulations.CreateFromTemplate(ctx, "tpl", &TemplateCustomizations{QuestionCount: 201})
	requireValidationError(t, err, "question_count")

	_, err = svc.Simulations.CreateFromTemplate(ctx, "", nil)
	requireValidationError(t, err, "template_id")

	_, err = svc.Simulations.SaveProgress(ctx, "", SaveProgressRequest{})
	requireValidationError(t, err, "id")

	assert.Empty(t, backend.Requests())
}

func TestSimulationsCreate(t *testing.T) {
	svc, backend := newTestServices(t)
	backend.Handle(http.MethodPost, simulationsRoute, func(c echo.Context) error {
		sim := sampleSimulation()
		sim["status"] = SimulationPending
		return c.JSON(http.StatusCreated, sim)
	})

	sim, err := svc.Simulations.Create(context.Background(), CreateSimulationRequest{
		Title:         "Treino rápido",
		QuestionCount: 10,
		TimeLimit:     30,
	})
	require.NoError(t, err)
	assert.Equal(t, SimulationPending, sim.Status)
	assert.JSONEq(t, `{"title":"Treino rápido","questionCount":10,"timeLimit":30}`, string(backend.LastRequest().Body))
}

func TestSimulationsLifecycleActions(t *testing.T) {
	svc, backend := newTestServices(t)
	backend.JSON(http.MethodPost, simulationsRoute+"/:id/start", http.StatusOK, map[string]any{
		"simulation_id": testutil.TestSimulationID, "started_at": "2024-03-01T10:00:00Z", "time_limit": 90,
	})
	backend.JSON(http.MethodPost, simulationsRoute+"/:id/pause", http.StatusOK, map[string]any{
		"simulation_id": testutil.TestSimulationID, "remaining_time": 1800,
	})
	backend.JSON(http.MethodPost, simulationsRoute+"/:id/resume", http.StatusOK, map[string]any{
		"simulation_id": testutil.TestSimulationID, "remaining_time": 1800,
	})
	backend.JSON(http.MethodPost, simulationsRoute+"/:id/finish", http.StatusOK, sampleResult())
	ctx := context.Background()

	started, err := svc.Simulations.Start(ctx, testutil.TestSimulationID)
	require.NoError(t, err)
	assert.Equal(t, 90, started.TimeLimit)

	paused, err := svc.Simulations.Pause(ctx, testutil.TestSimulationID)
	require.NoError(t, err)
	assert.Equal(t, 1800, paused.RemainingTime)

	resumed, err := svc.Simulations.Resume(ctx, testutil.TestSimulationID)
	require.NoError(t, err)
	assert.Equal(t, 1800, resumed.RemainingTime)

	result, err := svc.Simulations.Finish(ctx, testutil.TestSimulationID)
	require.NoError(t, err)
	assert.Equal(t, 8, result.CorrectAnswers)

	reqs := backend.Requests()
	require.Len(t, reqs, 4)
	for i, action := range []string{"start", "pause", "resume", "finish"} {
		assert.Equal(t, http.MethodPost, reqs[i].Method)
		assert.Equal(t, simulationsRoute+"/"+testutil.TestSimulationID+"/"+action, reqs[i].Path)
		assert.Empty(t, reqs[i].Body)
	}
}

func TestSimulationsSubmit(t *testing.T) {
	svc, backend := newTestServices(t)
	backend.JSON(http.MethodPost, simulationsRoute+"/:id/submit", http.StatusOK, sampleResult())

	result, err := svc.Simulations.Submit(context.Background(), SubmitSimulationRequest{
		SimulationID: testutil.TestSimulationID,
		Answers: []AnswerItem{
			{QuestionID: testutil.TestQuestionID, SelectedOption: 1},
			{QuestionID: "q-2", SelectedOption: 0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 80.0, result.Score)
	require.Len(t, result.SubjectPerformance, 1)
	assert.Equal(t, 0.8, result.SubjectPerformance[0].Accuracy)
	require.Len(t, result.DetailedResults, 1)
	assert.True(t, result.DetailedResults[0].IsCorrect)

	req := backend.LastRequest()
	assert.Equal(t, simulationsRoute+"/"+testutil.TestSimulationID+"/submit", req.Path)
	assert.JSONEq(t, `{"answers":[
		{"question_id":"`+testutil.TestQuestionID+`","selected_option":1},
		{"question_id":"q-2","selected_option":0}
	]}`, string(req.Body))
}

func TestSimulationsResultAndProgress(t *testing.T) {
	svc, backend := newTestServices(t)
	backend.JSON(http.MethodGet, simulationsRoute+"/:id/results", http.StatusOK, sampleResult())
	backend.JSON(http.MethodPost, simulationsRoute+"/:id/progress", http.StatusOK, map[string]any{
		"simulation_id": testutil.TestSimulationID, "saved_at": "2024-03-01T10:30:00Z", "progress_percentage": 50.0,
	})
	backend.JSON(http.MethodGet, simulationsRoute+"/:id/progress", http.StatusOK, map[string]any{
		"simulation_id": testutil.TestSimulationID,
		"answers": []any{
			map[string]any{"question_id": "q-1", "selected_option": 3},
			map[string]any{"question_id": "q-2"},
		},
		"progress_percentage": 50.0,
	})
	ctx := context.Background()

	result, err := svc.Simulations.Result(ctx, testutil.TestSimulationID)
	require.NoError(t, err)
	assert.Equal(t, 10, result.TotalQuestions)

	saved, err := svc.Simulations.SaveProgress(ctx, testutil.TestSimulationID, SaveProgressRequest{
		CurrentQuestion: 5,
		Answers:         []AnswerItem{{QuestionID: "q-1", SelectedOption: 3}},
		TimeSpent:       1200,
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, saved.ProgressPercentage)
	assert.JSONEq(t, `{
		"simulation_id":"`+testutil.TestSimulationID+`",
		"current_question":5,
		"answers":[{"question_id":"q-1","selected_option":3}],
		"time_spent":1200
	}`, string(backend.LastRequest().Body))

	progress, err := svc.Simulations.Progress(ctx, testutil.TestSimulationID)
	require.NoError(t, err)
	require.Len(t, progress.Answers, 2)
	require.NotNil(t, progress.Answers[0].SelectedOption)
	assert.Equal(t, 3, *progress.Answers[0].SelectedOption)
	assert.Nil(t, progress.Answers[1].SelectedOption)
}

func TestSimulationsTemplates(t *testing.T) {
	svc, backend := newTestServices(t)
	backend.JSON(http.MethodGet, simulationsRoute+"/templates", http.StatusOK, []any{
		map[string]any{"id": "enem-full", "name": "ENEM completo", "question_count": 180, "time_limit": 330},
	})
	backend.JSON(http.MethodPost, simulationsRoute+"/templates/:id", http.StatusCreated, sampleSimulation())
	ctx := context.Background()

	templates, err := svc.Simulations.Templates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, 180, templates[0].QuestionCount)

	_, err = svc.Simulations.CreateFromTemplate(ctx, "enem-full", nil)
	require.NoError(t, err)
	req := backend.LastRequest()
	assert.Equal(t, simulationsRoute+"/templates/enem-full", req.Path)
	assert.Empty(t, req.Body)

	_, err = svc.Simulations.CreateFromTemplate(ctx, "enem-full", &TemplateCustomizations{QuestionCount: 45})
	require.NoError(t, err)
	assert.JSONEq(t, `{"question_count":45}`, string(backend.LastRequest().Body))
}

func TestSimulationsActive(t *testing.T) {
	svc, backend := newTestServices(t)
	var active atomic.Bool
	active.Store(true)
	backend.Handle(http.MethodGet, simulationsRoute+"/active", func(c echo.Context) error {
		if !active.Load() {
			return c.JSONBlob(http.StatusOK, []byte("null"))
		}
		return c.JSON(http.StatusOK, sampleSimulation())
	})
	ctx := context.Background()

	sim, err := svc.Simulations.Active(ctx)
	require.NoError(t, err)
	require.NotNil(t, sim)
	assert.Equal(t, testutil.TestSimulationID, sim.ID)

	active.Store(false)
	sim, err = svc.Simulations.Active(ctx)
	require.NoError(t, err)
	assert.Nil(t, sim)
}

func TestSimulationsStatsDeleteAndAnswer(t *testing.T) {
	svc, backend := newTestServices(t)
	backend.JSON(http.MethodGet, simulationsRoute+"/stats", http.StatusOK, map[string]any{
		"total_simulations": 4, "completed_simulations": 3, "best_score": 92.5,
	})
	backend.Handle(http.MethodDelete, simulationsRoute+"/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	backend.JSON(http.MethodPost, simulationsRoute+"/:id/answer", http.StatusOK, map[string]any{"is_correct": true, "correct_answer": 2})
	ctx := context.Background()

	stats, err := svc.Simulations.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.CompletedSimulations)
	assert.Equal(t, 92.5, stats.BestScore)

	require.NoError(t, svc.Simulations.Delete(ctx, testutil.TestSimulationID))
	assert.Equal(t, http.MethodDelete, backend.LastRequest().Method)

	res, err := svc.Simulations.SubmitAnswer(ctx, testutil.TestSimulationID, AnswerItem{QuestionID: "q-1", SelectedOption: 2})
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.JSONEq(t, `{"question_id":"q-1","selected_option":2}`, string(backend.LastRequest().Body))
}
