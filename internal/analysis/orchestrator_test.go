package analysis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"apr-manager/internal/apperr"
	"apr-manager/internal/models"
	"apr-manager/internal/reasoning"
)

type fakeInvoker struct {
	content  string
	err      error
	messages []reasoning.Message
	format   *reasoning.ResponseFormat
}

func (f *fakeInvoker) Invoke(_ context.Context, messages []reasoning.Message, format *reasoning.ResponseFormat) (string, error) {
	f.messages = messages
	f.format = format
	return f.content, f.err
}

type fakeStore struct {
	saved     datatypes.JSON
	saveCalls int
	err       error
}

func (f *fakeStore) SaveAprAnalysis(_, _ uint, analysis datatypes.JSON) error {
	f.saveCalls++
	f.saved = analysis
	return f.err
}

func testApr() *models.Apr {
	apr := &models.Apr{
		CompanyID:           1,
		Title:               "Line 3 maintenance",
		ActivityDescription: "Replace the gearbox on conveyor line 3",
	}
	apr.ID = 42
	return apr
}

func TestAnalyzePersistsNormalizedResult(t *testing.T) {
	invoker := &fakeInvoker{content: conformingPayload}
	store := &fakeStore{}
	o := NewOrchestrator(invoker, store, time.Second)

	responses := []models.AprResponse{
		{QuestionText: "Does the activity involve hot work?", Answer: "yes"},
	}
	images := []models.AprImage{
		{ImageURL: "https://cdn.example.com/a.jpg", Position: 0},
		{ImageURL: "https://cdn.example.com/b.jpg", Position: 1},
	}

	result, err := o.Analyze(context.Background(), testApr(), responses, images, models.LangEnUS)
	require.NoError(t, err)
	require.Len(t, result.Risks, 2)

	// derived fields were recomputed before persisting
	assert.Equal(t, 12, result.Risks[0].RiskLevel)
	assert.Equal(t, 1, store.saveCalls)
	assert.Contains(t, string(store.saved), `"riskLevel":12`)

	// strict schema conformance was requested
	require.NotNil(t, invoker.format)
	assert.Equal(t, "json_schema", invoker.format.Type)
	assert.True(t, invoker.format.JSONSchema.Strict)

	// image references travel as content parts, not just a count
	require.Len(t, invoker.messages, 2)
	parts, ok := invoker.messages[1].Content.([]reasoning.Part)
	require.True(t, ok)
	urls := 0
	for _, p := range parts {
		if p.Type == "image_url" {
			urls++
		}
	}
	assert.Equal(t, 2, urls)
}

func TestAnalyzeServiceFailureIsAnalysisError(t *testing.T) {
	invoker := &fakeInvoker{err: errors.New("connection refused")}
	store := &fakeStore{}
	o := NewOrchestrator(invoker, store, time.Second)

	_, err := o.Analyze(context.Background(), testApr(), nil, nil, models.LangPtBR)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAnalysis, apperr.KindOf(err))
	assert.Zero(t, store.saveCalls, "a failed call must not touch the stored analysis")
}

func TestAnalyzeNonConformingReplyIsNeverPersisted(t *testing.T) {
	invoker := &fakeInvoker{content: `{"risks": "not an array"}`}
	store := &fakeStore{}
	o := NewOrchestrator(invoker, store, time.Second)

	_, err := o.Analyze(context.Background(), testApr(), nil, nil, models.LangEnUS)
	require.Error(t, err)
	assert.Equal(t, apperr.KindAnalysis, apperr.KindOf(err))

	var se *SchemaError
	assert.True(t, errors.As(err, &se))
	assert.Zero(t, store.saveCalls)
}

func TestDescribeImagesDegradesToEmptyList(t *testing.T) {
	o := NewOrchestrator(&fakeInvoker{err: errors.New("boom")}, &fakeStore{}, time.Second)

	obs := o.DescribeImages(context.Background(), []models.AprImage{{ImageURL: "x"}}, models.LangEnUS)
	assert.Empty(t, obs)

	// and trivially for no images, without calling the service
	obs = o.DescribeImages(context.Background(), nil, models.LangEnUS)
	assert.Empty(t, obs)
}

func TestDescribeImagesParsesBulletedObservations(t *testing.T) {
	invoker := &fakeInvoker{content: "- Missing machine guard on press\n* Operator without gloves\n\n• Blocked fire exit"}
	o := NewOrchestrator(invoker, &fakeStore{}, time.Second)

	obs := o.DescribeImages(context.Background(), []models.AprImage{{ImageURL: "x"}}, models.LangEnUS)
	require.Len(t, obs, 3)
	assert.Equal(t, "Missing machine guard on press", obs[0])
	assert.Equal(t, "Blocked fire exit", obs[2])
}
