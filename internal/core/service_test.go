package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIngestor struct {
	records []EmailRecord
}

func (f *fakeIngestor) Fetch(_ context.Context) []EmailRecord {
	return f.records
}

type fakeRuleScorer struct {
	score   float64
	reasons []string
}

func (f *fakeRuleScorer) Score(_ *EmailRecord) (float64, []string) {
	return f.score, f.reasons
}

type fakeClassifier struct {
	prediction Prediction
}

func (f *fakeClassifier) Predict(_ *EmailRecord) Prediction {
	return f.prediction
}

func (f *fakeClassifier) Train(_ []LabeledRecord) (*TrainingReport, error) {
	return nil, errors.New("not implemented")
}

type fakeStore struct {
	created   []EmailRecord
	createErr error
	nextID    int64
}

func (f *fakeStore) Create(_ context.Context, record *EmailRecord) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.nextID++
	f.created = append(f.created, *record)
	return f.nextID, nil
}

func (f *fakeStore) Release(_ context.Context, _ int64) (bool, error) { return false, nil }
func (f *fakeStore) Delete(_ context.Context, _ int64) (bool, error)  { return false, nil }
func (f *fakeStore) GetByID(_ context.Context, _ int64) (*EmailRecord, error) {
	return nil, nil
}
func (f *fakeStore) ListByStatus(_ context.Context, _ int, _ EmailStatus) ([]EmailRecord, error) {
	return nil, nil
}
func (f *fakeStore) Stats(_ context.Context) (*QuarantineStats, error) { return nil, nil }
func (f *fakeStore) RecentActivity(_ context.Context, _ int) ([]ActivitySummary, error) {
	return nil, nil
}

func newTestService(
	ingestor EmailIngestor,
	rules RuleScorer,
	classifier Classifier,
	store QuarantineRepository,
	threshold float64,
	whitelisted []string,
) *PipelineService {
	return NewPipelineService(
		ingestor,
		rules,
		classifier,
		NewScoreCombiner(0.5, 0.5),
		store,
		zap.NewNop(),
		threshold,
		whitelisted,
	)
}

func TestProcessRecordQuarantinesAboveThreshold(t *testing.T) {
	store := &fakeStore{}
	service := newTestService(
		&fakeIngestor{},
		&fakeRuleScorer{score: 0.8, reasons: []string{"lookalike domain"}},
		&fakeClassifier{prediction: Prediction{Label: 0, Score: 0.5}},
		store,
		0.5,
		nil,
	)

	record := &EmailRecord{
		SourceID: "msg-1",
		Sender:   "security@payp4l.com",
		Subject:  "Urgent: verify your account",
	}

	quarantined, err := service.ProcessRecord(context.Background(), record)
	require.NoError(t, err)
	assert.True(t, quarantined)

	assert.Equal(t, 0.8, record.RuleScore)
	assert.Equal(t, 0.5, record.MLScore)
	assert.InDelta(t, 0.65, record.CombinedScore, 1e-9)
	assert.Equal(t, RiskMedium, RiskLevelForScore(record.CombinedScore))
	assert.Equal(t, StatusQuarantined, record.Status)
	assert.Equal(t, int64(1), record.ID)
	assert.Equal(t, []string{"lookalike domain"}, record.DetectionReasons)

	require.Len(t, store.created, 1)
	assert.Equal(t, "msg-1", store.created[0].SourceID)
}

func TestProcessRecordSkipsBelowThreshold(t *testing.T) {
	store := &fakeStore{}
	service := newTestService(
		&fakeIngestor{},
		&fakeRuleScorer{score: 0.1},
		&fakeClassifier{prediction: Prediction{Label: 0, Score: 0.2}},
		store,
		0.5,
		nil,
	)

	record := &EmailRecord{SourceID: "msg-2", Sender: "newsletter@example.com"}

	quarantined, err := service.ProcessRecord(context.Background(), record)
	require.NoError(t, err)
	assert.False(t, quarantined)
	assert.Empty(t, store.created)

	// Scoring fields are filled in even when nothing is stored
	assert.InDelta(t, 0.15, record.CombinedScore, 1e-9)
}

func TestProcessRecordWhitelistBypass(t *testing.T) {
	store := &fakeStore{}
	service := newTestService(
		&fakeIngestor{},
		&fakeRuleScorer{score: 1.0, reasons: []string{"would fire"}},
		&fakeClassifier{prediction: Prediction{Label: 1, Score: 1.0}},
		store,
		0.5,
		[]string{"trusted-partner.com"},
	)

	record := &EmailRecord{Sender: "alerts@Trusted-Partner.COM"}

	quarantined, err := service.ProcessRecord(context.Background(), record)
	require.NoError(t, err)
	assert.False(t, quarantined)
	assert.Empty(t, store.created)
	assert.Zero(t, record.CombinedScore)
}

func TestProcessRecordPropagatesStorageError(t *testing.T) {
	storeErr := errors.New("disk full")
	service := newTestService(
		&fakeIngestor{},
		&fakeRuleScorer{score: 0.9},
		&fakeClassifier{prediction: Prediction{Label: 1, Score: 0.9}},
		&fakeStore{createErr: storeErr},
		0.5,
		nil,
	)

	quarantined, err := service.ProcessRecord(context.Background(), &EmailRecord{SourceID: "msg-3"})
	assert.False(t, quarantined)
	assert.ErrorIs(t, err, storeErr)
}

func TestRunCycleCountsOutcomes(t *testing.T) {
	store := &fakeStore{}
	service := newTestService(
		&fakeIngestor{records: []EmailRecord{
			{SourceID: "a", Sender: "phisher@bad.com"},
			{SourceID: "b", Sender: "friend@ok.com"},
			{SourceID: "c", Sender: "alerts@safe.com"},
		}},
		&fakeRuleScorer{score: 0.8},
		&fakeClassifier{prediction: Prediction{Label: 1, Score: 0.8}},
		store,
		0.5,
		[]string{"safe.com"},
	)

	result := service.RunCycle(context.Background())
	assert.Equal(t, 3, result.Fetched)
	assert.Equal(t, 2, result.Quarantined)
	assert.Equal(t, 0, result.Errors)
	assert.Len(t, store.created, 2)
}

func TestRunCycleContinuesPastFailures(t *testing.T) {
	service := newTestService(
		&fakeIngestor{records: []EmailRecord{
			{SourceID: "a"},
			{SourceID: "b"},
		}},
		&fakeRuleScorer{score: 0.9},
		&fakeClassifier{prediction: Prediction{Label: 1, Score: 0.9}},
		&fakeStore{createErr: errors.New("storage down")},
		0.5,
		nil,
	)

	result := service.RunCycle(context.Background())
	assert.Equal(t, 2, result.Fetched)
	assert.Equal(t, 0, result.Quarantined)
	assert.Equal(t, 2, result.Errors)
}

func TestRunCycleEmptyBatch(t *testing.T) {
	service := newTestService(
		&fakeIngestor{},
		&fakeRuleScorer{},
		&fakeClassifier{prediction: Prediction{Label: 0, Score: 0.5}},
		&fakeStore{},
		0.5,
		nil,
	)

	result := service.RunCycle(context.Background())
	assert.Zero(t, result.Fetched)
	assert.Zero(t, result.Quarantined)
	assert.Zero(t, result.Errors)
}
