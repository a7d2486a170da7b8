package classifier

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mikey/phish-quarantine/internal/config"
	"github.com/mikey/phish-quarantine/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClassifier(t *testing.T) *Classifier {
	t.Helper()
	return New(config.ClassifierConfig{
		ModelPath:   filepath.Join(t.TempDir(), "model.json"),
		MaxFeatures: 5000,
		SplitSeed:   42,
	}, zap.NewNop())
}

// trainingCorpus is a small, clearly separable set of phishing and
// legitimate messages
func trainingCorpus() []core.LabeledRecord {
	phishing := []string{
		"Urgent verify your account password expired click link immediately",
		"Your account suspended verify password now security alert click",
		"Suspicious activity detected verify account credentials immediately click",
		"Account locked urgent action verify password click link now",
		"Security alert unusual login verify your password immediately",
		"Final warning account suspended click verify credentials now",
		"Password expires today verify account immediately click link",
		"Unusual activity verify identity password account suspended click",
		"Claim prize urgent click link verify account password now",
		"Billing problem verify payment password account suspended immediately",
	}
	legitimate := []string{
		"Meeting rescheduled tomorrow afternoon conference room agenda attached",
		"Quarterly report attached numbers look good discuss next week",
		"Lunch tomorrow new restaurant downtown sounds great noon works",
		"Project deadline moved next friday update schedule accordingly thanks",
		"Happy birthday hope celebrate weekend family friends cake",
		"Invoice attached services rendered payment terms thirty days",
		"Vacation photos shared album beach mountains great trip",
		"Code review comments addressed merged branch deployed staging",
		"Team standup moved nine thirty tomorrow same room",
		"Newsletter monthly update product features roadmap community events",
	}

	records := make([]core.LabeledRecord, 0, len(phishing)+len(legitimate))
	for _, text := range phishing {
		records = append(records, core.LabeledRecord{
			Record: core.EmailRecord{Subject: text},
			Label:  1,
		})
	}
	for _, text := range legitimate {
		records = append(records, core.LabeledRecord{
			Record: core.EmailRecord{Subject: text},
			Label:  0,
		})
	}
	return records
}

func TestPredictUntrainedReturnsNeutral(t *testing.T) {
	c := newTestClassifier(t)

	assert.False(t, c.IsTrained())
	prediction := c.Predict(&core.EmailRecord{
		Subject: "Urgent: verify your account",
		Body:    "Click here immediately",
	})
	assert.Equal(t, 0, prediction.Label)
	assert.Equal(t, 0.5, prediction.Score)
}

func TestPredictEmptyTextReturnsNeutral(t *testing.T) {
	c := newTestClassifier(t)
	_, err := c.Train(trainingCorpus())
	require.NoError(t, err)

	prediction := c.Predict(&core.EmailRecord{})
	assert.Equal(t, 0, prediction.Label)
	assert.Equal(t, 0.5, prediction.Score)
}

func TestTrainAndPredict(t *testing.T) {
	c := newTestClassifier(t)

	report, err := c.Train(trainingCorpus())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.True(t, c.IsTrained())
	assert.Equal(t, 16, report.TrainingSamples)
	assert.Equal(t, 4, report.TestSamples)
	assert.GreaterOrEqual(t, report.Accuracy, 0.0)
	assert.LessOrEqual(t, report.Accuracy, 1.0)
	assert.Contains(t, report.Classes, 0)
	assert.Contains(t, report.Classes, 1)
	assert.False(t, report.TrainedAt.IsZero())

	phishy := c.Predict(&core.EmailRecord{
		Subject: "Urgent security alert",
		Body:    "Your account suspended, verify your password immediately, click link",
	})
	assert.Equal(t, 1, phishy.Label)
	assert.Greater(t, phishy.Score, 0.5)

	clean := c.Predict(&core.EmailRecord{
		Subject: "Quarterly report",
		Body:    "Numbers attached, meeting tomorrow afternoon in the conference room",
	})
	assert.Equal(t, 0, clean.Label)
	assert.Less(t, clean.Score, 0.5)
}

func TestTrainIsDeterministic(t *testing.T) {
	first := newTestClassifier(t)
	second := newTestClassifier(t)

	reportA, err := first.Train(trainingCorpus())
	require.NoError(t, err)
	reportB, err := second.Train(trainingCorpus())
	require.NoError(t, err)

	assert.Equal(t, reportA.Accuracy, reportB.Accuracy)
	assert.Equal(t, reportA.Classes, reportB.Classes)

	record := &core.EmailRecord{Subject: "verify your account password urgent"}
	assert.Equal(t, first.Predict(record), second.Predict(record))
}

func TestSplitImbalancedCorpusStaysAPermutation(t *testing.T) {
	// One positive among nine negatives: whenever the shuffle lands the
	// positive in the holdout, the split must move it into training without
	// losing or duplicating any record.
	records := make([]core.LabeledRecord, 0, 10)
	for i := 0; i < 9; i++ {
		records = append(records, core.LabeledRecord{
			Record: core.EmailRecord{Subject: fmt.Sprintf("neg-%d", i)},
			Label:  0,
		})
	}
	records = append(records, core.LabeledRecord{
		Record: core.EmailRecord{Subject: "pos-0"},
		Label:  1,
	})

	for seed := int64(0); seed < 10; seed++ {
		c := New(config.ClassifierConfig{
			ModelPath:   filepath.Join(t.TempDir(), "model.json"),
			MaxFeatures: 5000,
			SplitSeed:   seed,
		}, zap.NewNop())

		train, test := c.split(records)
		assert.Equal(t, len(records), len(train)+len(test), "seed %d", seed)

		seen := make(map[string]int)
		for _, r := range train {
			seen[r.Record.Subject]++
		}
		for _, r := range test {
			seen[r.Record.Subject]++
		}
		for _, r := range records {
			assert.Equal(t, 1, seen[r.Record.Subject],
				"seed %d: record %q lost or duplicated", seed, r.Record.Subject)
		}

		assert.True(t, containsLabel(train, 0), "seed %d", seed)
		assert.True(t, containsLabel(train, 1), "seed %d", seed)
	}
}

func TestTrainRejectsInvalidData(t *testing.T) {
	tests := []struct {
		name    string
		records []core.LabeledRecord
	}{
		{name: "empty", records: nil},
		{name: "single class only", records: []core.LabeledRecord{
			{Record: core.EmailRecord{Subject: "one"}, Label: 1},
			{Record: core.EmailRecord{Subject: "two"}, Label: 1},
		}},
		{name: "out of range label", records: []core.LabeledRecord{
			{Record: core.EmailRecord{Subject: "one"}, Label: 0},
			{Record: core.EmailRecord{Subject: "two"}, Label: 2},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(t)
			report, err := c.Train(tt.records)
			assert.Nil(t, report)
			assert.ErrorIs(t, err, core.ErrInvalidTrainingData)
			assert.False(t, c.IsTrained())
		})
	}
}

func TestFailedTrainKeepsPreviousModel(t *testing.T) {
	c := newTestClassifier(t)
	_, err := c.Train(trainingCorpus())
	require.NoError(t, err)

	record := &core.EmailRecord{Subject: "verify your account password urgent"}
	before := c.Predict(record)

	_, err = c.Train([]core.LabeledRecord{
		{Record: core.EmailRecord{Subject: "only one class"}, Label: 1},
	})
	assert.ErrorIs(t, err, core.ErrInvalidTrainingData)

	assert.True(t, c.IsTrained())
	assert.Equal(t, before, c.Predict(record))
}

func TestModelPersistsAcrossInstances(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.json")
	cfg := config.ClassifierConfig{ModelPath: modelPath, MaxFeatures: 5000, SplitSeed: 42}

	first := New(cfg, zap.NewNop())
	_, err := first.Train(trainingCorpus())
	require.NoError(t, err)

	record := &core.EmailRecord{Subject: "account suspended verify password immediately"}
	expected := first.Predict(record)

	second := New(cfg, zap.NewNop())
	assert.False(t, second.IsTrained())
	second.LoadPersisted()
	assert.True(t, second.IsTrained())
	assert.Equal(t, expected, second.Predict(record))
}

func TestLoadPersistedMissingArtifact(t *testing.T) {
	c := newTestClassifier(t)
	c.LoadPersisted()
	assert.False(t, c.IsTrained())
}

func TestLoadPersistedCorruptArtifact(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(modelPath, []byte("not json at all"), 0644))

	c := New(config.ClassifierConfig{ModelPath: modelPath, MaxFeatures: 5000, SplitSeed: 42}, zap.NewNop())
	c.LoadPersisted()
	assert.False(t, c.IsTrained())
}

func TestLoadPersistedUnknownVersion(t *testing.T) {
	modelPath := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(modelPath, []byte(`{"artifact_version": 99, "model": {}}`), 0644))

	c := New(config.ClassifierConfig{ModelPath: modelPath, MaxFeatures: 5000, SplitSeed: 42}, zap.NewNop())
	c.LoadPersisted()
	assert.False(t, c.IsTrained())
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "lowercases and splits",
			text:     "Verify YOUR Account",
			expected: []string{"verify", "account"},
		},
		{
			name:     "drops stop words and short tokens",
			text:     "a click on the link I sent",
			expected: []string{"click", "link", "sent"},
		},
		{
			name:     "splits on punctuation",
			text:     "urgent!verify-now,please",
			expected: []string{"urgent", "verify", "now", "please"},
		},
		{
			name:     "empty input",
			text:     "",
			expected: []string{},
		},
		{
			name:     "keeps digits",
			text:     "code 123456 expires",
			expected: []string{"code", "123456", "expires"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tokenize(tt.text))
		})
	}
}
