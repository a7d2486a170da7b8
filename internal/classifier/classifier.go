package classifier

import (
	"fmt"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/mikey/phish-quarantine/internal/config"
	"github.com/mikey/phish-quarantine/internal/core"
	"go.uber.org/zap"
)

// Classifier is the trainable phishing text classifier.
//
// The fitted model occupies a single slot guarded by a read-write mutex:
// Predict takes a read lock so concurrent predictions never block each
// other, and Train swaps the slot in one write so readers observe either
// the old model or the new one, never a partial state.
type Classifier struct {
	modelPath   string
	maxFeatures int
	splitSeed   int64
	logger      *zap.Logger

	mu    sync.RWMutex
	model *model // nil until trained or loaded
}

// New creates a classifier. It starts untrained; call LoadPersisted to pick
// up a previously saved model.
func New(cfg config.ClassifierConfig, logger *zap.Logger) *Classifier {
	return &Classifier{
		modelPath:   cfg.ModelPath,
		maxFeatures: cfg.MaxFeatures,
		splitSeed:   cfg.SplitSeed,
		logger:      logger,
	}
}

// LoadPersisted loads the saved model artifact if one exists. Best-effort:
// a missing or corrupt artifact leaves the classifier untrained.
func (c *Classifier) LoadPersisted() {
	m, trainedAt, err := loadArtifact(c.modelPath)
	if err != nil {
		if os.IsNotExist(err) {
			c.logger.Warn("Model artifact not found, starting untrained",
				zap.String("path", c.modelPath))
		} else {
			c.logger.Warn("Failed to load model artifact, starting untrained",
				zap.String("path", c.modelPath),
				zap.Error(err))
		}
		return
	}

	c.mu.Lock()
	c.model = m
	c.mu.Unlock()

	c.logger.Info("Model loaded",
		zap.String("path", c.modelPath),
		zap.Int("vocabulary_size", len(m.Vocabulary)),
		zap.Time("trained_at", trainedAt))
}

// IsTrained reports whether a model is currently available
func (c *Classifier) IsTrained() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model != nil
}

// Predict returns the phishing label and probability for an email.
// Without a trained model, or for empty text, it returns the neutral
// (0, 0.5): maximal uncertainty, never an error.
func (c *Classifier) Predict(record *core.EmailRecord) core.Prediction {
	c.mu.RLock()
	m := c.model
	c.mu.RUnlock()

	if m == nil {
		return core.Prediction{Label: 0, Score: 0.5}
	}

	tokens := tokenize(record.Text())
	if len(tokens) == 0 {
		return core.Prediction{Label: 0, Score: 0.5}
	}

	label, score := m.predict(tokens)
	return core.Prediction{Label: label, Score: score}
}

// Train fits a new model on 80% of the labeled records and evaluates it on
// the remaining 20%. The split is shuffled with a fixed seed so training is
// reproducible. On success the persisted artifact and the in-memory model
// are replaced; on any failure the previous model stays in effect.
func (c *Classifier) Train(records []core.LabeledRecord) (*core.TrainingReport, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no records provided", core.ErrInvalidTrainingData)
	}

	var positives, negatives int
	for _, r := range records {
		switch r.Label {
		case 0:
			negatives++
		case 1:
			positives++
		default:
			return nil, fmt.Errorf("%w: label must be 0 or 1, got %d",
				core.ErrInvalidTrainingData, r.Label)
		}
	}
	if positives == 0 || negatives == 0 {
		return nil, fmt.Errorf("%w: need at least one record of each label (%d positive, %d negative)",
			core.ErrInvalidTrainingData, positives, negatives)
	}

	trainSet, testSet := c.split(records)

	trainDocs := make([][]string, len(trainSet))
	trainLabels := make([]int, len(trainSet))
	for i, r := range trainSet {
		trainDocs[i] = tokenize(r.Record.Text())
		trainLabels[i] = r.Label
	}

	trainedAt := time.Now()
	m := fitModel(trainDocs, trainLabels, c.maxFeatures)

	report := evaluate(m, testSet)
	report.TrainingSamples = len(trainSet)
	report.TestSamples = len(testSet)
	report.TrainedAt = trainedAt

	if err := saveArtifact(c.modelPath, m, trainedAt); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.model = m
	c.mu.Unlock()

	c.logger.Info("Model trained",
		zap.Float64("accuracy", report.Accuracy),
		zap.Int("training_samples", report.TrainingSamples),
		zap.Int("test_samples", report.TestSamples),
		zap.Int("vocabulary_size", len(m.Vocabulary)))

	return report, nil
}

// split shuffles the records deterministically and carves off 20% as the
// holdout set. Both classes are guaranteed present in the training
// partition by swapping records back from the holdout when needed.
func (c *Classifier) split(records []core.LabeledRecord) (train, test []core.LabeledRecord) {
	shuffled := make([]core.LabeledRecord, len(records))
	copy(shuffled, records)

	rng := rand.New(rand.NewSource(c.splitSeed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	testSize := len(shuffled) / 5
	if testSize < 1 && len(shuffled) > 1 {
		testSize = 1
	}
	split := len(shuffled) - testSize
	// Cap train's capacity and copy test so the swap below can never write
	// through into the other partition
	train = shuffled[:split:split]
	test = append([]core.LabeledRecord(nil), shuffled[split:]...)

	for _, label := range []int{0, 1} {
		if containsLabel(train, label) {
			continue
		}
		for i := range test {
			if test[i].Label == label {
				train = append(train, test[i])
				test = append(test[:i], test[i+1:]...)
				break
			}
		}
	}

	return train, test
}

func containsLabel(records []core.LabeledRecord, label int) bool {
	for _, r := range records {
		if r.Label == label {
			return true
		}
	}
	return false
}

// evaluate computes holdout accuracy and per-class precision/recall
func evaluate(m *model, testSet []core.LabeledRecord) *core.TrainingReport {
	report := &core.TrainingReport{
		Classes: map[int]core.ClassMetrics{},
	}
	if len(testSet) == 0 {
		return report
	}

	// confusion[actual][predicted]
	var confusion [2][2]int
	correct := 0
	for _, r := range testSet {
		predicted, _ := m.predict(tokenize(r.Record.Text()))
		confusion[r.Label][predicted]++
		if predicted == r.Label {
			correct++
		}
	}
	report.Accuracy = float64(correct) / float64(len(testSet))

	for _, label := range []int{0, 1} {
		truePos := confusion[label][label]
		predictedPos := confusion[0][label] + confusion[1][label]
		actualPos := confusion[label][0] + confusion[label][1]

		metrics := core.ClassMetrics{Support: actualPos}
		if predictedPos > 0 {
			metrics.Precision = float64(truePos) / float64(predictedPos)
		}
		if actualPos > 0 {
			metrics.Recall = float64(truePos) / float64(actualPos)
		}
		report.Classes[label] = metrics
	}

	return report
}
