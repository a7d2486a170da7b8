package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/mikey/phish-quarantine/internal/classifier"
	"github.com/mikey/phish-quarantine/internal/config"
	"github.com/mikey/phish-quarantine/internal/core"
	"github.com/mikey/phish-quarantine/internal/logging"
	"github.com/mikey/phish-quarantine/internal/rules"
	"github.com/mikey/phish-quarantine/internal/whitelist"
	"go.uber.org/zap"
)

var (
	// Classifier flags
	modelPath   = flag.String("model-path", "data/models/phishing_model.json", "Path to the persisted model artifact")
	maxFeatures = flag.Int("max-features", 5000, "Maximum vocabulary size when training")
	splitSeed   = flag.Int64("split-seed", 42, "Seed for the deterministic train/holdout split")

	// Scoring flags
	ruleWeight       = flag.Float64("rule-weight", 0.5, "Weight of the rule score in the combined score")
	mlWeight         = flag.Float64("ml-weight", 0.5, "Weight of the classifier score in the combined score")
	threshold        = flag.Float64("threshold", 0.5, "Quarantine threshold on the combined score")
	trustedDomains   = flag.String("trusted-domains", "", "Comma-separated trusted brand domains for lookalike detection")
	whitelistDomains = flag.String("whitelist", "", "Comma-separated list of whitelisted sender domains")

	// Input flags
	inputFile  = flag.String("file", "", "Input email file (use stdin if not specified)")
	trainFile  = flag.String("train", "", "Train the classifier from a labeled JSONL corpus instead of analyzing")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog    = flag.Bool("json-log", false, "Output logs in JSON format")
	configFile = flag.String("config", "", "Path to config file (overrides command line flags)")
)

// trainingExample is one line of the labeled JSONL corpus
type trainingExample struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Label   int    `json:"label"`
}

func main() {
	flag.Parse()

	var cfg *config.Config
	var err error

	// Initialize logger
	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Load configuration from file if specified
	if *configFile != "" {
		cfg, err = config.New()
		if err != nil {
			logger.Fatal("Failed to load configuration", zap.Error(err))
		}
		logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
	} else {
		// Create config from command line flags
		cfg = createConfigFromFlags()
	}

	textClassifier := classifier.New(cfg.GetClassifier(), logger)
	textClassifier.LoadPersisted()

	if *trainFile != "" {
		trainFromCorpus(textClassifier, *trainFile, logger)
		return
	}

	analyzeMessage(cfg, textClassifier, logger)
}

// trainFromCorpus fits the classifier from a JSONL file of labeled
// examples and prints the training report
func trainFromCorpus(textClassifier *classifier.Classifier, path string, logger *zap.Logger) {
	file, err := os.Open(path)
	if err != nil {
		logger.Fatal("Failed to open training corpus", zap.Error(err), zap.String("file", path))
	}
	defer file.Close()

	records := make([]core.LabeledRecord, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		var example trainingExample
		if err := json.Unmarshal([]byte(text), &example); err != nil {
			logger.Warn("Skipping malformed training line",
				zap.Int("line", line),
				zap.Error(err))
			continue
		}
		records = append(records, core.LabeledRecord{
			Record: core.EmailRecord{
				Sender:  example.Sender,
				Subject: example.Subject,
				Body:    example.Body,
			},
			Label: example.Label,
		})
	}
	if err := scanner.Err(); err != nil {
		logger.Fatal("Failed to read training corpus", zap.Error(err))
	}

	startTime := time.Now()
	report, err := textClassifier.Train(records)
	if err != nil {
		logger.Fatal("Training failed", zap.Error(err))
	}

	fmt.Printf("\n=== Training Report ===\n")
	fmt.Printf("Accuracy: %.4f\n", report.Accuracy)
	fmt.Printf("Training samples: %d\n", report.TrainingSamples)
	fmt.Printf("Holdout samples: %d\n", report.TestSamples)
	for _, label := range []int{0, 1} {
		name := "legitimate"
		if label == 1 {
			name = "phishing"
		}
		metrics := report.Classes[label]
		fmt.Printf("Class %d (%s): precision %.4f, recall %.4f, support %d\n",
			label, name, metrics.Precision, metrics.Recall, metrics.Support)
	}
	fmt.Printf("Training time: %v\n", time.Since(startTime))
}

// analyzeMessage scores one RFC-822 message from file or stdin and prints
// the full breakdown
func analyzeMessage(cfg *config.Config, textClassifier *classifier.Classifier, logger *zap.Logger) {
	whitelistChecker := whitelist.NewChecker(cfg.GetScoring().WhitelistedDomains, logger)
	engine := rules.NewEngine(cfg.GetRules().TrustedDomains, logger)
	combiner := core.NewScoreCombiner(cfg.GetScoring().RuleWeight, cfg.GetScoring().MLWeight)
	quarantineThreshold := cfg.GetFloat64("scoring.quarantine_threshold")

	// Read email from file or stdin
	var emailReader io.Reader
	if *inputFile != "" {
		file, err := os.Open(*inputFile)
		if err != nil {
			logger.Fatal("Failed to open input file", zap.Error(err), zap.String("file", *inputFile))
		}
		defer file.Close()
		emailReader = file
		logger.Info("Reading email from file", zap.String("file", *inputFile))
	} else {
		emailReader = os.Stdin
		logger.Info("Reading email from stdin")
	}

	// Parse email
	msg, err := mail.ReadMessage(bufio.NewReader(emailReader))
	if err != nil {
		logger.Fatal("Failed to parse email", zap.Error(err))
	}

	bodyBytes, err := io.ReadAll(msg.Body)
	if err != nil {
		logger.Fatal("Failed to read email body", zap.Error(err))
	}

	record := &core.EmailRecord{
		Sender:    msg.Header.Get("From"),
		Recipient: msg.Header.Get("To"),
		Subject:   msg.Header.Get("Subject"),
		Body:      string(bodyBytes),
		Timestamp: time.Now(),
	}

	fmt.Printf("\n=== Email Summary ===\n")
	fmt.Printf("From: %s\n", record.Sender)
	fmt.Printf("To: %s\n", record.Recipient)
	fmt.Printf("Subject: %s\n", record.Subject)
	fmt.Printf("Body length: %d bytes\n", len(record.Body))
	fmt.Printf("\n")

	fmt.Printf("=== Analysis ===\n")
	fmt.Printf("Classifier trained: %t\n", textClassifier.IsTrained())
	fmt.Printf("Quarantine threshold: %.2f\n", quarantineThreshold)

	startTime := time.Now()

	// Check if sender domain is whitelisted
	if whitelistChecker.IsWhitelisted(record.Sender) {
		fmt.Printf("\n=== Results ===\n")
		fmt.Printf("Quarantine: false (sender domain is whitelisted)\n")
		fmt.Printf("Processing time: %v\n", time.Since(startTime))
		return
	}

	record.RuleScore, record.DetectionReasons = engine.Score(record)
	prediction := textClassifier.Predict(record)
	record.MLScore = prediction.Score

	combined, level := combiner.Combine(record.RuleScore, record.MLScore)
	record.CombinedScore = combined

	fmt.Printf("\n=== Results ===\n")
	fmt.Printf("Rule score: %.4f\n", record.RuleScore)
	fmt.Printf("ML score: %.4f\n", record.MLScore)
	fmt.Printf("Combined score: %.4f\n", record.CombinedScore)
	fmt.Printf("Risk level: %s\n", level)
	fmt.Printf("Quarantine: %t\n", combined >= quarantineThreshold)
	if len(record.DetectionReasons) > 0 {
		fmt.Printf("Detection reasons:\n")
		for _, reason := range record.DetectionReasons {
			fmt.Printf("  - %s\n", reason)
		}
	}
	fmt.Printf("Processing time: %v\n", time.Since(startTime))
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags() *config.Config {
	v := config.NewEmptyViper()

	v.Set("classifier.model_path", *modelPath)
	v.Set("classifier.max_features", *maxFeatures)
	v.Set("classifier.split_seed", *splitSeed)

	v.Set("scoring.rule_weight", *ruleWeight)
	v.Set("scoring.ml_weight", *mlWeight)
	v.Set("scoring.quarantine_threshold", *threshold)

	if *trustedDomains != "" {
		v.Set("rules.trusted_domains", splitAndTrim(*trustedDomains))
	}

	if *whitelistDomains != "" {
		v.Set("scoring.whitelisted_domains", splitAndTrim(*whitelistDomains))
	} else {
		v.Set("scoring.whitelisted_domains", []string{})
	}

	return config.NewFromViper(v)
}

func splitAndTrim(list string) []string {
	parts := strings.Split(list, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}
