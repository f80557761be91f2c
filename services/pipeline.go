package services

import (
	"fmt"

	"github.com/google/uuid"

	"car-ads/classifier"
	"car-ads/config"
	"car-ads/models"
	"car-ads/utils"
)

// Batch-level conditions reported on a BatchResult.
const (
	ConditionEmptyInput        = "empty input"
	ConditionSourceUnavailable = "source unavailable"
)

type outcome int

const (
	outcomeIrrelevant outcome = iota
	outcomeFaulted
	outcomeRejected
	outcomeAccepted
)

// Pipeline turns a batch of raw messages into validated, segmented listings.
// It holds no per-batch state and may be reused.
type Pipeline struct {
	relevance classifier.Relevance
	extractor *Extractor
	validator *Validator
	clusters  *ClusterEngine
	logger    *utils.Logger
}

// NewPipeline wires the stages from the calibration. recognizer may be nil.
// A nil relevance treats every message as relevant.
func NewPipeline(cal *config.Calibration, relevance classifier.Relevance, recognizer classifier.EntityRecognizer, logger *utils.Logger) *Pipeline {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Pipeline{
		relevance: relevance,
		extractor: NewExtractor(cal, NewNormalizer(cal), recognizer),
		validator: NewValidator(cal),
		clusters:  NewClusterEngine(cal),
		logger:    logger,
	}
}

// ProcessLines decodes "channel||text" lines and processes them. Lines
// without a delimiter are counted as malformed and skipped.
func (p *Pipeline) ProcessLines(lines []string) *models.BatchResult {
	msgs := make([]models.RawMessage, 0, len(lines))
	malformed := 0
	for i, line := range lines {
		msg, err := models.ParseLine(line)
		if err != nil {
			p.logger.Warn("[pipeline] Skipping line %d: %v", i+1, err)
			malformed++
			continue
		}
		msgs = append(msgs, msg)
	}

	if len(msgs) == 0 && malformed > 0 {
		return &models.BatchResult{
			RunID: uuid.NewString(),
			Stats: models.BatchStats{Received: malformed, Malformed: malformed},
		}
	}

	result := p.Process(msgs)
	result.Stats.Received += malformed
	result.Stats.Malformed = malformed
	return result
}

// Process runs every message through relevance, extraction, the acceptance
// gate and validation, then clusters the accepted listings. Output order
// follows input order.
func (p *Pipeline) Process(msgs []models.RawMessage) *models.BatchResult {
	result := &models.BatchResult{RunID: uuid.NewString()}
	result.Stats.Received = len(msgs)
	log := p.logger.With(map[string]any{"run_id": result.RunID})
	if len(msgs) == 0 {
		result.Conditions = append(result.Conditions, ConditionEmptyInput)
		log.Warn("[pipeline] Empty input, nothing to process")
		return result
	}

	for i, msg := range msgs {
		listing, out, err := p.processOne(msg)
		switch out {
		case outcomeIrrelevant:
			result.Stats.Irrelevant++
		case outcomeFaulted:
			result.Stats.Faulted++
			log.Warn("[pipeline] Message %d from %s skipped: %v", i+1, msg.Channel, err)
		case outcomeRejected:
			result.Stats.Rejected++
		case outcomeAccepted:
			result.Stats.Accepted++
			if listing.Status != models.StatusOK {
				result.Stats.Suspect++
			}
			result.Listings = append(result.Listings, listing)
		}
	}

	result.Stats.Clustered = p.clusters.Assign(result.Listings)

	log.Info("[pipeline] %d received, %d accepted (%d suspect), %d irrelevant, %d rejected, %d faulted",
		result.Stats.Received, result.Stats.Accepted, result.Stats.Suspect,
		result.Stats.Irrelevant, result.Stats.Rejected, result.Stats.Faulted)
	return result
}

// Unavailable reports a batch whose source could not be read.
func (p *Pipeline) Unavailable(err error) *models.BatchResult {
	runID := uuid.NewString()
	p.logger.With(map[string]any{"run_id": runID}).Error("[pipeline] Source unavailable: %v", err)
	return &models.BatchResult{
		RunID:      runID,
		Conditions: []string{fmt.Sprintf("%s: %v", ConditionSourceUnavailable, err)},
	}
}

// processOne isolates a single message: a panic inside any stage is turned
// into a fault for that message only.
func (p *Pipeline) processOne(msg models.RawMessage) (listing *models.Listing, out outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			listing, out, err = nil, outcomeFaulted, fmt.Errorf("panic: %v", r)
		}
	}()

	if p.relevance != nil && !p.relevance.Classify(msg.Text) {
		return nil, outcomeIrrelevant, nil
	}

	l, err := p.extractor.Extract(msg)
	if err != nil {
		return nil, outcomeFaulted, err
	}
	if !l.Accepted() {
		return nil, outcomeRejected, nil
	}

	l.Status = p.validator.Validate(l)
	return l, outcomeAccepted, nil
}
