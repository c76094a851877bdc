// Package session wires the assessment pipeline for one clinician session:
// profile edits, payload normalization, submission and result disclosure.
package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/Skufu/NutriPredict/internal/assessment"
	"github.com/Skufu/NutriPredict/internal/contract"
	"github.com/Skufu/NutriPredict/internal/prediction"
	"github.com/Skufu/NutriPredict/internal/presenter"
)

var (
	ErrEnded           = errors.New("session ended")
	ErrSuperseded      = errors.New("submission superseded by a newer one")
	ErrFieldNotExposed = errors.New("field not collected by this contract version")
)

// Predictor submits a payload to the risk-prediction service.
type Predictor interface {
	Predict(ctx context.Context, payload contract.Payload) (*prediction.Result, error)
}

// Recorder receives every result that was applied to a session.
type Recorder interface {
	RecordAssessment(ctx context.Context, rec Assessment) error
}

// Assessment is an applied submission, as handed to a Recorder.
type Assessment struct {
	SessionID string
	Version   contract.Version
	Payload   contract.Payload
	Result    prediction.Result
}

// Snapshot is everything the presentation layer reads from a session.
type Snapshot struct {
	ID              string             `json:"id"`
	ContractVersion contract.Version   `json:"contract_version"`
	InputFields     []assessment.Field `json:"input_fields"`
	Profile         assessment.Profile `json:"profile"`
	BMI             float64            `json:"bmi"`
	Pending         bool               `json:"pending"`
	Error           string             `json:"error,omitempty"`
	Disclosure      presenter.Snapshot `json:"disclosure"`
}

type Session struct {
	id        string
	version   contract.Version
	inputs    []assessment.Field
	predictor Predictor
	recorder  Recorder
	logger    *zap.Logger

	mu        sync.Mutex
	store     *assessment.Store
	presenter *presenter.Presenter
	seq       uint64
	inflight  context.CancelFunc
	lastErr   string
	ended     bool
}

// New creates a session seeded with the default profile.
func New(id string, version contract.Version, predictor Predictor, pres *presenter.Presenter, recorder Recorder, logger *zap.Logger) (*Session, error) {
	inputs, err := contract.InputFields(version)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Session{
		id:        id,
		version:   version,
		inputs:    inputs,
		predictor: predictor,
		recorder:  recorder,
		logger:    logger.With(zap.String("session_id", id), zap.Stringer("contract_version", version)),
		store:     assessment.NewStore(assessment.DefaultProfile()),
		presenter: pres,
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

// Set records a user edit.
func (s *Session) Set(field assessment.Field, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return ErrEnded
	}
	if !slices.Contains(s.inputs, field) {
		return fmt.Errorf("%w: %s under %s", ErrFieldNotExposed, field, s.version)
	}
	return s.store.Set(field, value)
}

// Change is one field edit within an Update.
type Change struct {
	Field assessment.Field
	Value float64
}

// Update applies changes in order, all or nothing.
func (s *Session) Update(changes []Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return ErrEnded
	}

	trial := assessment.NewStore(s.store.Profile())
	for _, ch := range changes {
		if !slices.Contains(s.inputs, ch.Field) {
			return fmt.Errorf("%w: %s under %s", ErrFieldNotExposed, ch.Field, s.version)
		}
		if err := trial.Set(ch.Field, ch.Value); err != nil {
			return err
		}
	}

	for _, ch := range changes {
		if err := s.store.Set(ch.Field, ch.Value); err != nil {
			return err
		}
	}
	return nil
}

// Submit sends the current profile for prediction. Only the most recent
// submission may change displayed state: an older one that completes later
// returns ErrSuperseded and is discarded.
func (s *Session) Submit(ctx context.Context) (*prediction.Result, error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil, ErrEnded
	}

	payload, err := contract.Build(s.store.Profile(), s.store.Derived(), s.version)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	if s.inflight != nil {
		s.inflight()
	}
	s.seq++
	seq := s.seq
	reqCtx, cancel := context.WithCancel(ctx)
	s.inflight = cancel
	s.lastErr = ""
	s.presenter.Clear()
	s.mu.Unlock()

	defer cancel()
	result, err := s.predictor.Predict(reqCtx, payload)

	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil, ErrEnded
	}
	if seq != s.seq {
		s.mu.Unlock()
		s.logger.Debug("discarding stale prediction response", zap.Uint64("seq", seq))
		return nil, ErrSuperseded
	}
	s.inflight = nil

	if err != nil {
		s.lastErr = prediction.UnreachableMessage
		s.mu.Unlock()

		var perr *prediction.Error
		if !errors.As(err, &perr) {
			perr = &prediction.Error{Kind: prediction.Unreachable, Err: err}
		}
		s.logger.Warn("prediction failed", zap.Error(perr.Err))
		return nil, perr
	}

	s.presenter.Present(result)
	s.mu.Unlock()

	s.logger.Info("prediction applied",
		zap.String("deficiency_risk", string(result.DeficiencyRisk)),
		zap.Float64("confidence", result.Confidence),
		zap.Int("recommendations", len(result.Recommendations)),
	)

	if s.recorder != nil {
		rec := Assessment{SessionID: s.id, Version: s.version, Payload: payload, Result: *result}
		if err := s.recorder.RecordAssessment(context.WithoutCancel(ctx), rec); err != nil {
			s.logger.Error("failed to record assessment", zap.Error(err))
		}
	}
	return result, nil
}

// End tears the session down: the in-flight request and every pending
// reveal are cancelled.
func (s *Session) End() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return
	}
	s.ended = true
	if s.inflight != nil {
		s.inflight()
		s.inflight = nil
	}
	s.presenter.Close()
	s.logger.Debug("session ended")
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		ID:              s.id,
		ContractVersion: s.version,
		InputFields:     append([]assessment.Field{}, s.inputs...),
		Profile:         s.store.Profile(),
		BMI:             s.store.Derived().BMI,
		Pending:         s.inflight != nil,
		Error:           s.lastErr,
		Disclosure:      s.presenter.Snapshot(),
	}
}
