package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Skufu/NutriPredict/internal/assessment"
	"github.com/Skufu/NutriPredict/internal/contract"
	"github.com/Skufu/NutriPredict/internal/prediction"
	"github.com/Skufu/NutriPredict/internal/presenter"
	"github.com/Skufu/NutriPredict/internal/timeutil"
)

// MockPredictor is a mock implementation of Predictor
type MockPredictor struct {
	mock.Mock
}

func (m *MockPredictor) Predict(ctx context.Context, payload contract.Payload) (*prediction.Result, error) {
	args := m.Called(ctx, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*prediction.Result), args.Error(1)
}

// MockRecorder is a mock implementation of Recorder
type MockRecorder struct {
	mock.Mock
}

func (m *MockRecorder) RecordAssessment(ctx context.Context, rec Assessment) error {
	return m.Called(ctx, rec).Error(0)
}

// scriptedPredictor blocks every call until the test replies, so responses
// can be delivered out of order.
type scriptedPredictor struct {
	calls chan *pendingCall
}

type pendingCall struct {
	payload contract.Payload
	reply   chan reply
}

type reply struct {
	result *prediction.Result
	err    error
}

func newScriptedPredictor() *scriptedPredictor {
	return &scriptedPredictor{calls: make(chan *pendingCall, 4)}
}

func (p *scriptedPredictor) Predict(ctx context.Context, payload contract.Payload) (*prediction.Result, error) {
	c := &pendingCall{payload: payload, reply: make(chan reply, 1)}
	p.calls <- c
	r := <-c.reply
	return r.result, r.err
}

func (p *scriptedPredictor) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-p.calls:
		return c
	case <-time.After(time.Second):
		t.Fatal("expected a prediction call")
		return nil
	}
}

var epoch = time.Date(2026, 5, 1, 8, 15, 0, 0, time.UTC)

func newTestSession(t *testing.T, version contract.Version, predictor Predictor, recorder Recorder) (*Session, *timeutil.MockClock) {
	t.Helper()
	clock := timeutil.NewMockClock(epoch)
	s, err := New("test-session", version, predictor, presenter.New(clock, 700*time.Millisecond), recorder, nil)
	require.NoError(t, err)
	return s, clock
}

func highRisk(confidence float64, recs ...string) *prediction.Result {
	return &prediction.Result{
		DeficiencyRisk:  prediction.RiskHigh,
		Confidence:      confidence,
		RawPrediction:   1,
		Recommendations: recs,
	}
}

func TestSession_SubmitBuildsPayloadFromLatestEdits(t *testing.T) {
	predictor := new(MockPredictor)
	s, _ := newTestSession(t, contract.V3, predictor, nil)

	require.NoError(t, s.Set(assessment.FieldWeight, 90))
	require.NoError(t, s.Set(assessment.FieldZinc, 7))

	want := contract.Payload{
		"age": 25, "gender": 1, "iron_intake": 8.0, "vit_d_intake": 10.0,
		"bmi": 31.1, "muac": 25.0, "proteins": 50.0, "zinc": 7.0,
	}
	predictor.On("Predict", mock.Anything, want).Return(highRisk(72, "A"), nil).Once()

	result, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 72.0, result.Confidence)
	predictor.AssertExpectations(t)
}

func TestSession_SuccessDrivesDisclosureAndHistory(t *testing.T) {
	predictor := new(MockPredictor)
	predictor.On("Predict", mock.Anything, mock.Anything).Return(highRisk(64.5, "A", "B", "C"), nil)
	s, clock := newTestSession(t, contract.V1, predictor, nil)

	_, err := s.Submit(context.Background())
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.False(t, snap.Pending)
	assert.Empty(t, snap.Error)
	assert.Equal(t, presenter.StateRevealing, snap.Disclosure.State)
	require.Len(t, snap.Disclosure.History, 1)
	assert.Equal(t, presenter.HistoryEntry{Label: "08:15:00", Confidence: 64.5}, snap.Disclosure.History[0])

	clock.Advance(1400 * time.Millisecond)
	snap = s.Snapshot()
	assert.Equal(t, []string{"A", "B", "C"}, snap.Disclosure.Revealed)
	assert.Equal(t, presenter.StateComplete, snap.Disclosure.State)
}

func TestSession_UnreachableSurfacesBannerWithoutHistory(t *testing.T) {
	predictor := new(MockPredictor)
	cause := &prediction.Error{Kind: prediction.Unreachable, Err: errors.New("dial tcp: connection refused")}
	predictor.On("Predict", mock.Anything, mock.Anything).Return(nil, cause).Once()
	s, clock := newTestSession(t, contract.V3, predictor, nil)

	_, err := s.Submit(context.Background())
	require.ErrorIs(t, err, prediction.ErrUnreachable)

	snap := s.Snapshot()
	assert.Equal(t, prediction.UnreachableMessage, snap.Error)
	assert.Empty(t, snap.Disclosure.History)
	assert.Equal(t, presenter.StateIdle, snap.Disclosure.State)
	assert.Zero(t, clock.Pending(), "no reveal sequence is started")

	predictor.On("Predict", mock.Anything, mock.Anything).Return(highRisk(80), nil).Once()
	_, err = s.Submit(context.Background())
	require.NoError(t, err)

	snap = s.Snapshot()
	assert.Empty(t, snap.Error, "the banner lasts until the next submission")
	assert.Len(t, snap.Disclosure.History, 1)
	assert.Equal(t, presenter.StateComplete, snap.Disclosure.State)
}

func TestSession_UnclassifiedErrorsCollapseToUnreachable(t *testing.T) {
	predictor := new(MockPredictor)
	predictor.On("Predict", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
	s, _ := newTestSession(t, contract.V1, predictor, nil)

	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, prediction.ErrUnreachable)
	assert.Equal(t, prediction.UnreachableMessage, err.Error())
}

func TestSession_StaleResponseIsDiscarded(t *testing.T) {
	predictor := newScriptedPredictor()
	s, _ := newTestSession(t, contract.V1, predictor, nil)

	type outcome struct {
		result *prediction.Result
		err    error
	}
	first := make(chan outcome, 1)
	second := make(chan outcome, 1)

	go func() {
		r, err := s.Submit(context.Background())
		first <- outcome{r, err}
	}()
	call1 := predictor.next(t)
	assert.True(t, s.Snapshot().Pending)

	go func() {
		r, err := s.Submit(context.Background())
		second <- outcome{r, err}
	}()
	call2 := predictor.next(t)

	call2.reply <- reply{result: highRisk(90, "second")}
	o2 := <-second
	require.NoError(t, o2.err)

	call1.reply <- reply{result: highRisk(10, "first")}
	o1 := <-first
	assert.ErrorIs(t, o1.err, ErrSuperseded)
	assert.Nil(t, o1.result)

	snap := s.Snapshot()
	require.NotNil(t, snap.Disclosure.Result)
	assert.Equal(t, 90.0, snap.Disclosure.Result.Confidence)
	require.Len(t, snap.Disclosure.History, 1)
	assert.Equal(t, 90.0, snap.Disclosure.History[0].Confidence)
	assert.False(t, snap.Pending)
}

func TestSession_StaleFailureDoesNotRaiseBanner(t *testing.T) {
	predictor := newScriptedPredictor()
	s, _ := newTestSession(t, contract.V1, predictor, nil)

	first := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		first <- err
	}()
	call1 := predictor.next(t)

	second := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		second <- err
	}()
	call2 := predictor.next(t)

	call2.reply <- reply{result: highRisk(50)}
	require.NoError(t, <-second)

	call1.reply <- reply{err: &prediction.Error{Kind: prediction.Unreachable, Err: context.Canceled}}
	assert.ErrorIs(t, <-first, ErrSuperseded)
	assert.Empty(t, s.Snapshot().Error)
}

func TestSession_EndCancelsPendingWork(t *testing.T) {
	predictor := newScriptedPredictor()
	s, clock := newTestSession(t, contract.V1, predictor, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.Submit(context.Background())
		done <- err
	}()
	call := predictor.next(t)

	s.End()
	call.reply <- reply{result: highRisk(70, "A")}
	assert.ErrorIs(t, <-done, ErrEnded)

	snap := s.Snapshot()
	assert.Empty(t, snap.Disclosure.History)
	assert.Zero(t, clock.Pending())

	assert.ErrorIs(t, s.Set(assessment.FieldAge, 30), ErrEnded)
	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, ErrEnded)
}

func TestSession_EndStopsReveals(t *testing.T) {
	predictor := new(MockPredictor)
	predictor.On("Predict", mock.Anything, mock.Anything).Return(highRisk(70, "A", "B", "C"), nil)
	s, clock := newTestSession(t, contract.V1, predictor, nil)

	_, err := s.Submit(context.Background())
	require.NoError(t, err)
	clock.Advance(0)

	s.End()
	clock.Advance(5 * time.Second)
	assert.Equal(t, []string{"A"}, s.Snapshot().Disclosure.Revealed)
}

func TestSession_SetRespectsContractInputs(t *testing.T) {
	s, _ := newTestSession(t, contract.V1, new(MockPredictor), nil)

	assert.ErrorIs(t, s.Set(assessment.FieldWeight, 80), ErrFieldNotExposed)
	require.NoError(t, s.Set(assessment.FieldIronIntake, 4.4))
	assert.Equal(t, 4.4, s.Snapshot().Profile.IronIntake)

	v2, _ := newTestSession(t, contract.V2, new(MockPredictor), nil)
	require.NoError(t, v2.Set(assessment.FieldVitC, 60))
	assert.Equal(t, 60.0, v2.Snapshot().Profile.VitC)
}

func TestSession_RecorderReceivesAppliedResult(t *testing.T) {
	predictor := new(MockPredictor)
	result := highRisk(77, "A")
	predictor.On("Predict", mock.Anything, mock.Anything).Return(result, nil)

	recorder := new(MockRecorder)
	recorder.On("RecordAssessment", mock.Anything, mock.MatchedBy(func(rec Assessment) bool {
		return rec.SessionID == "test-session" && rec.Version == contract.V1 && rec.Result.Confidence == 77
	})).Return(errors.New("db down")).Once()

	s, _ := newTestSession(t, contract.V1, predictor, recorder)
	_, err := s.Submit(context.Background())
	require.NoError(t, err, "recorder failures never fail the submission")
	recorder.AssertExpectations(t)
}

func TestNew_RejectsUnknownVersion(t *testing.T) {
	_, err := New("x", contract.Version(7), new(MockPredictor), presenter.New(nil, 0), nil, nil)
	assert.ErrorIs(t, err, contract.ErrUnknownVersion)
}

func TestSession_UpdateIsAllOrNothing(t *testing.T) {
	s, _ := newTestSession(t, contract.V3, new(MockPredictor), nil)

	err := s.Update([]Change{
		{Field: assessment.FieldWeight, Value: 50},
		{Field: assessment.FieldGender, Value: 5},
	})
	assert.ErrorIs(t, err, assessment.ErrInvalidValue)
	assert.Equal(t, 70.0, s.Snapshot().Profile.Weight)
	assert.Equal(t, 24.2, s.Snapshot().BMI)

	require.NoError(t, s.Update([]Change{
		{Field: assessment.FieldHeight, Value: 160},
		{Field: assessment.FieldWeight, Value: 50},
	}))
	assert.Equal(t, 19.5, s.Snapshot().BMI)
}
