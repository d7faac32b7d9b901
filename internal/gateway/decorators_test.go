package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"sahaj/internal/logger"
	"sahaj/internal/models"
)

type stubGateway struct {
	delay  time.Duration
	err    error
	places []string
}

func (s *stubGateway) wait(ctx context.Context) error {
	if s.delay == 0 {
		return s.err
	}
	select {
	case <-time.After(s.delay):
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *stubGateway) Analyze(ctx context.Context, _ AnalyzeRequest) (*models.AnalysisResult, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return &models.AnalysisResult{}, nil
}

func (s *stubGateway) Chat(ctx context.Context, _ ChatRequest) (*ChatReply, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return &ChatReply{Text: "ok"}, nil
}

func (s *stubGateway) Locate(ctx context.Context, _ LocateRequest) ([]string, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	return s.places, nil
}

// ignoresContext never looks at its context.
type ignoresContext struct{ stubGateway }

func (s *ignoresContext) Analyze(context.Context, AnalyzeRequest) (*models.AnalysisResult, error) {
	time.Sleep(200 * time.Millisecond)
	return &models.AnalysisResult{}, nil
}

func TestWithTimeoutSurfacesTimeoutAsGatewayError(t *testing.T) {
	gw := WithTimeout(&stubGateway{delay: time.Second}, 20*time.Millisecond)

	_, err := gw.Analyze(context.Background(), AnalyzeRequest{})
	var gwErr *models.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "analyze", gwErr.Op)
	assert.ErrorIs(t, err, models.ErrTimeout)

	_, err = gw.Chat(context.Background(), ChatRequest{})
	assert.ErrorIs(t, err, models.ErrTimeout)
	_, err = gw.Locate(context.Background(), LocateRequest{})
	assert.ErrorIs(t, err, models.ErrTimeout)
}

func TestWithTimeoutAbandonsCallsIgnoringContext(t *testing.T) {
	gw := WithTimeout(&ignoresContext{}, 20*time.Millisecond)
	start := time.Now()
	_, err := gw.Analyze(context.Background(), AnalyzeRequest{})
	assert.ErrorIs(t, err, models.ErrTimeout)
	assert.Less(t, time.Since(start), 150*time.Millisecond)
}

func TestWithTimeoutWrapsPlainErrors(t *testing.T) {
	gw := WithTimeout(&stubGateway{err: errors.New("bad request")}, time.Second)
	_, err := gw.Analyze(context.Background(), AnalyzeRequest{})
	assert.True(t, models.IsGatewayError(err))
	assert.NotErrorIs(t, err, models.ErrTimeout)

	// Geolocation problems keep their identity through the wrapper.
	gw = WithTimeout(&stubGateway{err: models.ErrGeolocation}, time.Second)
	_, err = gw.Locate(context.Background(), LocateRequest{})
	assert.ErrorIs(t, err, models.ErrGeolocation)

	gw = WithTimeout(&stubGateway{places: []string{"A"}}, time.Second)
	places, err := gw.Locate(context.Background(), LocateRequest{})
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, places)
}

func TestWithLogging(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	gw := WithLogging(&stubGateway{err: errors.New("nope")}, logger.Wrap(zap.New(core)))

	_, _ = gw.Chat(context.Background(), ChatRequest{Language: models.Hindi})
	entries := logs.FilterMessage("remote call failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "nope", entries[0].ContextMap()["error"])
}
