package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sahaj/internal/logger"
	"sahaj/internal/models"
)

type timeoutGateway struct {
	next    Gateway
	timeout time.Duration
}

// WithTimeout bounds every call. A call still running when the deadline hits
// is abandoned and reported as a GatewayError wrapping models.ErrTimeout.
func WithTimeout(next Gateway, timeout time.Duration) Gateway {
	return &timeoutGateway{next: next, timeout: timeout}
}

func (g *timeoutGateway) Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error) {
	return within(ctx, g.timeout, "analyze", func(ctx context.Context) (*models.AnalysisResult, error) {
		return g.next.Analyze(ctx, req)
	})
}

func (g *timeoutGateway) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	return within(ctx, g.timeout, "chat", func(ctx context.Context) (*ChatReply, error) {
		return g.next.Chat(ctx, req)
	})
}

func (g *timeoutGateway) Locate(ctx context.Context, req LocateRequest) ([]string, error) {
	return within(ctx, g.timeout, "locate", func(ctx context.Context) ([]string, error) {
		return g.next.Locate(ctx, req)
	})
}

func within[T any](ctx context.Context, timeout time.Duration, op string, call func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type outcome struct {
		val T
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		v, err := call(ctx)
		done <- outcome{val: v, err: err}
	}()

	var zero T
	select {
	case out := <-done:
		if out.err == nil {
			return out.val, nil
		}
		if errors.Is(out.err, context.DeadlineExceeded) {
			return zero, timeoutError(op, timeout)
		}
		if errors.Is(out.err, models.ErrGeolocation) {
			return zero, out.err
		}
		return zero, models.NewGatewayError(op, out.err)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, timeoutError(op, timeout)
		}
		return zero, models.NewGatewayError(op, ctx.Err())
	}
}

func timeoutError(op string, after time.Duration) error {
	return &models.GatewayError{Op: op, Err: fmt.Errorf("%w after %s", models.ErrTimeout, after)}
}

type loggingGateway struct {
	next Gateway
	log  logger.Logger
}

// WithLogging records latency and failures of every call.
func WithLogging(next Gateway, log logger.Logger) Gateway {
	return &loggingGateway{next: next, log: log}
}

func (g *loggingGateway) observe(op string, start time.Time, err error, details map[string]interface{}) {
	details["op"] = op
	details["latency_ms"] = time.Since(start).Milliseconds()
	if err != nil {
		details["error"] = err
		g.log.Warn("gateway", "remote call failed", details)
		return
	}
	g.log.Info("gateway", "remote call finished", details)
}

func (g *loggingGateway) Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error) {
	start := time.Now()
	res, err := g.next.Analyze(ctx, req)
	details := map[string]interface{}{"language": req.Language}
	if req.Document != nil {
		details["mime"] = req.Document.MIME()
		details["bytes"] = req.Document.Size()
	}
	g.observe("analyze", start, err, details)
	return res, err
}

func (g *loggingGateway) Chat(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	start := time.Now()
	reply, err := g.next.Chat(ctx, req)
	g.observe("chat", start, err, map[string]interface{}{"language": req.Language})
	return reply, err
}

func (g *loggingGateway) Locate(ctx context.Context, req LocateRequest) ([]string, error) {
	start := time.Now()
	places, err := g.next.Locate(ctx, req)
	g.observe("locate", start, err, map[string]interface{}{"form_type": req.FormType, "places": len(places)})
	return places, err
}
