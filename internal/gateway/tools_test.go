package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sahaj/internal/logger"
)

type stubSearch struct {
	calls  int
	result string
	err    error
}

func (s *stubSearch) Info(context.Context) (*schema.ToolInfo, error) {
	return &schema.ToolInfo{Name: "stub"}, nil
}

func (s *stubSearch) InvokableRun(_ context.Context, _ string, _ ...tool.Option) (string, error) {
	s.calls++
	return s.result, s.err
}

func TestRateLimiterSlidingWindow(t *testing.T) {
	now := time.Unix(0, 0)
	l := newToolRateLimiter(2, time.Minute)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("k"))
	assert.True(t, l.Allow("k"))
	assert.False(t, l.Allow("k"))
	assert.True(t, l.Allow("other"))

	now = now.Add(61 * time.Second)
	assert.True(t, l.Allow("k"))
}

func TestOfficeSearchFallsBackToDuckDuckGo(t *testing.T) {
	google := &stubSearch{err: errors.New("quota")}
	duck := &stubSearch{result: `[{"title":"PSK Lucknow"}]`}
	s := &officeSearch{google: google, duck: duck, log: logger.Nop()}

	out, err := s.run(context.Background(), &officeSearchParams{Query: "passport office Lucknow"})
	require.NoError(t, err)
	assert.Contains(t, out, "PSK Lucknow")
	assert.Equal(t, 1, google.calls)
	assert.Equal(t, 1, duck.calls)

	_, err = s.run(context.Background(), &officeSearchParams{Query: "  "})
	assert.Error(t, err)
}

func TestOfficeSearchRateLimited(t *testing.T) {
	duck := &stubSearch{result: "ok"}
	s := &officeSearch{duck: duck, limiter: newToolRateLimiter(1, time.Minute), log: logger.Nop()}

	_, err := s.run(context.Background(), &officeSearchParams{Query: "a"})
	require.NoError(t, err)
	_, err = s.run(context.Background(), &officeSearchParams{Query: "b"})
	assert.Error(t, err)
	assert.Equal(t, 1, duck.calls)
}
