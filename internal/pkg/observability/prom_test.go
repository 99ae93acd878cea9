package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushSendsBuildMetrics(t *testing.T) {
	var path, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		b := new(strings.Builder)
		_, _ = io.Copy(b, r.Body)
		body = b.String()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	BuildExamples.WithLabelValues("train").Set(42)
	require.NoError(t, Push(srv.URL, "cn1bqgkq8kt0l0ckf1tg"))

	assert.Equal(t, "/metrics/job/seqwindow/build_id/cn1bqgkq8kt0l0ckf1tg", path)
	assert.NotEmpty(t, body)
	assert.Contains(t, body, "seqwindow_build_examples")
}

func TestPushWithoutURLIsNoop(t *testing.T) {
	assert.NoError(t, Push("", "x"))
}
