package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runJobCmd(t *testing.T, handler http.HandlerFunc, messageID string) (string, error) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	viper.Set("server", server.URL)
	t.Cleanup(func() { viper.Set("server", "http://localhost:8080") })

	var out bytes.Buffer
	cmd := newJobCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{messageID})
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestJobCmd_UnknownMessage(t *testing.T) {
	messageID := uuid.New()

	_, err := runJobCmd(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not_found","message":"processing job not found"}`))
	}, messageID.String())

	require.Error(t, err)
	assert.Equal(t, "message "+messageID.String()+" has no processing job", err.Error())
}

func TestJobCmd_PrintsJob(t *testing.T) {
	messageID := uuid.New()

	out, err := runJobCmd(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/processing-jobs/"+messageID.String(), r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messageId":"` + messageID.String() + `","status":"completed"}`))
	}, messageID.String())

	require.NoError(t, err)
	assert.Contains(t, out, `"status": "completed"`)
}
