package problem

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vzahanych/forecast-client-demo/internal/forecast"
	"github.com/vzahanych/forecast-client-demo/internal/service"
)

const path = "/demoservice/client/v1/forecasts/use-rest-template"

func TestTranslate_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "transport", err: &service.Error{Kind: service.KindTransport, Strategy: service.StrategyReactive, Op: "GET x", Err: errors.New("connection refused")}, status: http.StatusInternalServerError},
		{name: "not found", err: &service.Error{Kind: service.KindNotFound, Strategy: service.StrategyDeclarative, Op: "GET x", StatusCode: 404}, status: http.StatusNotFound},
		{name: "validation", err: &service.Error{Kind: service.KindValidation, Strategy: service.StrategyTemplate, Op: "validate", Err: errors.New("bad")}, status: http.StatusBadRequest},
		{name: "unclassified", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, p := Translate(tt.err, path)

			assert.Equal(t, tt.status, status)
			assert.Equal(t, path, p.Type)
			assert.Equal(t, tt.err.Error(), p.Title)
			assert.True(t, strings.HasPrefix(p.Instance, "urn:ERROR:"))
		})
	}
}

func TestTranslate_SameKindSameShapeAcrossStrategies(t *testing.T) {
	var statuses []int
	for _, s := range []service.Strategy{service.StrategyReactive, service.StrategyDeclarative, service.StrategyTemplate} {
		status, p := Translate(&service.Error{Kind: service.KindNotFound, Strategy: s, Op: "GET x", StatusCode: 404}, path)
		statuses = append(statuses, status)
		assert.Empty(t, p.InvalidParams)
		assert.Empty(t, p.Detail)
	}
	assert.Equal(t, []int{404, 404, 404}, statuses)
}

func TestTranslate_ValidationParams(t *testing.T) {
	err := &service.Error{
		Kind:     service.KindValidation,
		Strategy: service.StrategyReactive,
		Op:       "validate response",
		Violations: []forecast.Violation{
			{Field: "temperatureCelsius", Reason: "must be less than or equal to 55"},
			{Field: "summary", Reason: "length must be at least 3 characters"},
		},
	}

	status, p := Translate(err, path)

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, []InvalidParam{
		{Field: "temperatureCelsius", Reason: "must be less than or equal to 55"},
		{Field: "summary", Reason: "length must be at least 3 characters"},
	}, p.InvalidParams)
	assert.Contains(t, p.Detail, "temperatureCelsius: must be less than or equal to 55")
}

func TestTranslate_InstanceNeverReused(t *testing.T) {
	err := &service.Error{Kind: service.KindTransport, Strategy: service.StrategyTemplate, Op: "GET x", Err: errors.New("refused")}

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		_, p := Translate(err, path)
		_, dup := seen[p.Instance]
		require.False(t, dup, "instance %s reused", p.Instance)
		seen[p.Instance] = struct{}{}
	}
}

func TestWrite(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	Write(c, http.StatusNotFound, New(path, "missing"))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ContentType, w.Header().Get("Content-Type"))
	assert.True(t, c.IsAborted())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, path, body["type"])
	assert.Equal(t, "missing", body["title"])
	assert.NotContains(t, body, "detail")
	assert.NotContains(t, body, "invalidParams")
}
