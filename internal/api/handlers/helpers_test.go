package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/medconnect/clinic-backend/internal/api/middleware"
	"github.com/medconnect/clinic-backend/internal/application/services"
	"github.com/medconnect/clinic-backend/internal/domain/entities"
	"github.com/stretchr/testify/require"
)

var (
	clientActor = services.Actor{UserID: "user-C", Role: entities.RoleClient}
	doctorActor = services.Actor{UserID: "user-D", Role: entities.RoleDoctor}
	adminActor  = services.Actor{UserID: "user-A", Role: entities.RoleAdmin}
)

func newRequest(method, target, body string, actor *services.Actor) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor != nil {
		req = req.WithContext(middleware.WithActor(req.Context(), *actor))
	}
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return body
}
