package handlers_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reelgate/reelgate/internal/handlers/testutil"
	"github.com/reelgate/reelgate/internal/models"
)

type auditListPayload struct {
	Events []json.RawMessage `json:"events"`
	Total  int64             `json:"total"`
}

func TestAuditHandler_ListRequiresAdmin(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateActiveUser("plain@example.com", "User:Pass123", models.RoleUser)

	login := env.Login("plain@example.com", "User:Pass123")

	anon := env.Request(http.MethodGet, "/api/audit/logins", nil, "")
	require.Equal(t, http.StatusUnauthorized, anon.Code)

	forbidden := env.Request(http.MethodGet, "/api/audit/logins", nil, login.Tokens.AccessToken)
	require.Equal(t, http.StatusForbidden, forbidden.Code)
}

func TestAuditHandler_ListReturnsAttempts(t *testing.T) {
	env := testutil.NewEnv(t)
	env.CreateActiveUser("auditor@example.com", "Admin:Pass123", models.RoleAdmin)
	env.CreateActiveUser("member2@example.com", "User:Pass123", models.RoleUser)

	// Generate one failed and one successful attempt.
	failed := env.Request(http.MethodPost, "/api/auth/login", map[string]string{
		"email":    "member2@example.com",
		"password": "wrong password",
	}, "")
	require.Equal(t, http.StatusBadRequest, failed.Code)
	env.Login("member2@example.com", "User:Pass123")

	admin := env.Login("auditor@example.com", "Admin:Pass123")

	list := env.Request(http.MethodGet, "/api/audit/logins?email=member2@example.com", nil, admin.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, list.Code, list.Body.String())

	var payload auditListPayload
	testutil.DecodeInto(t, testutil.DecodeResponse(t, list).Data, &payload)
	require.EqualValues(t, 2, payload.Total)
	require.Len(t, payload.Events, 2)

	onlyFailed := env.Request(http.MethodGet, "/api/audit/logins?email=member2@example.com&successful=false", nil, admin.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, onlyFailed.Code)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, onlyFailed).Data, &payload)
	require.EqualValues(t, 1, payload.Total)
	require.Contains(t, string(payload.Events[0]), "Invalid password")

	paged := env.Request(http.MethodGet, "/api/audit/logins?email=member2@example.com&page=1&page_size=1", nil, admin.Tokens.AccessToken)
	require.Equal(t, http.StatusOK, paged.Code)
	testutil.DecodeInto(t, testutil.DecodeResponse(t, paged).Data, &payload)
	require.EqualValues(t, 2, payload.Total)
	require.Len(t, payload.Events, 1)
}
