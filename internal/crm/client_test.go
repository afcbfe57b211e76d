package crm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewHTTPClientRequiresBaseURL(t *testing.T) {
	_, err := NewHTTPClient(Config{})
	require.Error(t, err)
}

func TestCreateContact(t *testing.T) {
	var gotPath, gotAuth string
	var gotContact Contact

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotContact))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client, err := NewHTTPClient(Config{BaseURL: server.URL + "/", APIKey: "key-123"})
	require.NoError(t, err)

	err = client.CreateContact(context.Background(), Contact{
		Email:       "new@example.com",
		DisplayName: "New User",
		Source:      "signup",
	})
	require.NoError(t, err)

	require.Equal(t, "/contacts", gotPath)
	require.Equal(t, "Bearer key-123", gotAuth)
	require.Equal(t, "new@example.com", gotContact.Email)
	require.Equal(t, "signup", gotContact.Source)
}

func TestCreateContactRequiresEmail(t *testing.T) {
	client, err := NewHTTPClient(Config{BaseURL: "https://crm.example.com"})
	require.NoError(t, err)

	err = client.CreateContact(context.Background(), Contact{Source: "signup"})
	require.Error(t, err)
}

func TestCreateContactSurfacesErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client, err := NewHTTPClient(Config{BaseURL: server.URL})
	require.NoError(t, err)

	err = client.CreateContact(context.Background(), Contact{Email: "user@example.com", Source: "signup"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
}

func TestCreateContactOmitsAuthWithoutKey(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewHTTPClient(Config{BaseURL: server.URL})
	require.NoError(t, err)

	require.NoError(t, client.CreateContact(context.Background(), Contact{Email: "user@example.com"}))
	require.Empty(t, gotAuth)
}
