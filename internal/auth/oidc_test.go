package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

// TestGeneratePKCE проверяет генерацию PKCE code_verifier и code_challenge.
func TestGeneratePKCE(t *testing.T) {
	params, err := GeneratePKCE()
	if err != nil {
		t.Fatalf("Ошибка генерации PKCE: %v", err)
	}

	// code_verifier должен быть 43 символа (32 bytes → base64url без padding)
	if len(params.CodeVerifier) != 43 {
		t.Errorf("CodeVerifier length: want 43, got %d", len(params.CodeVerifier))
	}

	// code_challenge должен быть base64url(SHA-256(code_verifier))
	hash := sha256.Sum256([]byte(params.CodeVerifier))
	expectedChallenge := base64.RawURLEncoding.EncodeToString(hash[:])
	if params.CodeChallenge != expectedChallenge {
		t.Errorf("CodeChallenge не совпадает с SHA-256(code_verifier)")
	}
}

// TestGeneratePKCEUniqueness проверяет, что каждый вызов генерирует уникальные значения.
func TestGeneratePKCEUniqueness(t *testing.T) {
	params1, _ := GeneratePKCE()
	params2, _ := GeneratePKCE()

	if params1.CodeVerifier == params2.CodeVerifier {
		t.Error("Два вызова GeneratePKCE вернули одинаковые code_verifier")
	}
}

// TestGenerateState проверяет генерацию state parameter.
func TestGenerateState(t *testing.T) {
	state1, err := GenerateState()
	if err != nil {
		t.Fatalf("Ошибка генерации state: %v", err)
	}
	if state1 == "" {
		t.Error("State не должен быть пустым")
	}

	state2, _ := GenerateState()
	if state1 == state2 {
		t.Error("Два вызова GenerateState вернули одинаковые значения")
	}
}

// TestOIDCClientAuthorizeURL проверяет формирование authorize URL.
func TestOIDCClientAuthorizeURL(t *testing.T) {
	client := NewOIDCClient(OIDCConfig{
		KeycloakURL: "https://keycloak.test",
		Realm:       "scolaplan",
		ClientID:    "dashboard-ui",
	})

	authorizeURL := client.AuthorizeURL("http://localhost:8080/auth/callback", "state-123", "challenge-abc")

	if !strings.HasPrefix(authorizeURL, "https://keycloak.test/realms/scolaplan/protocol/openid-connect/auth?") {
		t.Errorf("authorize URL = %q", authorizeURL)
	}

	parsed, err := url.Parse(authorizeURL)
	if err != nil {
		t.Fatalf("Ошибка парсинга URL: %v", err)
	}
	q := parsed.Query()
	if q.Get("client_id") != "dashboard-ui" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q", q.Get("response_type"))
	}
	if q.Get("state") != "state-123" {
		t.Errorf("state = %q", q.Get("state"))
	}
	if q.Get("code_challenge") != "challenge-abc" {
		t.Errorf("code_challenge = %q", q.Get("code_challenge"))
	}
	if q.Get("code_challenge_method") != "S256" {
		t.Errorf("code_challenge_method = %q", q.Get("code_challenge_method"))
	}
}

// TestOIDCClientBrowserURL проверяет раздельные backend/browser URL.
func TestOIDCClientBrowserURL(t *testing.T) {
	client := NewOIDCClient(OIDCConfig{
		KeycloakURL:        "http://keycloak.internal:8080",
		BrowserKeycloakURL: "https://sso.ville.fr",
		Realm:              "scolaplan",
		ClientID:           "dashboard-ui",
	})

	authorizeURL := client.AuthorizeURL("http://localhost:8080/auth/callback", "s", "c")
	if !strings.HasPrefix(authorizeURL, "https://sso.ville.fr/") {
		t.Errorf("authorize должен использовать browser URL: %q", authorizeURL)
	}

	logoutURL := client.LogoutURL("", "http://localhost:8080/")
	if !strings.HasPrefix(logoutURL, "https://sso.ville.fr/") {
		t.Errorf("logout должен использовать browser URL: %q", logoutURL)
	}
}

// TestOIDCClientExchangeCode проверяет обмен code → tokens через mock token endpoint.
func TestOIDCClientExchangeCode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("метод = %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("Ошибка парсинга формы: %v", err)
		}
		if r.PostForm.Get("grant_type") != "authorization_code" {
			t.Errorf("grant_type = %q", r.PostForm.Get("grant_type"))
		}
		if r.PostForm.Get("code") != "auth-code-1" {
			t.Errorf("code = %q", r.PostForm.Get("code"))
		}
		if r.PostForm.Get("code_verifier") != "verifier-1" {
			t.Errorf("code_verifier = %q", r.PostForm.Get("code_verifier"))
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"access_token": "new-access",
			"refresh_token": "new-refresh",
			"token_type": "Bearer",
			"expires_in": 300,
			"id_token": "id-tok"
		}`))
	}))
	defer server.Close()

	client := NewOIDCClient(OIDCConfig{
		KeycloakURL: server.URL,
		Realm:       "scolaplan",
		ClientID:    "dashboard-ui",
		HTTPClient:  server.Client(),
	})

	tokens, err := client.ExchangeCode("auth-code-1", "http://localhost:8080/auth/callback", "verifier-1")
	if err != nil {
		t.Fatalf("ExchangeCode вернул ошибку: %v", err)
	}
	if tokens.AccessToken != "new-access" || tokens.RefreshToken != "new-refresh" {
		t.Errorf("tokens = %+v", tokens)
	}
	if tokens.ExpiresIn != 300 {
		t.Errorf("expires_in = %d", tokens.ExpiresIn)
	}
}

// TestOIDCClientExchangeCodeError проверяет обработку ошибки token endpoint.
func TestOIDCClientExchangeCodeError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "invalid_grant", "error_description": "Code not valid"}`))
	}))
	defer server.Close()

	client := NewOIDCClient(OIDCConfig{
		KeycloakURL: server.URL,
		Realm:       "scolaplan",
		ClientID:    "dashboard-ui",
		HTTPClient:  server.Client(),
	})

	_, err := client.ExchangeCode("bad-code", "http://localhost:8080/auth/callback", "v")
	if err == nil {
		t.Fatal("ожидается ошибка")
	}
	if !strings.Contains(err.Error(), "invalid_grant") {
		t.Errorf("ошибка = %v, должна содержать invalid_grant", err)
	}
}
