package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestSessionEncryptDecryptRoundTrip проверяет шифрование и дешифрование SessionData.
func TestSessionEncryptDecryptRoundTrip(t *testing.T) {
	sm, err := NewSessionManager("", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}

	original := &SessionData{
		AccessToken:  "test-access-token-12345",
		RefreshToken: "test-refresh-token-67890",
		ExpiresAt:    time.Now().Add(5 * time.Minute).Unix(),
		Username:     "j.dupont",
		Email:        "j.dupont@ville.fr",
		TenantID:     "ville-a",
	}

	encrypted, err := sm.Encrypt(original)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}
	if encrypted == "" {
		t.Fatal("Зашифрованная строка пустая")
	}

	decrypted, err := sm.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Ошибка дешифрования: %v", err)
	}

	if decrypted.AccessToken != original.AccessToken {
		t.Errorf("AccessToken: want %q, got %q", original.AccessToken, decrypted.AccessToken)
	}
	if decrypted.RefreshToken != original.RefreshToken {
		t.Errorf("RefreshToken: want %q, got %q", original.RefreshToken, decrypted.RefreshToken)
	}
	if decrypted.Username != original.Username {
		t.Errorf("Username: want %q, got %q", original.Username, decrypted.Username)
	}
	if decrypted.TenantID != original.TenantID {
		t.Errorf("TenantID: want %q, got %q", original.TenantID, decrypted.TenantID)
	}
}

// TestSessionManagerWithStringKey проверяет инициализацию с произвольной строкой-ключом.
func TestSessionManagerWithStringKey(t *testing.T) {
	sm, err := NewSessionManager("my-secret-key-for-testing", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager с string-ключом: %v", err)
	}

	data := &SessionData{AccessToken: "token123", Username: "user"}

	encrypted, err := sm.Encrypt(data)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	decrypted, err := sm.Decrypt(encrypted)
	if err != nil {
		t.Fatalf("Ошибка дешифрования: %v", err)
	}
	if decrypted.AccessToken != data.AccessToken {
		t.Errorf("AccessToken: want %q, got %q", data.AccessToken, decrypted.AccessToken)
	}
}

// TestSessionDecryptWithWrongKey проверяет, что дешифрование чужим ключом не работает.
func TestSessionDecryptWithWrongKey(t *testing.T) {
	sm1, _ := NewSessionManager("key-one", false)
	sm2, _ := NewSessionManager("key-two", false)

	data := &SessionData{AccessToken: "secret"}
	encrypted, err := sm1.Encrypt(data)
	if err != nil {
		t.Fatalf("Ошибка шифрования: %v", err)
	}

	if _, err := sm2.Decrypt(encrypted); err == nil {
		t.Error("Дешифрование чужим ключом должно возвращать ошибку")
	}
}

// TestSessionCookieRoundTrip проверяет установку и чтение session cookie.
func TestSessionCookieRoundTrip(t *testing.T) {
	sm, err := NewSessionManager("cookie-test-key", false)
	if err != nil {
		t.Fatalf("Ошибка создания SessionManager: %v", err)
	}

	data := &SessionData{
		AccessToken: "cookie-token",
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		Username:    "j.dupont",
		TenantID:    "ville-a",
	}

	rec := httptest.NewRecorder()
	if err := sm.SetSessionCookie(rec, data); err != nil {
		t.Fatalf("Ошибка установки cookie: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != SessionCookieName {
		t.Fatalf("cookies = %+v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("cookie должен быть HttpOnly")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[0])

	loaded, err := sm.GetSessionFromRequest(req)
	if err != nil {
		t.Fatalf("Ошибка чтения сессии: %v", err)
	}
	if loaded == nil || loaded.AccessToken != "cookie-token" {
		t.Errorf("сессия = %+v", loaded)
	}
}

// TestLoad проверяет интерфейс SessionStore для middleware.
func TestLoad(t *testing.T) {
	sm, _ := NewSessionManager("load-test-key", false)

	t.Run("валидная сессия", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_ = sm.SetSessionCookie(rec, &SessionData{
			AccessToken: "tok",
			TenantID:    "ville-a",
			ExpiresAt:   time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(rec.Result().Cookies()[0])

		token, tenantID, ok := sm.Load(req)
		if !ok || token != "tok" || tenantID != "ville-a" {
			t.Errorf("Load = (%q, %q, %v)", token, tenantID, ok)
		}
	})

	t.Run("просроченная сессия", func(t *testing.T) {
		rec := httptest.NewRecorder()
		_ = sm.SetSessionCookie(rec, &SessionData{
			AccessToken: "tok",
			ExpiresAt:   time.Now().Add(-time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(rec.Result().Cookies()[0])

		if _, _, ok := sm.Load(req); ok {
			t.Error("просроченная сессия не должна приниматься")
		}
	})

	t.Run("без cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if _, _, ok := sm.Load(req); ok {
			t.Error("запрос без cookie не должен давать сессию")
		}
	})
}

// TestIsExpired проверяет буфер в 30 секунд до истечения токена.
func TestIsExpired(t *testing.T) {
	fresh := &SessionData{ExpiresAt: time.Now().Add(time.Hour).Unix()}
	if fresh.IsExpired() {
		t.Error("свежий токен не должен считаться истёкшим")
	}

	almostExpired := &SessionData{ExpiresAt: time.Now().Add(10 * time.Second).Unix()}
	if !almostExpired.IsExpired() {
		t.Error("токен с истечением менее чем через 30 секунд должен считаться истёкшим")
	}
}
