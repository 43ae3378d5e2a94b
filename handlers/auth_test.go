package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"boomerang-backend/config"
	"boomerang-backend/models"
)

func TestRegisterCreatesUser(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/register", map[string]interface{}{
		"email":    "shopper@example.com",
		"password": "password123",
		"name":     "Shopper",
	}))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["token"] == nil || resp["refresh_token"] == nil {
		t.Error("expected token pair in response")
	}
	user := resp["user"].(map[string]interface{})
	if user["role"] != "user" {
		t.Errorf("expected role user, got %v", user["role"])
	}
}

func TestRegisterRoleNotSettableFromRequest(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	// A "role" field in the request body must be ignored.
	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/register", map[string]interface{}{
		"email":    "sneaky@example.com",
		"password": "password123",
		"role":     "admin",
	}))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var stored models.User
	db.Where("email = ?", "sneaky@example.com").First(&stored)
	if stored.Role != "user" {
		t.Errorf("expected stored role user, got %s", stored.Role)
	}
}

func TestRegisterAdminEmailGetsAdminRole(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/register", map[string]interface{}{
		"email":    config.DefaultAdminEmail,
		"password": "password123",
	}))

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	user := parseResponse(w)["user"].(map[string]interface{})
	if user["role"] != "admin" {
		t.Errorf("expected admin role for the admin email, got %v", user["role"])
	}

	var rec models.UserRole
	if err := db.Where("email = ?", config.DefaultAdminEmail).First(&rec).Error; err != nil {
		t.Fatalf("expected durable role record: %v", err)
	}
	if rec.Role != "admin" {
		t.Errorf("expected durable record role admin, got %s", rec.Role)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)
	seedTestUser(db, "taken@example.com", "user")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/register", map[string]interface{}{
		"email":    "taken@example.com",
		"password": "password123",
	}))

	if w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestRegisterShortPassword(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/register", map[string]interface{}{
		"email":    "short@example.com",
		"password": "short",
	}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestLoginSuccess(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)
	seedTestUser(db, "login@example.com", "user")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/login", map[string]interface{}{
		"email":    "login@example.com",
		"password": "password123",
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["token"] == nil {
		t.Error("expected token in response")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)
	seedTestUser(db, "login@example.com", "user")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/login", map[string]interface{}{
		"email":    "login@example.com",
		"password": "wrong-password",
	}))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestLoginCorrectsDriftedRole(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)
	user, _ := seedTestUser(db, "drift@example.com", "user")

	// A role record that was somehow written as admin for a non-admin
	// email gets corrected on the next sign-in.
	db.Create(&models.UserRole{UID: user.ID, Email: user.Email, Role: "admin"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/login", map[string]interface{}{
		"email":    "drift@example.com",
		"password": "password123",
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	respUser := parseResponse(w)["user"].(map[string]interface{})
	if respUser["role"] != "user" {
		t.Errorf("expected corrected role user, got %v", respUser["role"])
	}

	var rec models.UserRole
	db.Where("uid = ?", user.ID).First(&rec)
	if rec.Role != "user" {
		t.Errorf("expected durable record corrected to user, got %s", rec.Role)
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/register", map[string]interface{}{
		"email":    "rotate@example.com",
		"password": "password123",
	}))
	oldRefresh := parseResponse(w)["refresh_token"].(string)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/refresh", map[string]interface{}{
		"refresh_token": oldRefresh,
	}))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	newRefresh := parseResponse(w)["refresh_token"].(string)
	if newRefresh == oldRefresh {
		t.Error("expected a rotated refresh token")
	}

	// The old token is revoked and cannot be replayed.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/refresh", map[string]interface{}{
		"refresh_token": oldRefresh,
	}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 replaying revoked token, got %d", w.Code)
	}
}

func TestGetProfile(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)
	_, token := seedTestUser(db, "profile@example.com", "user")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/auth/profile", nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["email"] != "profile@example.com" {
		t.Errorf("unexpected profile email: %v", resp["email"])
	}
}

func TestUpdateProfile(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)
	user, token := seedTestUser(db, "update@example.com", "user")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/auth/profile", map[string]interface{}{
		"name":      "New Name",
		"photo_url": "https://example.com/avatar.png",
	}, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var stored models.User
	db.First(&stored, user.ID)
	if stored.Name != "New Name" || stored.PhotoURL != "https://example.com/avatar.png" {
		t.Errorf("profile not updated: %+v", stored)
	}
}

func TestGetRoleServesDurableRecord(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)
	user, token := seedTestUser(db, "role@example.com", "user")
	db.Create(&models.UserRole{UID: user.ID, Email: user.Email, Role: "user"})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/auth/role", nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	resp := parseResponse(w)
	if resp["role"] != "user" {
		t.Errorf("expected role user, got %v", resp["role"])
	}
	if resp["fallback"] != false {
		t.Errorf("expected durable answer, got fallback=%v", resp["fallback"])
	}
}

func TestGetRoleUnknownUser(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)
	user, token := seedTestUser(db, "norec@example.com", "user")
	// No role record exists for this uid.
	db.Where("uid = ?", user.ID).Delete(&models.UserRole{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/auth/role", nil, token))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestLogoutRevokesRefreshTokens(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/register", map[string]interface{}{
		"email":    "bye@example.com",
		"password": "password123",
	}))
	resp := parseResponse(w)
	token := resp["token"].(string)
	refresh := resp["refresh_token"].(string)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("POST", "/api/auth/logout", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("POST", "/api/auth/refresh", map[string]interface{}{
		"refresh_token": refresh,
	}))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 after logout, got %d", w.Code)
	}
}

func TestProfileRequiresAuth(t *testing.T) {
	db := freshDB()
	router := setupAuthRouter(db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest("GET", "/api/auth/profile", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}
