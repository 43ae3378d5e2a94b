package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"boomerang-backend/models"
)

func TestGetOrdersNewestFirst(t *testing.T) {
	db := freshDB()
	sessions, _ := newTestSessions(db)
	router := setupOrderRouter(db, sessions)
	user, token := seedTestUser(db, "shopper@example.com", "user")
	prod := seedProduct(db, "Boomerang", 20.00)
	older := seedOrder(db, user.ID, prod.ID, models.OrderStatusPaid)
	newer := seedOrder(db, user.ID, prod.ID, models.OrderStatusPaid)
	db.Exec("UPDATE orders SET created_at = datetime('now', '-1 day') WHERE id = ?", older.ID)
	db.Exec("UPDATE orders SET created_at = datetime('now') WHERE id = ?", newer.ID)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/orders", nil, token))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	orders := parseResponse(w)["orders"].([]interface{})
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	first := orders[0].(map[string]interface{})
	if first["id"] != newer.ID.String() {
		t.Errorf("expected newest order first, got %v", first["id"])
	}
}

func TestGetOrdersScopedToUser(t *testing.T) {
	db := freshDB()
	sessions, _ := newTestSessions(db)
	router := setupOrderRouter(db, sessions)
	other, _ := seedTestUser(db, "other@example.com", "user")
	_, token := seedTestUser(db, "mine@example.com", "user")
	prod := seedProduct(db, "Boomerang", 20.00)
	seedOrder(db, other.ID, prod.ID, models.OrderStatusPaid)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/orders", nil, token))

	orders := parseResponse(w)["orders"].([]interface{})
	if len(orders) != 0 {
		t.Errorf("expected no orders for this user, got %d", len(orders))
	}
}

func TestGetOrderCount(t *testing.T) {
	db := freshDB()
	sessions, _ := newTestSessions(db)
	router := setupOrderRouter(db, sessions)
	user, token := seedTestUser(db, "shopper@example.com", "user")
	prod := seedProduct(db, "Boomerang", 20.00)
	seedOrder(db, user.ID, prod.ID, models.OrderStatusPaid)
	seedOrder(db, user.ID, prod.ID, models.OrderStatusShipped)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/orders/count", nil, token))

	if count := parseResponse(w)["count"].(float64); count != 2 {
		t.Errorf("expected count 2, got %v", count)
	}
}

func TestGetOrderOwnerAndAdminAccess(t *testing.T) {
	db := freshDB()
	sessions, _ := newTestSessions(db)
	router := setupOrderRouter(db, sessions)
	owner, ownerToken := seedTestUser(db, "owner@example.com", "user")
	_, strangerToken := seedTestUser(db, "stranger@example.com", "user")
	_, adminToken := seedTestUser(db, "admin@example.com", "admin")
	prod := seedProduct(db, "Boomerang", 20.00)
	order := seedOrder(db, owner.ID, prod.ID, models.OrderStatusPaid)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/orders/"+order.ID.String(), nil, ownerToken))
	if w.Code != http.StatusOK {
		t.Errorf("owner expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/orders/"+order.ID.String(), nil, strangerToken))
	if w.Code != http.StatusForbidden {
		t.Errorf("stranger expected 403, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/orders/"+order.ID.String(), nil, adminToken))
	if w.Code != http.StatusOK {
		t.Errorf("admin expected 200, got %d", w.Code)
	}
}

func TestListAllOrdersFiltersByStatus(t *testing.T) {
	db := freshDB()
	sessions, _ := newTestSessions(db)
	router := setupOrderRouter(db, sessions)
	user, _ := seedTestUser(db, "shopper@example.com", "user")
	_, adminToken := seedTestUser(db, "admin@example.com", "admin")
	prod := seedProduct(db, "Boomerang", 20.00)
	seedOrder(db, user.ID, prod.ID, models.OrderStatusPaid)
	seedOrder(db, user.ID, prod.ID, models.OrderStatusShipped)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("GET", "/api/admin/orders?status=shipped", nil, adminToken))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	orders := parseResponse(w)["orders"].([]interface{})
	if len(orders) != 1 {
		t.Errorf("expected 1 shipped order, got %d", len(orders))
	}
}

func TestUpdateOrderStatusValidTransition(t *testing.T) {
	db := freshDB()
	sessions, _ := newTestSessions(db)
	router := setupOrderRouter(db, sessions)
	user, _ := seedTestUser(db, "shopper@example.com", "user")
	_, adminToken := seedTestUser(db, "admin@example.com", "admin")
	prod := seedProduct(db, "Boomerang", 20.00)
	order := seedOrder(db, user.ID, prod.ID, models.OrderStatusPaid)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/admin/orders/"+order.ID.String()+"/status",
		map[string]interface{}{"status": "shipped"}, adminToken))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var stored models.Order
	db.First(&stored, order.ID)
	if stored.Status != models.OrderStatusShipped {
		t.Errorf("expected shipped, got %s", stored.Status)
	}
}

func TestUpdateOrderStatusRejectsInvalidTransition(t *testing.T) {
	db := freshDB()
	sessions, _ := newTestSessions(db)
	router := setupOrderRouter(db, sessions)
	user, _ := seedTestUser(db, "shopper@example.com", "user")
	_, adminToken := seedTestUser(db, "admin@example.com", "admin")
	prod := seedProduct(db, "Boomerang", 20.00)
	order := seedOrder(db, user.ID, prod.ID, models.OrderStatusDelivered)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, authRequest("PUT", "/api/admin/orders/"+order.ID.String()+"/status",
		map[string]interface{}{"status": "pending"}, adminToken))

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for delivered->pending, got %d", w.Code)
	}
}

func TestPaymentWebhookRequiresSecret(t *testing.T) {
	db := freshDB()
	sessions, _ := newTestSessions(db)
	router := setupOrderRouter(db, sessions)
	user, _ := seedTestUser(db, "shopper@example.com", "user")

	req := jsonRequest("POST", "/api/webhooks/payment", map[string]interface{}{
		"session_id": "cs_test", "user_id": user.ID, "status": "complete",
	})
	req.Header.Set("X-Webhook-Secret", "wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestPaymentWebhookCreatesOrderAndClearsCart(t *testing.T) {
	db := freshDB()
	sessions, _ := newTestSessions(db)
	router := setupOrderRouter(db, sessions)
	user, _ := seedTestUser(db, "shopper@example.com", "user")
	prod := seedProduct(db, "Boomerang", 100.00)
	db.Model(&prod).Update("discount", 10)
	prod.Discount = 10
	addr := seedAddress(db, user.ID, "Home", true)

	s := sessions.Get(user.ID)
	s.Cart.AddItem(prod, 2)
	s.Addresses.Load()

	req := jsonRequest("POST", "/api/webhooks/payment", map[string]interface{}{
		"session_id": "cs_webhook_1", "user_id": user.ID, "status": "complete",
	})
	req.Header.Set("X-Webhook-Secret", "test-webhook-secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var order models.Order
	if err := db.Preload("Items").Where("session_id = ?", "cs_webhook_1").First(&order).Error; err != nil {
		t.Fatalf("order not created: %v", err)
	}
	if order.Status != models.OrderStatusPaid {
		t.Errorf("expected paid status, got %s", order.Status)
	}
	if order.Total != 180.00 {
		t.Errorf("expected total 180 with discount, got %v", order.Total)
	}
	if order.ShipName != addr.Name || order.ShipStreet != addr.Street {
		t.Errorf("expected address snapshot, got %+v", order)
	}
	if len(order.Items) != 1 || order.Items[0].Price != 90.00 || order.Items[0].Title != "Boomerang" {
		t.Errorf("unexpected order items: %+v", order.Items)
	}

	// Stock decremented.
	var stored models.Product
	db.First(&stored, prod.ID)
	if stored.Stock != 98 {
		t.Errorf("expected stock 98, got %d", stored.Stock)
	}

	// Cart cleared.
	if s.Cart.Count() != 0 {
		t.Errorf("expected cart cleared, got count %d", s.Cart.Count())
	}
}

func TestPaymentWebhookIdempotent(t *testing.T) {
	db := freshDB()
	sessions, _ := newTestSessions(db)
	router := setupOrderRouter(db, sessions)
	user, _ := seedTestUser(db, "shopper@example.com", "user")
	prod := seedProduct(db, "Boomerang", 20.00)

	s := sessions.Get(user.ID)
	s.Cart.AddItem(prod, 1)

	send := func() *httptest.ResponseRecorder {
		req := jsonRequest("POST", "/api/webhooks/payment", map[string]interface{}{
			"session_id": "cs_replay", "user_id": user.ID, "status": "complete",
		})
		req.Header.Set("X-Webhook-Secret", "test-webhook-secret")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	if w := send(); w.Code != http.StatusCreated {
		t.Fatalf("expected 201 on first delivery, got %d: %s", w.Code, w.Body.String())
	}
	if w := send(); w.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d: %s", w.Code, w.Body.String())
	}

	var count int64
	db.Model(&models.Order{}).Where("session_id = ?", "cs_replay").Count(&count)
	if count != 1 {
		t.Errorf("expected exactly one order, got %d", count)
	}
}

func TestPaymentWebhookRejectsInsufficientStock(t *testing.T) {
	db := freshDB()
	sessions, _ := newTestSessions(db)
	router := setupOrderRouter(db, sessions)
	user, _ := seedTestUser(db, "shopper@example.com", "user")
	prod := seedProduct(db, "Last One", 20.00)
	db.Model(&prod).Update("stock", 1)

	s := sessions.Get(user.ID)
	s.Cart.AddItem(prod, 5)

	req := jsonRequest("POST", "/api/webhooks/payment", map[string]interface{}{
		"session_id": "cs_oversold", "user_id": user.ID, "status": "complete",
	})
	req.Header.Set("X-Webhook-Secret", "test-webhook-secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}

	// The whole transaction rolls back: no order, stock untouched.
	var count int64
	db.Model(&models.Order{}).Where("session_id = ?", "cs_oversold").Count(&count)
	if count != 0 {
		t.Errorf("expected no order recorded, got %d", count)
	}
	var stored models.Product
	db.First(&stored, prod.ID)
	if stored.Stock != 1 {
		t.Errorf("expected stock untouched at 1, got %d", stored.Stock)
	}

	// The cart survives so the shopper can adjust quantities.
	if s.Cart.Count() != 5 {
		t.Errorf("expected cart preserved, got count %d", s.Cart.Count())
	}
}

func TestPaymentWebhookIgnoresIncompleteEvents(t *testing.T) {
	db := freshDB()
	sessions, _ := newTestSessions(db)
	router := setupOrderRouter(db, sessions)
	user, _ := seedTestUser(db, "shopper@example.com", "user")
	prod := seedProduct(db, "Boomerang", 20.00)
	sessions.Get(user.ID).Cart.AddItem(prod, 1)

	req := jsonRequest("POST", "/api/webhooks/payment", map[string]interface{}{
		"session_id": "cs_expired", "user_id": user.ID, "status": "expired",
	})
	req.Header.Set("X-Webhook-Secret", "test-webhook-secret")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var count int64
	db.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Errorf("expected no order for an incomplete event, got %d", count)
	}
	if sessions.Get(user.ID).Cart.Count() != 1 {
		t.Error("cart must survive an ignored event")
	}
}
