package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tably-pos/api/internal/auth"
	"github.com/tably-pos/api/internal/database"
	"github.com/tably-pos/api/internal/enum"
	"github.com/tably-pos/api/internal/service"
)

const testJWTSecret = "handler-test-secret"

func testClaims(branchID uuid.UUID) *auth.Claims {
	return &auth.Claims{
		UserID:   uuid.New(),
		BranchID: branchID,
		Role:     enum.UserRoleWaiter,
	}
}

// doAuthRequest performs a request with a real JWT minted from claims.
func doAuthRequest(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()

	token, err := auth.GenerateToken(testJWTSecret, claims.UserID, claims.BranchID, claims.Role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp["error"]
}

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

// sampleOrderResult builds a one-item order in the shape services return.
func sampleOrderResult(branchID uuid.UUID) *service.OrderResult {
	orderID := uuid.New()
	return &service.OrderResult{
		Order: database.Order{
			ID:            orderID,
			BranchID:      branchID,
			Status:        enum.OrderStatusNew,
			PaymentStatus: enum.PaymentStatusUnpaid,
			TotalAmount:   makeNumeric("23.00"),
		},
		Items: []database.OrderItem{{
			ID:          uuid.New(),
			OrderID:     orderID,
			MenuItemID:  uuid.New(),
			Quantity:    2,
			PriceAtTime: makeNumeric("10.00"),
			LineTotal:   makeNumeric("23.00"),
			Modifiers:   []byte(`[]`),
			Status:      enum.OrderItemStatusNew,
		}},
		KitchenStatus: enum.OrderStatusNew,
	}
}

// nopBroadcaster for handlers that publish directly.
type captureBroadcaster struct {
	service.NopBroadcaster
	tablesChanged int
	menuChanged   int
}

func (b *captureBroadcaster) TablesChanged(uuid.UUID, []service.TableResult) { b.tablesChanged++ }
func (b *captureBroadcaster) MenuChanged(uuid.UUID)                          { b.menuChanged++ }
