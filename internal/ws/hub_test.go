package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tably-pos/api/internal/database"
	"github.com/tably-pos/api/internal/service"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, branchID uuid.UUID) *Client {
	return &Client{
		hub:      hub,
		branchID: branchID,
		send:     make(chan []byte, 256),
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	client := mockClient(hub, branchID)

	hub.register <- client

	// Give hub time to process
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	if hub.rooms[branchID] == nil {
		t.Fatal("branch room not created")
	}
	if !hub.rooms[branchID][client] {
		t.Fatal("client not registered in branch room")
	}
}

func TestHubUnregistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	client := mockClient(hub, branchID)

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()

	// Room should be cleaned up when empty
	if hub.rooms[branchID] != nil {
		t.Fatal("branch room not cleaned up after last client unregistered")
	}
}

func TestBroadcastToSingleBranch(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branch1 := uuid.New()
	branch2 := uuid.New()

	client1 := mockClient(hub, branch1)
	client2 := mockClient(hub, branch2)

	hub.register <- client1
	hub.register <- client2
	time.Sleep(10 * time.Millisecond)

	testPayload := json.RawMessage(`{"id":"test-123"}`)
	event := Event{
		Type:    EventOrderCreated,
		Payload: testPayload,
	}
	hub.BroadcastToBranch(branch1, event)

	select {
	case msg := <-client1.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != EventOrderCreated {
			t.Errorf("expected type %q, got %q", EventOrderCreated, received.Type)
		}
		if string(received.Payload) != string(testPayload) {
			t.Errorf("expected payload '%s', got '%s'", testPayload, received.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client1 did not receive message")
	}

	select {
	case <-client2.send:
		t.Fatal("client2 should not have received message for different branch")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message received
	}
}

func TestBroadcastToMultipleClientsInSameBranch(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	client1 := mockClient(hub, branchID)
	client2 := mockClient(hub, branchID)
	client3 := mockClient(hub, branchID)

	hub.register <- client1
	hub.register <- client2
	hub.register <- client3
	time.Sleep(10 * time.Millisecond)

	event := Event{
		Type:    EventOrderUpdated,
		Payload: json.RawMessage(`{"status":"ready"}`),
	}
	hub.BroadcastToBranch(branchID, event)

	clients := []*Client{client1, client2, client3}
	for i, client := range clients {
		select {
		case msg := <-client.send:
			var received Event
			if err := json.Unmarshal(msg, &received); err != nil {
				t.Fatalf("client%d: failed to unmarshal: %v", i+1, err)
			}
			if received.Type != EventOrderUpdated {
				t.Errorf("client%d: expected type %q, got %q", i+1, EventOrderUpdated, received.Type)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatalf("client%d did not receive message", i+1)
		}
	}
}

func TestHubBranchIsolation(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branch1 := uuid.New()
	branch2 := uuid.New()
	branch3 := uuid.New()

	clients := map[uuid.UUID][]*Client{
		branch1: {mockClient(hub, branch1), mockClient(hub, branch1)},
		branch2: {mockClient(hub, branch2), mockClient(hub, branch2)},
		branch3: {mockClient(hub, branch3), mockClient(hub, branch3)},
	}

	for _, clientList := range clients {
		for _, client := range clientList {
			hub.register <- client
		}
	}
	time.Sleep(10 * time.Millisecond)

	event := Event{
		Type:    EventTablesChanged,
		Payload: json.RawMessage(`[]`),
	}
	hub.BroadcastToBranch(branch2, event)

	for branchID, clientList := range clients {
		for i, client := range clientList {
			select {
			case msg := <-client.send:
				if branchID != branch2 {
					t.Fatalf("branch %s client %d should not receive message", branchID, i)
				}
				var received Event
				if err := json.Unmarshal(msg, &received); err != nil {
					t.Fatalf("unmarshal error: %v", err)
				}
				if received.Type != EventTablesChanged {
					t.Errorf("wrong event type: %s", received.Type)
				}
			case <-time.After(50 * time.Millisecond):
				if branchID == branch2 {
					t.Fatalf("branch2 client %d should have received message", i)
				}
				// Expected for other branches
			}
		}
	}
}

func TestBroadcastToEmptyBranch(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branch1 := uuid.New()
	client1 := mockClient(hub, branch1)
	hub.register <- client1
	time.Sleep(10 * time.Millisecond)

	hub.BroadcastToBranch(uuid.New(), Event{
		Type:    EventOrderCreated,
		Payload: json.RawMessage(`{"test":"data"}`),
	})

	select {
	case <-client1.send:
		t.Fatal("client should not receive message for different branch")
	case <-time.After(50 * time.Millisecond):
		// Expected - no message
	}
}

func TestPublisherOrderCreatedPayload(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	branchID := uuid.New()
	client := mockClient(hub, branchID)
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	pub := NewPublisher(hub)
	orderID := uuid.New()
	pub.OrderCreated(branchID, &service.OrderResult{
		Order: database.Order{
			ID:            orderID,
			BranchID:      branchID,
			Status:        "new",
			PaymentStatus: "unpaid",
			TotalAmount:   makeNumericWS("23.00"),
		},
		Items: []database.OrderItem{{
			ID:        uuid.New(),
			OrderID:   orderID,
			Quantity:  2,
			LineTotal: makeNumericWS("23.00"),
			Modifiers: []byte(`[{"name":"Cheese"}]`),
			Status:    "new",
		}},
		KitchenStatus: "new",
	})

	select {
	case msg := <-client.send:
		var received Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		if received.Type != EventOrderCreated {
			t.Fatalf("type = %q, want %q", received.Type, EventOrderCreated)
		}
		var payload orderEvent
		if err := json.Unmarshal(received.Payload, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.ID != orderID.String() {
			t.Errorf("id = %q, want %q", payload.ID, orderID)
		}
		if payload.TotalAmount != "23.00" {
			t.Errorf("total = %q, want 23.00", payload.TotalAmount)
		}
		if payload.TableID != nil {
			t.Error("takeaway payload should omit table_id")
		}
		if len(payload.Items) != 1 || payload.Items[0].LineTotal != "23.00" {
			t.Errorf("items = %+v, want one line at 23.00", payload.Items)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client did not receive order_created")
	}
}

func makeNumericWS(val string) (n pgtype.Numeric) {
	_ = n.Scan(val)
	return n
}
