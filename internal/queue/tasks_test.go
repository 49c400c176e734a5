package queue

import (
	"encoding/json"
	"testing"

	"github.com/movelink-next/internal/config"
)

func TestNewEscrowPayoutTask(t *testing.T) {
	task, err := NewEscrowPayoutTask(EscrowPayoutPayload{PaymentID: 7, RequestID: 3})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskEscrowPayout {
		t.Fatalf("unexpected task type: %s", task.Type())
	}
	var payload EscrowPayoutPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatalf("unmarshal payload failed: %v", err)
	}
	if payload.PaymentID != 7 || payload.RequestID != 3 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestDisabledClientEnqueueIsNoop(t *testing.T) {
	client, err := NewClient(nil)
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatal("client without config should be disabled")
	}

	// 禁用状态下入队是安静的 no-op
	if err := client.EnqueueNotificationDispatch(NotificationDispatchPayload{UserID: 1, Title: "t"}); err != nil {
		t.Fatalf("enqueue on disabled client failed: %v", err)
	}
	if err := client.EnqueueEscrowPayout(EscrowPayoutPayload{PaymentID: 1, RequestID: 1}); err != nil {
		t.Fatalf("enqueue on disabled client failed: %v", err)
	}
	if err := client.EnqueueRefundPayout(RefundPayoutPayload{RefundID: 1}); err != nil {
		t.Fatalf("enqueue on disabled client failed: %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("close disabled client failed: %v", err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Enabled: true, Host: "redis.internal", Port: 6380, DB: 2})
	if opt.Addr != "redis.internal:6380" {
		t.Fatalf("unexpected redis addr: %s", opt.Addr)
	}
	if opt.DB != 2 {
		t.Fatalf("unexpected redis db: %d", opt.DB)
	}
	if cfg.Concurrency != 10 {
		t.Fatalf("expected default concurrency 10, got: %d", cfg.Concurrency)
	}
	if cfg.Queues[DefaultQueue] != 1 {
		t.Fatalf("expected default queue weight 1, got: %+v", cfg.Queues)
	}
}
