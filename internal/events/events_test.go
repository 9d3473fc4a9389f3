package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestEventJSONShape(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(Event{Type: TypeItemsAdded, List: "test-list", IPs: []string{"1.1.1.1"}, Actor: "superuser", At: at})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	want := `{"type":"list.items_added","list":"test-list","ips":["1.1.1.1"],"actor":"superuser","at":"2024-05-01T12:00:00Z"}`
	if string(payload) != want {
		t.Fatalf("payload = %s, want %s", payload, want)
	}
}

func TestRecorderAndNop(t *testing.T) {
	if err := (Nop{}).Publish(context.Background(), Event{Type: TypeListCreated}); err != nil {
		t.Fatalf("Nop.Publish returned error: %v", err)
	}

	var rec Recorder
	_ = rec.Publish(context.Background(), Event{Type: TypeListCreated, List: "a"})
	_ = rec.Publish(context.Background(), Event{Type: TypeListDeleted, List: "a"})
	if len(rec.Events) != 2 || rec.Events[1].Type != TypeListDeleted {
		t.Fatalf("unexpected recorded events: %+v", rec.Events)
	}
}
