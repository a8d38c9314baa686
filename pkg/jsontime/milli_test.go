package jsontime_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/isotranslate/iso/pkg/jsontime"
)

func TestMilliJSON(t *testing.T) {
	m := jsontime.FromUnixMilli(1712345678901)

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != "1712345678901" {
		t.Errorf("got %s, want 1712345678901", data)
	}

	var back jsontime.Milli
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.UnixMilli() != m.UnixMilli() {
		t.Errorf("round trip: got %d, want %d", back.UnixMilli(), m.UnixMilli())
	}
}

func TestMilliMsgpack(t *testing.T) {
	m := jsontime.FromUnixMilli(1712345678901)

	data, err := msgpack.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back jsontime.Milli
	if err := msgpack.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if back.UnixMilli() != m.UnixMilli() {
		t.Errorf("round trip: got %d, want %d", back.UnixMilli(), m.UnixMilli())
	}
}

func TestMilliArithmetic(t *testing.T) {
	a := jsontime.FromUnixMilli(1000)
	b := a.Add(2500 * time.Millisecond)

	if got := b.Sub(a); got != 2500*time.Millisecond {
		t.Errorf("Sub: got %v, want 2.5s", got)
	}
	if !b.After(a) {
		t.Error("After: b should be after a")
	}
	if a.IsZero() {
		t.Error("IsZero: a is not zero")
	}
}
