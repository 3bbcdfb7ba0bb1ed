// Package testutil holds helpers shared by the registry test suites.
//
// It must not import hid, whose internal tests use it.
package testutil

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

// Object is a stand-in for a registered library object.
type Object struct {
	Name string
	ID   int
}

// NewObjects returns n distinct objects named prefix-0, prefix-1, ...
func NewObjects(prefix string, n int) []*Object {
	out := make([]*Object, n)
	for i := range out {
		out[i] = &Object{Name: prefix, ID: i}
	}
	return out
}

// NewLogger returns a debug-level JSON logger writing into the returned buffer.
//
// Example:
//
//	log, buf := testutil.NewLogger(t)
//	reg := hid.New(hid.Config{Logger: log})
//	...
//	require.Equal(t, 1, testutil.CountRecords(t, buf, "hid: forced clear ignored release failures"))
func NewLogger(t *testing.T) (*slog.Logger, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})), buf
}

// Records decodes every JSON log record written to buf.
func Records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	dec := json.NewDecoder(bytes.NewReader(buf.Bytes()))
	for dec.More() {
		rec := map[string]any{}
		if err := dec.Decode(&rec); err != nil {
			t.Fatalf("decode log record: %v", err)
		}
		out = append(out, rec)
	}
	return out
}

// CountRecords returns how many records in buf carry the message msg.
func CountRecords(t *testing.T, buf *bytes.Buffer, msg string) int {
	t.Helper()
	n := 0
	for _, rec := range Records(t, buf) {
		if rec["msg"] == msg {
			n++
		}
	}
	return n
}
