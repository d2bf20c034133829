// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestJSONLSink_AppendsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "telemetry.jsonl")
	sink, err := NewJSONLSink(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sink.Log(map[string]any{"frontier/accepted": 1})
	sink.Log(map[string]any{"curriculum/reward": 0.42})
	sink.LogText("judge/feedback", "format ok")

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var records []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var record map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			t.Fatalf("malformed line: %v", err)
		}
		records = append(records, record)
	}

	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if _, ok := records[0]["ts"]; !ok {
		t.Error("record missing ts field")
	}
	if records[1]["curriculum/reward"] != 0.42 {
		t.Errorf("reward = %v, want 0.42", records[1]["curriculum/reward"])
	}
	if records[2]["judge/feedback"] != "format ok" {
		t.Errorf("feedback = %v", records[2]["judge/feedback"])
	}
}

func TestJSONLSink_IgnoresEmptyPayload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.jsonl")
	sink, err := NewJSONLSink(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sink.Log(nil)
	sink.Log(map[string]any{})

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("empty payloads must not create the file")
	}
}

func TestBufferedSink_EntriesAndKeys(t *testing.T) {
	sink := NewBufferedSink()
	sink.Log(map[string]any{"a": 1})
	sink.Log(map[string]any{"b": 2, "a": 3})
	sink.LogText("c", "text")

	entries := sink.Entries()
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	keys := sink.Keys()
	if len(keys) != 3 {
		t.Fatalf("keys = %v, want 3 distinct", keys)
	}
	if keys[0] != "a" {
		t.Errorf("first-seen order broken: %v", keys)
	}
}

func TestBufferedSink_CopiesPayload(t *testing.T) {
	sink := NewBufferedSink()
	payload := map[string]any{"k": 1}
	sink.Log(payload)
	payload["k"] = 2

	if sink.Entries()[0]["k"] != 1 {
		t.Error("sink must copy payloads, not alias them")
	}
}

func TestNopSink(t *testing.T) {
	var sink Sink = NopSink{}
	sink.Log(map[string]any{"ignored": 1})
	sink.LogText("ignored", "text")
}
