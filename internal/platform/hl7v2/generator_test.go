package hl7v2

import (
	"strings"
	"testing"
	"time"
)

func testDemographics() Demographics {
	return Demographics{
		ID:        "P001",
		Family:    "Meier",
		Given:     "Anna",
		BirthDate: "19850315",
		Sex:       "F",
		Street:    "Hauptstr. 5",
		City:      "Berlin",
		State:     "BE",
		Zip:       "10115",
		Country:   "DE",
	}
}

var testTime = time.Date(2024, 3, 12, 8, 15, 0, 0, time.UTC)

// =========== ADT Tests ===========

func TestGenerateADT_A04(t *testing.T) {
	data, err := GenerateADT("A04", testDemographics(), testTime)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	raw := string(data)
	if !strings.HasPrefix(raw, "MSH|^~\\&|") {
		t.Error("expected message to start with MSH|^~\\&|")
	}
	if !strings.Contains(raw, "|ADT^A04|") {
		t.Error("expected ADT^A04 in message")
	}
	if !strings.Contains(raw, "EVN|A04|20240312081500") {
		t.Error("expected EVN segment with event timestamp")
	}
	if !strings.Contains(raw, "PID|1||P001||Meier^Anna||19850315|F|||Hauptstr. 5^^Berlin^BE^10115^DE") {
		t.Errorf("unexpected PID segment in %q", raw)
	}
	if !strings.Contains(raw, "\rPV1|1|O") {
		t.Error("expected PV1 segment")
	}
}

func TestGenerateADT_MissingEvent(t *testing.T) {
	if _, err := GenerateADT("", testDemographics(), testTime); err == nil {
		t.Fatal("expected error for empty event")
	}
}

func TestGenerateADT_RoundTrip(t *testing.T) {
	data, err := GenerateADT("A08", testDemographics(), testTime)
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}

	msg, err := Parse(data)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if msg.Type != "ADT^A08" {
		t.Errorf("expected Type 'ADT^A08', got %q", msg.Type)
	}
	if msg.Version != "2.5.1" {
		t.Errorf("expected Version '2.5.1', got %q", msg.Version)
	}
	if !msg.Timestamp.Equal(testTime) {
		t.Errorf("expected timestamp %v, got %v", testTime, msg.Timestamp)
	}

	pid := msg.GetSegment("PID")
	if pid.GetComponent(3, 1) != "P001" {
		t.Errorf("expected PID-3.1 'P001', got %q", pid.GetComponent(3, 1))
	}
	if pid.GetComponent(5, 1) != "Meier" || pid.GetComponent(5, 2) != "Anna" {
		t.Errorf("unexpected name %q", pid.GetField(5))
	}
	if pid.GetField(7) != "19850315" {
		t.Errorf("expected DOB '19850315', got %q", pid.GetField(7))
	}
	if pid.GetComponent(11, 3) != "Berlin" {
		t.Errorf("expected city 'Berlin', got %q", pid.GetComponent(11, 3))
	}
}

func TestGenerateADT_EscapesDelimiters(t *testing.T) {
	p := testDemographics()
	p.Family = "Smith|Jones"
	p.Given = "Ann^Marie"
	p.Street = "A&B Lane"

	data, err := GenerateADT("A01", p, testTime)
	if err != nil {
		t.Fatalf("generate error: %v", err)
	}

	msg, err := Parse(data)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	pid := msg.GetSegment("PID")
	if got := pid.GetComponent(5, 1); got != "Smith|Jones" {
		t.Errorf("expected family 'Smith|Jones', got %q", got)
	}
	if got := pid.GetComponent(5, 2); got != "Ann^Marie" {
		t.Errorf("expected given 'Ann^Marie', got %q", got)
	}
	if got := pid.GetComponent(11, 1); got != "A&B Lane" {
		t.Errorf("expected street 'A&B Lane', got %q", got)
	}
}

func TestBuildPID_MinimalPatient(t *testing.T) {
	pid := buildPID(Demographics{ID: "X1"})
	if pid != "PID|1||X1||||||||" {
		t.Errorf("unexpected minimal PID %q", pid)
	}
}
