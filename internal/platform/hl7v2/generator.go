package hl7v2

import (
	"fmt"
	"strings"
	"time"
)

// Demographics is the subset of PID content the generator can write.
// BirthDate is expected in YYYYMMDD form and is written verbatim.
type Demographics struct {
	ID        string
	Family    string
	Given     string
	BirthDate string
	Sex       string
	Street    string
	City      string
	State     string
	Zip       string
	Country   string
}

// GenerateADT generates an ADT (Admit/Discharge/Transfer) HL7v2 message.
// event is the ADT event code: "A01" (admit), "A03" (discharge),
// "A04" (register), "A08" (update).
func GenerateADT(event string, p Demographics, at time.Time) ([]byte, error) {
	if event == "" {
		return nil, fmt.Errorf("hl7v2: event is required")
	}

	segments := []string{
		buildMSH("ADT", event, at),
		buildEVN(event, at),
		buildPID(p),
		"PV1|1|O",
	}
	return []byte(strings.Join(segments, "\r")), nil
}

// buildMSH constructs an MSH segment header for the given message type and trigger event.
func buildMSH(msgType, trigger string, at time.Time) string {
	at = at.UTC()
	timestamp := at.Format("20060102150405")
	controlID := fmt.Sprintf("MSG%s", at.Format("20060102150405.000"))

	return fmt.Sprintf("MSH|^~\\&|HL7INGEST|SAMPLE|PatientApp|PatientFac|%s||%s^%s|%s|P|2.5.1",
		timestamp, msgType, trigger, controlID)
}

// buildEVN constructs an EVN (event type) segment.
func buildEVN(event string, at time.Time) string {
	return fmt.Sprintf("EVN|%s|%s", event, at.UTC().Format("20060102150405"))
}

// buildPID constructs a PID (patient identification) segment.
// Layout: PID-3 identifier, PID-5 family^given, PID-7 birth date, PID-8 sex,
// PID-11 street^^city^state^zip^country.
func buildPID(p Demographics) string {
	name := ""
	if p.Family != "" || p.Given != "" {
		name = escapeHL7(p.Family) + "^" + escapeHL7(p.Given)
	}

	address := ""
	if p.Street != "" || p.City != "" || p.State != "" || p.Zip != "" || p.Country != "" {
		address = fmt.Sprintf("%s^^%s^%s^%s^%s",
			escapeHL7(p.Street), escapeHL7(p.City), escapeHL7(p.State), escapeHL7(p.Zip), escapeHL7(p.Country))
	}

	return fmt.Sprintf("PID|1||%s||%s||%s|%s|||%s",
		escapeHL7(p.ID), name, escapeHL7(p.BirthDate), escapeHL7(p.Sex), address)
}

func escapeHL7(s string) string {
	return Escape(s, DefaultDelimiters)
}
