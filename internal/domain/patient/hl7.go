package patient

import (
	"regexp"
	"time"

	"github.com/ehr/hl7ingest/internal/platform/hl7v2"
)

// PID field positions. The identifier is PID-3 (patient identifier list);
// PID-2 is the deprecated external id and is not read.
const (
	pidIdentifier  = 3
	pidName        = 5
	pidDateOfBirth = 7
	pidSex         = 8
	pidAddress     = 11

	mshMessageType = 9
)

var birthDatePattern = regexp.MustCompile(`^[0-9]{8}$`)

// FromHL7 builds a Patient from a parsed message. It never fails: missing
// segments, fields and components degrade to empty strings or nil. A record
// whose PatientID is empty must not be stored.
func FromHL7(msg *hl7v2.Message, receivedAt time.Time) *Patient {
	p := &Patient{ReceivedDate: receivedAt}

	p.MessageType = messageType(msg.GetSegment("MSH"))

	pid := msg.GetSegment("PID")
	if pid == nil {
		return p
	}

	p.PatientID = pid.GetComponent(pidIdentifier, 1)

	if name := pid.FieldAt(pidName); !name.Empty() {
		p.LastName = name.Component(1)
		p.FirstName = name.Component(2)
	}

	p.DateOfBirth = parseBirthDate(pid.GetField(pidDateOfBirth))
	p.Gender = strPtr(pid.FieldAt(pidSex).Component(1))

	if addr := pid.FieldAt(pidAddress); !addr.Empty() {
		p.AddressStreet = strPtr(addr.Component(1))
		p.AddressCity = strPtr(addr.Component(3))
		p.AddressState = strPtr(addr.Component(4))
		p.AddressZip = strPtr(addr.Component(5))
	}

	return p
}

// messageType returns "<MSH-9.1>^<MSH-9.2>" when both parts are present.
func messageType(msh *hl7v2.Segment) *string {
	if msh == nil {
		return nil
	}
	f := msh.FieldAt(mshMessageType)
	code, event := f.Component(1), f.Component(2)
	if code == "" || event == "" {
		return nil
	}
	mt := code + "^" + event
	return &mt
}

// parseBirthDate accepts exactly YYYYMMDD. Anything else, including
// calendar-invalid dates, yields nil.
func parseBirthDate(s string) *time.Time {
	if !birthDatePattern.MatchString(s) {
		return nil
	}
	t, err := time.Parse("20060102", s)
	if err != nil {
		return nil
	}
	return &t
}
