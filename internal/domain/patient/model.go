package patient

import "time"

// Patient maps to one row of the patients table. Optional columns are
// pointers; nil is stored as NULL.
type Patient struct {
	PatientID     string     `db:"patient_id" json:"patient_id"`
	LastName      string     `db:"last_name" json:"last_name"`
	FirstName     string     `db:"first_name" json:"first_name"`
	DateOfBirth   *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	Gender        *string    `db:"gender" json:"gender,omitempty"`
	AddressStreet *string    `db:"address_street" json:"address_street,omitempty"`
	AddressCity   *string    `db:"address_city" json:"address_city,omitempty"`
	AddressState  *string    `db:"address_state" json:"address_state,omitempty"`
	AddressZip    *string    `db:"address_zip" json:"address_zip,omitempty"`
	MessageType   *string    `db:"hl7_message_type" json:"hl7_message_type,omitempty"`
	ReceivedDate  time.Time  `db:"received_date" json:"received_date"`
}

// HasID reports whether the record carries the business key required for
// storage.
func (p *Patient) HasID() bool {
	return p != nil && p.PatientID != ""
}

// Columns in insert and select order.
const patientCols = `PATIENT_ID, FIRST_NAME, LAST_NAME, DATE_OF_BIRTH, GENDER,
	ADDRESS_STREET, ADDRESS_CITY, ADDRESS_STATE, ADDRESS_ZIP,
	HL7_MESSAGE_TYPE, RECEIVED_DATE`

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
