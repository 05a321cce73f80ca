package schemas

import (
	"go.uber.org/zap/zapcore"
)

// -- Registration Identity Schemas --

// Mailbox is a disposable inbox on the temporary-mail provider.
type Mailbox struct {
	Address   string `json:"address"`
	LocalPart string `json:"local_part"`
	Domain    string `json:"domain"`
	// Token is the random component of the local part.
	Token string `json:"token"`
}

// Identity is the synthetic registrant for one run. It is generated once and
// passed by value.
type Identity struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Password  string  `json:"-"`
	Phone     string  `json:"phone"`
	AltPhone  string  `json:"alt_phone"`
	Mailbox   Mailbox `json:"mailbox"`
}

func (i Identity) Email() string { return i.Mailbox.Address }

func (i Identity) FullName() string { return i.FirstName + " " + i.LastName }

// MarshalLogObject implements zapcore.ObjectMarshaler. The password is never
// written.
func (i Identity) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("first_name", i.FirstName)
	enc.AddString("last_name", i.LastName)
	enc.AddString("email", i.Mailbox.Address)
	enc.AddString("phone", i.Phone)
	return nil
}

// VerificationCode is a 6-digit one-time code delivered by email.
type VerificationCode string

func (c VerificationCode) String() string { return string(c) }
