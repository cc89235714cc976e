package models

import (
	"regexp"
	"strings"

	dErrors "marketparticipant/pkg/domain-errors"
)

// NumberKind tells the two actor number schemes apart.
type NumberKind string

const (
	NumberKindGLN NumberKind = "GLN"
	NumberKindEIC NumberKind = "EIC"
)

var (
	glnPattern = regexp.MustCompile(`^[0-9]{13}$`)
	eicPattern = regexp.MustCompile(`^[0-9]{2}[A-Z][A-Z0-9-]{12}[A-Z0-9]$`)
)

// ActorNumber is the market identifier of an actor: a 13 digit GLN with a
// GS1 check digit, or a 16 character EIC.
type ActorNumber struct {
	Value string     `json:"value"`
	Kind  NumberKind `json:"kind"`
}

// ParseActorNumber classifies and validates s.
func ParseActorNumber(s string) (ActorNumber, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	switch {
	case glnPattern.MatchString(v):
		if !validGLNCheckDigit(v) {
			return ActorNumber{}, dErrors.Validation("actor.number.invalid_check_digit", "GLN check digit does not match")
		}
		return ActorNumber{Value: v, Kind: NumberKindGLN}, nil
	case eicPattern.MatchString(v):
		return ActorNumber{Value: v, Kind: NumberKindEIC}, nil
	default:
		return ActorNumber{}, dErrors.Validation("actor.number.invalid", "actor number must be a GLN or an EIC")
	}
}

func validGLNCheckDigit(v string) bool {
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(v[i] - '0')
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	check := (10 - sum%10) % 10
	return check == int(v[12]-'0')
}

func (n ActorNumber) String() string { return n.Value }

func (n ActorNumber) IsZero() bool { return n.Value == "" }
