// Package models holds the grid area entity and its value objects.
package models

import (
	"regexp"
	"strings"
	"time"

	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
)

var codePattern = regexp.MustCompile(`^[0-9]{3}$`)

// Code is the three digit public identifier of a grid area.
type Code string

func ParseCode(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if !codePattern.MatchString(s) {
		return "", dErrors.Validation("grid_area.code.invalid", "grid area code must be three digits")
	}
	return Code(s), nil
}

type PriceAreaCode string

const (
	PriceAreaDK1 PriceAreaCode = "DK1"
	PriceAreaDK2 PriceAreaCode = "DK2"
)

func ParsePriceAreaCode(s string) (PriceAreaCode, error) {
	switch p := PriceAreaCode(strings.ToUpper(strings.TrimSpace(s))); p {
	case PriceAreaDK1, PriceAreaDK2:
		return p, nil
	default:
		return "", dErrors.Validation("grid_area.price_area_code.invalid", "price area code must be DK1 or DK2")
	}
}

type Type string

const (
	TypeTransmission      Type = "Transmission"
	TypeDistribution      Type = "Distribution"
	TypeOther             Type = "Other"
	TypeNotGridArea       Type = "NotGridArea"
	TypeGridLossDK        Type = "GridLossDK"
	TypeGridLossAbroad    Type = "GridLossAbroad"
	TypeAboveDistribution Type = "AboveDistribution"
)

func (t Type) IsValid() bool {
	switch t {
	case TypeTransmission, TypeDistribution, TypeOther, TypeNotGridArea,
		TypeGridLossDK, TypeGridLossAbroad, TypeAboveDistribution:
		return true
	}
	return false
}

// GridArea is a geographic network region. ValidTo is nil while the grid
// area is in use.
type GridArea struct {
	ID            id.GridAreaID `json:"id"`
	Code          Code          `json:"code"`
	Name          string        `json:"name"`
	PriceAreaCode PriceAreaCode `json:"price_area_code"`
	Type          Type          `json:"type"`
	ValidFrom     time.Time     `json:"valid_from"`
	ValidTo       *time.Time    `json:"valid_to,omitempty"`
}

// NewGridArea validates the attributes of a grid area that has not been
// persisted yet. Its ID stays nil until then.
func NewGridArea(code Code, name string, price PriceAreaCode, gridType Type, validFrom time.Time, validTo *time.Time) (*GridArea, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.Validation("grid_area.name.required", "grid area name is required")
	}
	if !gridType.IsValid() {
		return nil, dErrors.Validation("grid_area.type.invalid", "unknown grid area type "+string(gridType))
	}
	g := &GridArea{
		Code:          code,
		Name:          name,
		PriceAreaCode: price,
		Type:          gridType,
		ValidFrom:     validFrom.UTC(),
	}
	if err := g.SetValidTo(validTo); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *GridArea) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return dErrors.Validation("grid_area.name.required", "grid area name is required")
	}
	g.Name = name
	return nil
}

// SetValidTo ends the grid area's validity. nil reopens it.
func (g *GridArea) SetValidTo(validTo *time.Time) error {
	if validTo == nil {
		g.ValidTo = nil
		return nil
	}
	if !validTo.After(g.ValidFrom) {
		return dErrors.Validation("grid_area.valid_to.before_valid_from", "grid area must end after it starts")
	}
	v := validTo.UTC()
	g.ValidTo = &v
	return nil
}

func (g *GridArea) Clone() *GridArea {
	c := *g
	if g.ValidTo != nil {
		v := *g.ValidTo
		c.ValidTo = &v
	}
	return &c
}
