// Package marketrole defines the market-role functions an actor can hold and
// the grid areas it is authorized for under that function.
package marketrole

import (
	"slices"
	"strings"

	id "marketparticipant/pkg/domain"
	dErrors "marketparticipant/pkg/domain-errors"
)

// EicFunction is a market-role function.
type EicFunction string

const (
	BalanceResponsibleParty        EicFunction = "BalanceResponsibleParty"
	BillingAgent                   EicFunction = "BillingAgent"
	EnergySupplier                 EicFunction = "EnergySupplier"
	GridAccessProvider             EicFunction = "GridAccessProvider"
	ImbalanceSettlementResponsible EicFunction = "ImbalanceSettlementResponsible"
	MeterOperator                  EicFunction = "MeterOperator"
	MeteredDataAdministrator       EicFunction = "MeteredDataAdministrator"
	MeteredDataResponsible         EicFunction = "MeteredDataResponsible"
	MeteringPointAdministrator     EicFunction = "MeteringPointAdministrator"
	SystemOperator                 EicFunction = "SystemOperator"
	DanishEnergyAgency             EicFunction = "DanishEnergyAgency"
	DataHubAdministrator           EicFunction = "DataHubAdministrator"
	IndependentAggregator          EicFunction = "IndependentAggregator"
	SerialEnergyTrader             EicFunction = "SerialEnergyTrader"
	Delegated                      EicFunction = "Delegated"
	ItSupplier                     EicFunction = "ItSupplier"
)

// AllFunctions lists every known function in declaration order.
var AllFunctions = []EicFunction{
	BalanceResponsibleParty,
	BillingAgent,
	EnergySupplier,
	GridAccessProvider,
	ImbalanceSettlementResponsible,
	MeterOperator,
	MeteredDataAdministrator,
	MeteredDataResponsible,
	MeteringPointAdministrator,
	SystemOperator,
	DanishEnergyAgency,
	DataHubAdministrator,
	IndependentAggregator,
	SerialEnergyTrader,
	Delegated,
	ItSupplier,
}

func (f EicFunction) IsValid() bool {
	return slices.Contains(AllFunctions, f)
}

func (f EicFunction) String() string { return string(f) }

// RequiresUniqueGridAreas reports whether at most one actor may hold a grid
// area under this function.
func (f EicFunction) RequiresUniqueGridAreas() bool {
	return f == GridAccessProvider
}

// ParseEicFunction accepts the function name case-insensitively.
func ParseEicFunction(s string) (EicFunction, error) {
	for _, f := range AllFunctions {
		if strings.EqualFold(string(f), strings.TrimSpace(s)) {
			return f, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown market role function %q", s)
}

// MeteringPointType classifies metering points within a grid area.
type MeteringPointType string

const (
	MeteringPointConsumption         MeteringPointType = "E17"
	MeteringPointProduction          MeteringPointType = "E18"
	MeteringPointExchange            MeteringPointType = "E20"
	MeteringPointVEProduction        MeteringPointType = "D01"
	MeteringPointAnalysis            MeteringPointType = "D02"
	MeteringPointNotUsed             MeteringPointType = "D03"
	MeteringPointSurplusProduction   MeteringPointType = "D04"
	MeteringPointNetProduction       MeteringPointType = "D05"
	MeteringPointSupplyToGrid        MeteringPointType = "D06"
	MeteringPointConsumptionFromGrid MeteringPointType = "D07"
	MeteringPointWholesaleServices   MeteringPointType = "D08"
	MeteringPointOwnProduction       MeteringPointType = "D09"
	MeteringPointNetFromGrid         MeteringPointType = "D10"
	MeteringPointNetToGrid           MeteringPointType = "D11"
	MeteringPointTotalConsumption    MeteringPointType = "D12"
	MeteringPointElectricalHeating   MeteringPointType = "D14"
	MeteringPointNetConsumption      MeteringPointType = "D15"
	MeteringPointOtherConsumption    MeteringPointType = "D17"
	MeteringPointOtherProduction     MeteringPointType = "D18"
	MeteringPointExchangeReactive    MeteringPointType = "D20"
	MeteringPointInternalUse         MeteringPointType = "D99"
)

var allMeteringPointTypes = []MeteringPointType{
	MeteringPointConsumption, MeteringPointProduction, MeteringPointExchange,
	MeteringPointVEProduction, MeteringPointAnalysis, MeteringPointNotUsed,
	MeteringPointSurplusProduction, MeteringPointNetProduction, MeteringPointSupplyToGrid,
	MeteringPointConsumptionFromGrid, MeteringPointWholesaleServices, MeteringPointOwnProduction,
	MeteringPointNetFromGrid, MeteringPointNetToGrid, MeteringPointTotalConsumption,
	MeteringPointElectricalHeating, MeteringPointNetConsumption, MeteringPointOtherConsumption,
	MeteringPointOtherProduction, MeteringPointExchangeReactive, MeteringPointInternalUse,
}

func (t MeteringPointType) IsValid() bool {
	return slices.Contains(allMeteringPointTypes, t)
}

// ActorGridArea is a grid area an actor is authorized for, with the metering
// point types it handles there.
type ActorGridArea struct {
	GridAreaID         id.GridAreaID       `json:"grid_area_id"`
	MeteringPointTypes []MeteringPointType `json:"metering_point_types,omitempty"`
}

// ActorMarketRole is the single market role an actor holds.
//
// Invariants:
//   - Function is a known EicFunction
//   - GridAreas are distinct by GridAreaID
//   - metering point types are known values
type ActorMarketRole struct {
	Function  EicFunction     `json:"function"`
	GridAreas []ActorGridArea `json:"grid_areas"`
	Comment   string          `json:"comment,omitempty"`
}

// New validates and builds a market role. The grid-area slice is copied.
func New(function EicFunction, gridAreas []ActorGridArea, comment string) (ActorMarketRole, error) {
	role := ActorMarketRole{
		Function:  function,
		GridAreas: slices.Clone(gridAreas),
		Comment:   comment,
	}
	if err := role.Validate(); err != nil {
		return ActorMarketRole{}, err
	}
	return role, nil
}

// Validate checks the role invariants.
func (r ActorMarketRole) Validate() error {
	if !r.Function.IsValid() {
		return dErrors.Validation("actor.market_role.invalid_function", "unknown market role function")
	}
	seen := make(map[id.GridAreaID]struct{}, len(r.GridAreas))
	for _, ga := range r.GridAreas {
		if ga.GridAreaID.IsNil() {
			return dErrors.Validation("actor.market_role.grid_area_required", "grid area id is required")
		}
		if _, dup := seen[ga.GridAreaID]; dup {
			return dErrors.Validation("actor.market_role.duplicate_grid_area", "grid area is listed twice in the market role")
		}
		seen[ga.GridAreaID] = struct{}{}
		for _, mpt := range ga.MeteringPointTypes {
			if !mpt.IsValid() {
				return dErrors.Validation("actor.market_role.invalid_metering_point_type", "unknown metering point type "+string(mpt))
			}
		}
	}
	return nil
}

// GridAreaIDs returns the ids of the role's grid areas in role order.
func (r ActorMarketRole) GridAreaIDs() []id.GridAreaID {
	ids := make([]id.GridAreaID, 0, len(r.GridAreas))
	for _, ga := range r.GridAreas {
		ids = append(ids, ga.GridAreaID)
	}
	return ids
}

// HasGridArea reports whether the role grants authority over gridAreaID.
func (r ActorMarketRole) HasGridArea(gridAreaID id.GridAreaID) bool {
	return slices.ContainsFunc(r.GridAreas, func(ga ActorGridArea) bool {
		return ga.GridAreaID == gridAreaID
	})
}

// WithGridAreas returns a copy of the role holding exactly gridAreas.
func (r ActorMarketRole) WithGridAreas(gridAreas []ActorGridArea) ActorMarketRole {
	r.GridAreas = slices.Clone(gridAreas)
	return r
}

// Equal compares function, comment and the grid-area set irrespective of order.
func (r ActorMarketRole) Equal(o ActorMarketRole) bool {
	if r.Function != o.Function || r.Comment != o.Comment || len(r.GridAreas) != len(o.GridAreas) {
		return false
	}
	for _, ga := range r.GridAreas {
		idx := slices.IndexFunc(o.GridAreas, func(x ActorGridArea) bool { return x.GridAreaID == ga.GridAreaID })
		if idx < 0 {
			return false
		}
		a := slices.Clone(ga.MeteringPointTypes)
		b := slices.Clone(o.GridAreas[idx].MeteringPointTypes)
		slices.Sort(a)
		slices.Sort(b)
		if !slices.Equal(a, b) {
			return false
		}
	}
	return true
}

// String renders the role for audit output, e.g.
// "GridAccessProvider[<grid>:E17,E18;<grid>]".
func (r ActorMarketRole) String() string {
	var b strings.Builder
	b.WriteString(string(r.Function))
	b.WriteByte('[')
	for i, ga := range r.GridAreas {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(ga.GridAreaID.String())
		if len(ga.MeteringPointTypes) > 0 {
			b.WriteByte(':')
			types := make([]string, 0, len(ga.MeteringPointTypes))
			for _, t := range ga.MeteringPointTypes {
				types = append(types, string(t))
			}
			b.WriteString(strings.Join(types, ","))
		}
	}
	b.WriteByte(']')
	return b.String()
}
