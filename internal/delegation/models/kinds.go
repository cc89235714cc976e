package models

import (
	"strings"

	dErrors "marketparticipant/pkg/domain-errors"
)

// Kind distinguishes message delegations from process delegations. It also
// selects the error key prefix.
type Kind string

const (
	KindMessage Kind = "message"
	KindProcess Kind = "process"
)

func (k Kind) IsValid() bool {
	return k == KindMessage || k == KindProcess
}

// ErrorPrefix is the prefix of every validation key raised for this kind.
func (k Kind) ErrorPrefix() string {
	return string(k) + "_delegation"
}

// MessageType is a business message whose handling can be delegated.
type MessageType string

const (
	MessageRSM012Inbound  MessageType = "RSM012Inbound"
	MessageRSM014Inbound  MessageType = "RSM014Inbound"
	MessageRSM016Inbound  MessageType = "RSM016Inbound"
	MessageRSM017Inbound  MessageType = "RSM017Inbound"
	MessageRSM018Inbound  MessageType = "RSM018Inbound"
	MessageRSM019Inbound  MessageType = "RSM019Inbound"
	MessageRSM012Outbound MessageType = "RSM012Outbound"
	MessageRSM014Outbound MessageType = "RSM014Outbound"
	MessageRSM016Outbound MessageType = "RSM016Outbound"
	MessageRSM017Outbound MessageType = "RSM017Outbound"
	MessageRSM018Outbound MessageType = "RSM018Outbound"
	MessageRSM019Outbound MessageType = "RSM019Outbound"
)

var allMessageTypes = []MessageType{
	MessageRSM012Inbound, MessageRSM014Inbound, MessageRSM016Inbound,
	MessageRSM017Inbound, MessageRSM018Inbound, MessageRSM019Inbound,
	MessageRSM012Outbound, MessageRSM014Outbound, MessageRSM016Outbound,
	MessageRSM017Outbound, MessageRSM018Outbound, MessageRSM019Outbound,
}

// DelegatedProcess is a business process whose handling can be delegated.
type DelegatedProcess string

const (
	ProcessRequestEnergyResults      DelegatedProcess = "RequestEnergyResults"
	ProcessReceiveEnergyResults      DelegatedProcess = "ReceiveEnergyResults"
	ProcessRequestWholesaleResults   DelegatedProcess = "RequestWholesaleResults"
	ProcessReceiveWholesaleResults   DelegatedProcess = "ReceiveWholesaleResults"
	ProcessRequestMeteringPointData  DelegatedProcess = "RequestMeteringPointData"
	ProcessReceiveMeteringPointData  DelegatedProcess = "ReceiveMeteringPointData"
	ProcessReceiveGridLossReconciled DelegatedProcess = "ReceiveGridLossReconciled"
)

var allProcesses = []DelegatedProcess{
	ProcessRequestEnergyResults, ProcessReceiveEnergyResults,
	ProcessRequestWholesaleResults, ProcessReceiveWholesaleResults,
	ProcessRequestMeteringPointData, ProcessReceiveMeteringPointData,
	ProcessReceiveGridLossReconciled,
}

// ParseMessageType resolves a message type case-insensitively.
func ParseMessageType(s string) (MessageType, error) {
	for _, m := range allMessageTypes {
		if strings.EqualFold(string(m), strings.TrimSpace(s)) {
			return m, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown message type %q", s)
}

// ParseDelegatedProcess resolves a process case-insensitively.
func ParseDelegatedProcess(s string) (DelegatedProcess, error) {
	for _, p := range allProcesses {
		if strings.EqualFold(string(p), strings.TrimSpace(s)) {
			return p, nil
		}
	}
	return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown delegated process %q", s)
}
