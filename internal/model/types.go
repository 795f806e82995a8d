// Package model defines shared data structures for the core simulator:
// - Persisted entities, one per store collection (UE, Slice, PolicyRule,
//   PDUSession, NFService, UPFState, LogEntry).
// - Typed request/response payloads consumed by the SBI layer.
//
// All types here are intentionally free of dependencies on other internal
// packages to avoid circular imports. Entities carry both json tags (SBI
// payloads) and bson tags (Mongo backend); the field names match in both,
// so the memory backend's json round-trip sees the same document shape.
package model

import "time"

// NFType enumerates the simulated network function roles.
type NFType string

const (
	NFTypeAMF  NFType = "AMF"
	NFTypeSMF  NFType = "SMF"
	NFTypeUPF  NFType = "UPF"
	NFTypeNRF  NFType = "NRF"
	NFTypeNSSF NFType = "NSSF"
	NFTypePCF  NFType = "PCF"
	NFTypeUDM  NFType = "UDM"
)

// Collection names used by the document store. Each entity type below is
// persisted in the collection with the lowercase name of the type.
const (
	CollectionUE         = "ue"
	CollectionSlice      = "slice"
	CollectionPolicyRule = "policyrule"
	CollectionPDUSession = "pdusession"
	CollectionNFService  = "nfservice"
	CollectionUPFState   = "upfstate"
	CollectionLogEntry   = "logentry"
	CollectionFlow       = "flow"
)

// Collections lists every collection the simulator persists, in the order the
// store diagnostics endpoint reports them.
var Collections = []string{
	CollectionUE,
	CollectionSlice,
	CollectionPolicyRule,
	CollectionPDUSession,
	CollectionNFService,
	CollectionUPFState,
	CollectionLogEntry,
	CollectionFlow,
}

// SessionStateActive is the only session state in the current scope;
// teardown is out of scope and sessions never leave ACTIVE.
const SessionStateActive = "ACTIVE"

// ---------------------------------------------------------------------------
// Persisted entities
// ---------------------------------------------------------------------------

// UE is a subscriber record keyed by SUPI. It is created on first contact
// with registered=false and mutated to registered=true when the registration
// flow completes. UE records are never deleted.
type UE struct {
	Supi       string     `json:"supi" bson:"supi"`
	Guti       string     `json:"guti,omitempty" bson:"guti,omitempty"`
	Plmn       string     `json:"plmn" bson:"plmn"`
	Slices     []string   `json:"slices" bson:"slices"`
	Registered bool       `json:"registered" bson:"registered"`
	AmfID      string     `json:"amf_id,omitempty" bson:"amf_id,omitempty"`
	LastSeen   *time.Time `json:"last_seen,omitempty" bson:"last_seen,omitempty"`
}

// Slice is static reference data describing one network slice. It is created
// by configuration (or the NSSF admin API) and read-only to orchestration.
type Slice struct {
	SliceID     string   `json:"slice_id" bson:"slice_id" yaml:"sliceId"`
	Sst         string   `json:"sst" bson:"sst" yaml:"sst"`
	Sd          string   `json:"sd,omitempty" bson:"sd,omitempty" yaml:"sd,omitempty"`
	Description string   `json:"description,omitempty" bson:"description,omitempty" yaml:"description,omitempty"`
	Plmns       []string `json:"plmns" bson:"plmns" yaml:"plmns"`
}

// PolicyRule holds QoS and charging parameters keyed by policy ID.
type PolicyRule struct {
	PolicyID string         `json:"policy_id" bson:"policy_id" yaml:"policyId" valid:"required"`
	Desc     string         `json:"desc,omitempty" bson:"desc,omitempty" yaml:"desc,omitempty"`
	Qos      map[string]any `json:"qos" bson:"qos" yaml:"qos"`
	Charging map[string]any `json:"charging" bson:"charging" yaml:"charging,omitempty"`
}

// DefaultQos returns the QoS mapping applied when a policy rule does not
// specify one: 5QI 9 with symmetric 10 Mbps maximum bitrates.
func DefaultQos() map[string]any {
	return map[string]any{
		"5qi":    9,
		"mbr_ul": "10Mbps",
		"mbr_dl": "10Mbps",
	}
}

// FallbackQos is the transient QoS returned when no policy rule is
// configured at all. It is never persisted.
func FallbackQos() map[string]any {
	return map[string]any{"5qi": 9}
}

// PDUSession is one subscriber data connection through a UPF instance.
// QosRules is a snapshot copied from the PolicyRule at creation time, not a
// reference; later policy changes do not alter it.
type PDUSession struct {
	SessionID string         `json:"session_id" bson:"session_id" valid:"required"`
	Supi      string         `json:"supi" bson:"supi" valid:"required"`
	Dnn       string         `json:"dnn" bson:"dnn" valid:"required"`
	SNssai    string         `json:"s_nssai" bson:"s_nssai" valid:"required"`
	SmfID     string         `json:"smf_id,omitempty" bson:"smf_id,omitempty"`
	UpfID     string         `json:"upf_id,omitempty" bson:"upf_id,omitempty"`
	State     string         `json:"state" bson:"state"`
	QosRules  map[string]any `json:"qos_rules" bson:"qos_rules"`
	ULBytes   int64          `json:"ul_bytes" bson:"ul_bytes"`
	DLBytes   int64          `json:"dl_bytes" bson:"dl_bytes"`
}

// NFService describes one registered NF instance. At most one record exists
// per NfID (register-or-update semantics).
type NFService struct {
	NfType       NFType   `json:"nf_type" bson:"nf_type" valid:"required"`
	NfID         string   `json:"nf_id" bson:"nf_id" valid:"required"`
	Status       string   `json:"status" bson:"status"`
	ApiBase      string   `json:"api_base" bson:"api_base" valid:"required"`
	Capabilities []string `json:"capabilities" bson:"capabilities"`
}

// UPFState is the aggregate traffic counter for one UPF instance. It is
// lazily created the first time a session is established against the UPF.
type UPFState struct {
	UpfID   string `json:"upf_id" bson:"upf_id"`
	ULBytes int64  `json:"ul_bytes" bson:"ul_bytes"`
	DLBytes int64  `json:"dl_bytes" bson:"dl_bytes"`
}

// LogEntry is one append-only audit record. Entries are immutable once
// written and form the sole history of the simulation.
type LogEntry struct {
	NF        string         `json:"nf" bson:"nf"`
	Level     string         `json:"level" bson:"level"`
	Message   string         `json:"message" bson:"message"`
	Context   map[string]any `json:"context" bson:"context"`
	CreatedAt time.Time      `json:"created_at" bson:"created_at"`
}

// Flow states. A flow advances strictly forward and ends in either COMMITTED
// or FAILED; a record stuck in an intermediate state marks a crash mid-flow.
const (
	FlowStateStarted       = "STARTED"
	FlowStateAuthenticated = "AUTHENTICATED"
	FlowStateSliceSelected = "SLICE_SELECTED"
	FlowStateCommitted     = "COMMITTED"
	FlowStateFailed        = "FAILED"
)

// Flow kinds.
const (
	FlowKindRegistration = "registration"
	FlowKindSession      = "session-establishment"
)

// Flow is the persisted state of one orchestration procedure. Multi-step
// procedures are not atomic across store operations, so each one records its
// progress here; a half-updated UE or session is diagnosable from the flow
// record instead of being silently left behind.
type Flow struct {
	FlowID    string    `json:"flow_id" bson:"flow_id"`
	Kind      string    `json:"kind" bson:"kind"`
	Supi      string    `json:"supi" bson:"supi"`
	State     string    `json:"state" bson:"state"`
	Failure   string    `json:"failure,omitempty" bson:"failure,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// HealthStatus is returned by each per-NF health probe.
type HealthStatus struct {
	NF      string         `json:"nf"`
	Status  string         `json:"status"`
	Details map[string]any `json:"details,omitempty"`
}

// ---------------------------------------------------------------------------
// SBI request/response payloads
// ---------------------------------------------------------------------------

// RegistrationFlowRequest triggers the UE Registration procedure on the AMF.
type RegistrationFlowRequest struct {
	Supi string `json:"supi" valid:"required"`
	Plmn string `json:"plmn" valid:"required"`
}

// RegistrationFlowResponse reports the outcome of a registration flow.
type RegistrationFlowResponse struct {
	Result string `json:"result"`
	Slice  string `json:"slice"`
}

// SliceSelectionRequest asks the NSSF for an allowed slice.
type SliceSelectionRequest struct {
	Supi string `json:"supi" valid:"required"`
	Plmn string `json:"plmn" valid:"required"`
}

// SliceSelectionResponse carries the selected slice identifier.
type SliceSelectionResponse struct {
	SliceID string `json:"slice_id"`
}

// AuthRequest asks the UDM/AUSF to authenticate a subscriber.
type AuthRequest struct {
	Supi string `json:"supi" valid:"required"`
}

// AuthResponse carries the synthesized opaque token. The token is a
// simulated credential, not a cryptographic artifact.
type AuthResponse struct {
	Result string `json:"result"`
	Token  string `json:"token"`
}

// SessionEstablishRequest triggers PDU Session Establishment on the SMF.
// Dnn defaults to "internet" and Slice is optional.
type SessionEstablishRequest struct {
	Supi  string `json:"supi" valid:"required"`
	Dnn   string `json:"dnn,omitempty"`
	Slice string `json:"slice,omitempty"`
}

// SessionEstablishResponse reports the created session.
type SessionEstablishResponse struct {
	Result    string         `json:"result"`
	SessionID string         `json:"session_id"`
	Upf       string         `json:"upf"`
	Qos       map[string]any `json:"qos"`
}

// TrafficRequest carries synthetic byte counts for a session. Unset fields
// fall back to the fixed defaults (ul=1000, dl=2000).
type TrafficRequest struct {
	UL *int64 `json:"ul,omitempty"`
	DL *int64 `json:"dl,omitempty"`
}

// StatusResponse is the generic {status: ...} payload used by create/update
// style operations (NRF register, PCF policy, AMF register-ue, ...).
type StatusResponse struct {
	Status string `json:"status"`
}

// MetricsResponse summarizes store contents for the root /metrics endpoint.
type MetricsResponse struct {
	UEs      int64 `json:"ues"`
	Sessions int64 `json:"sessions"`
	Logs     int64 `json:"logs"`
}
