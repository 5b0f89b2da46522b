package models

import "time"

// MinMonitorInterval is the floor for the availability monitor's tick, in
// seconds.
const MinMonitorInterval = 30

// MaxSubscriptionHistory bounds the ring buffer kept per subscription.
const MaxSubscriptionHistory = 100

const (
	ChangeTypeAvailable   = "available"
	ChangeTypeUnavailable = "unavailable"
)

// DatacenterStatus is the last observed state for one datacenter under a
// subscription, used to detect transitions on the next monitor tick.
type DatacenterStatus struct {
	Available bool      `json:"available"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// SubscriptionHistoryEntry is one change event in a subscription's ring
// buffer, ordered by monitor tick.
type SubscriptionHistoryEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	Datacenter string    `json:"datacenter"`
	ChangeType string    `json:"changeType"`
	OldStatus  string    `json:"oldStatus,omitempty"`
}

// Subscription is a standing "tell me when this plan changes availability"
// registration for the availability monitor (C6). It never places orders
// itself; auto-ordering is expressed by a parallel QueueTask.
type Subscription struct {
	ID               string `json:"id"`
	AccountID        string `json:"accountId,omitempty"`
	PlanCode         string `json:"planCode"`
	OVHSubsidiary    string `json:"ovhSubsidiary"`
	Datacenters      []string `json:"datacenters"` // empty => all known DCs for the plan
	Options          []string `json:"options,omitempty"`
	MonitorLinux     bool   `json:"monitorLinux"`
	MonitorWindows   bool   `json:"monitorWindows"`
	NotifyAvailable  bool   `json:"notifyAvailable"`
	NotifyUnavailable bool  `json:"notifyUnavailable"`

	LastStatus map[string]DatacenterStatus `json:"lastStatus"`
	History    []SubscriptionHistoryEntry  `json:"history"`

	CreatedAt time.Time `json:"createdAt"`
}
