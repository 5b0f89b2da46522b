package models

// Account is an OVH API credential set bound to one subsidiary/zone.
// Keys are immutable once created; deleting an account orphans any
// QueueTask or Subscription that still references it (see Scheduler).
type Account struct {
	ID                 string `json:"id"`
	Alias              string `json:"alias"`
	Zone               string `json:"zone"`           // OVH subsidiary: IE, FR, US, CA, ...
	EndpointRegion     string `json:"endpointRegion"`  // ovh-eu | ovh-us | ovh-ca
	ApplicationKey     string `json:"applicationKey"`
	ApplicationSecret  string `json:"applicationSecret"`
	ConsumerKey        string `json:"consumerKey"`

	// BaseURLOverride, when set, replaces the region-derived endpoint. Never
	// persisted; used by tests to point the client at a local fake server.
	BaseURLOverride string `json:"-"`
}

const (
	EndpointRegionEU = "ovh-eu"
	EndpointRegionUS = "ovh-us"
	EndpointRegionCA = "ovh-ca"
)

// EndpointBaseURL returns the REST API root for the account's region.
func (a Account) EndpointBaseURL() string {
	switch a.EndpointRegion {
	case EndpointRegionUS:
		return "https://api.us.ovhcloud.com/1.0"
	case EndpointRegionCA:
		return "https://ca.api.ovh.com/1.0"
	default:
		return "https://eu.api.ovh.com/1.0"
	}
}
