package pmda

// Service paths of common data-driven web services. Any other path under
// the base URL works the same way.
const (
	ServiceDevices           = "devices"
	ServiceManageableDevices = "devices/manageable"
	ServiceProfiles          = "profiles"
	ServiceSNMPv3Profiles    = "profiles/snmpv3"
)

// Operation path segments.
const (
	opFiltered = "filtered"
)

// Paging query parameters.
const (
	ParamStart = "start"
	ParamSize  = "size"
)

// HeaderRequestID carries the per-call request ID.
const HeaderRequestID = "X-Request-ID"
