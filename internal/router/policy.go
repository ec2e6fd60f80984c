package router

// Behavior is what an endpoint of the public surface does. The surface is a
// closed table: old client versions keep requesting endpoints of services
// this one replaced, and each of those must answer deliberately rather than
// fall through to a generic 404.
type Behavior int

const (
	// BehaviorClassify serves the classification payload.
	BehaviorClassify Behavior = iota

	// BehaviorCountry serves the key-gated country attribution.
	BehaviorCountry

	// BehaviorForbidden refuses a retired endpoint with 403.
	BehaviorForbidden

	// BehaviorNotFound answers a retired endpoint with 404.
	BehaviorNotFound
)

// Route binds a path to its behavior.
type Route struct {
	Path     string
	Behavior Behavior
}

// Table returns the public endpoint table. The geolocate and geosubmit paths
// belong to the retired location service; clients still call them and get a
// stable refusal instead of whatever a fallback handler would do.
func Table() []Route {
	return []Route{
		{Path: "/", Behavior: BehaviorClassify},
		{Path: "/api/v1/country", Behavior: BehaviorCountry},
		{Path: "/v1/geolocate", Behavior: BehaviorForbidden},
		{Path: "/v1/geosubmit", Behavior: BehaviorNotFound},
		{Path: "/v2/geosubmit", Behavior: BehaviorNotFound},
	}
}
