package api

// links maps operation paths to their RFC 8288 Link header values.
// Enables restish hypermedia navigation via `restish links <url>`.
var links = map[string][]string{
	"/health": {
		`</api/v1/info>; rel="info"`,
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/sources>; rel="sources"`,
		`</api/v1/map/view>; rel="map"`,
	},
	"/api/v1/info": {
		`</health>; rel="health"`,
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/layers": {
		`</api/v1/sources>; rel="sources"`,
		`</api/v1/map/view>; rel="map"`,
	},
	"/api/v1/layers/{id}": {
		`</api/v1/layers>; rel="collection"`,
	},
	"/api/v1/layers/{id}/selections": {
		`</api/v1/layers>; rel="layers"`,
	},
	"/api/v1/map/view": {
		`</api/v1/map/render>; rel="render"`,
		`</api/v1/map/click>; rel="click"`,
		`</api/v1/interact/events>; rel="events"`,
	},
	"/api/v1/sources": {
		`</api/v1/layers>; rel="layers"`,
		`</api/v1/sources/generate>; rel="generate"`,
	},
	"/api/v1/tables": {
		`</api/v1/query>; rel="query"`,
	},
}

// Links returns the static link map for humastar.LinkTransformer.
func Links() map[string][]string { return links }
