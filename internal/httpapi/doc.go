// Package httpapi serves the operator control API.
//
// Routes:
//
//	GET  /api/status              loop states, user counts and delay policy (ETag aware)
//	POST /api/toggle              {"loop"} advance a loop Off → Listening → Talking
//	POST /api/off                 {"loop"} turn a loop off
//	POST /api/delay               flip the release delay
//	POST /api/loops/{name}/state  {"state":0|1|2} set a loop directly
//	GET  /api/loops               the loaded catalog
//	GET  /healthz                 liveness
//	GET  /metrics                 Prometheus exposition, when a gatherer is configured
//
// The toggle and off routes keep the contract the dashboard was built against: a
// request dropped for lack of an idle bot still answers {"ok":true}. The
// direct state route reports the real outcome.
package httpapi
