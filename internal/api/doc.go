// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

/*
Package api is the HTTP surface of snipcheck, routed with chi.

Every response uses the models.APIResponse envelope:

	{"status":"success","data":{...},"metadata":{"timestamp":"..."}}
	{"status":"error","data":null,"error":{"code":"NOT_FOUND","message":"..."},"metadata":{...}}

Routes under /api/v1:

	POST   /snippets                          register a snippet owned by the caller
	GET    /snippets[?compliance=passing|failing]
	GET    /snippets/{id}
	DELETE /snippets/{id}
	POST   /snippets/{id}/lint                publish one lint request
	POST   /snippets/{id}/format              publish one format request
	POST   /snippets/lint                     all of the caller's snippets, or {"snippetIds":[...]}
	POST   /snippets/format
	PUT    /snippets/{id}/compliance          synchronous result path
	GET    /snippets/{id}/compliance[/type|/errors|/passes]
	GET    /rules?kind=lint|format
	GET    /rules/config?kind=
	PUT    /rules/config
	DELETE /rules/config/{ruleName}?kind=
	GET    /admin/dead-letters
	POST   /admin/dead-letters/{id}/redrive
	DELETE /admin/dead-letters/{id}
	GET    /health, /health/live, /health/ready

Prometheus metrics are served on /metrics.

Error mapping: not found 404 NOT_FOUND, validation 400 VALIDATION_ERROR,
authentication 401, authorization 403, publish failure 502 PUBLISH_FAILED,
anything else 500.
*/
package api
