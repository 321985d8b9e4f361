/*
Package httpserver implements the HTTP transport of the identity gateway.

It serves the user API and the app db API described in package api, maps
gateway errors to status codes, and exposes the usual health and diagnostic
endpoints.

# Status Codes

  - 204 - User API commands that succeeded
  - 203 - App db mutations that succeeded
  - 400 - Malformed request
  - 401 - Missing or invalid credentials
  - 403 - Missing or invalid app db key
  - 404 - Unknown user, table or row
  - 409 - Registering a user that already exists
  - 502 - A storage driver failed during unregistration
  - 500 - Anything else

# Login Origin

POST /login answers CORS requests only for the configured trusted origin.
Requests carrying that origin are validated in permissive mode, all others
in strict mode. When no trusted origin is configured, only requests without
an Origin header are treated as first-party.

# Health Endpoints

  - GET /livez - Liveness check
  - GET /readyz - Readiness check
  - GET /drain - Gracefully mark server as not ready
  - GET /undrain - Mark server as ready
  - /debug/* - pprof, when enabled
*/
package httpserver
