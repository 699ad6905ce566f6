// Package http exposes the salon scheduler over HTTP using chi.
//
// Public endpoints:
//   - GET /availability?date=YYYY-MM-DD&duration=N (or &procedure_id=ID):
//     bookable HH:mm start times. Response {"date","duration_minutes","slots",
//     "reason","retry_later"}; reason is blocked, full or closed when slots is
//     empty.
//   - GET /availability/month?month=YYYY-MM: per-day open/closed/blocked status.
//   - GET /procedures?category=, GET /procedures/categories: the catalog.
//   - POST /appointments: client booking request, created as pending.
//   - POST /sessions: staff login. The token is returned in the body, the
//     `X-Session-Token` header and the `session_token` cookie.
//   - GET /healthz, GET /metrics.
//
// Staff endpoints require a session (Bearer token or cookie):
//   - GET /appointments?period=day|week|month|custom&date=&from=&to=&status=
//   - POST /appointments/manual, PATCH /appointments/{id}/status,
//     PUT /appointments/{id}/schedule
//   - GET /clients/{phone}/appointments
//   - GET /calendar/{date}: the day agenda with column placements.
//   - GET /blockages, POST /blockages, DELETE /blockages/{id}
//   - GET /stats?from=&to=
//   - DELETE /sessions/current, GET /ws
//
// Errors are JSON {"error_code","message","errors"} with pt-BR messages.
// Validation maps to 422, conflicts and taken slots to 409, missing records to
// 404 and store outages to 503.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
