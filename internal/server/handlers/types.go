package handlers

// HealthResponse is served by every health endpoint. Client* fields are only
// filled by readiness.
type HealthResponse struct {
	Status         string `json:"status" validate:"required,oneof=ok alive ready not_ready"`
	Uptime         string `json:"uptime" validate:"required"`
	Timestamp      string `json:"timestamp,omitempty" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Upstream       string `json:"upstream,omitempty" validate:"omitempty,url"`
	ClientSubject  string `json:"clientSubject,omitempty"`
	ClientNotAfter string `json:"clientNotAfter,omitempty"`
}
