package domain

// Event bus topics published by the resolver.
const (
	TopicLookupSuccess = "geo.lookup.success"
	TopicLookupError   = "geo.lookup.error"
)

// LookupSucceeded is the payload for TopicLookupSuccess.
type LookupSucceeded struct {
	Postcode  string    `json:"postcode"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Direction Direction `json:"direction"`
}

// LookupFailed is the payload for TopicLookupError.
type LookupFailed struct {
	Postcode  string `json:"postcode"`
	ErrorKind Kind   `json:"error_kind"`
	Message   string `json:"message"`
}
