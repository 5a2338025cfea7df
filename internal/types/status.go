package types

// Status is a type for the lifecycle status of a persisted resource.
// It tracks soft deletion and archival, not the business state of a
// document (invoice/estimate/template statuses live on their own enums).
type Status string

const (
	StatusPublished Status = "published"
	StatusDeleted   Status = "deleted"
	StatusArchived  Status = "archived"
)
