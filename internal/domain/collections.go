package domain

// Collection names accepted by provisioning, ingestion and the CLI.
const (
	CollectionProducts       = "products"
	CollectionApplications   = "applications"
	CollectionApplicationsV2 = "applications-v2"
)
