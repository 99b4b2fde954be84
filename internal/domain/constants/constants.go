// Package constants holds shared domain-level constants.
package constants

const (
	// EnvDevelop is the development environment name.
	EnvDevelop = "develop"
	// EnvProduction is the production environment name.
	EnvProduction = "production"

	// PubSubProviderLocal selects the local HTTP push publisher.
	PubSubProviderLocal = "local"
	// PubSubProviderGoogle selects Google Cloud Pub/Sub.
	PubSubProviderGoogle = "google"

	// StateStoreProviderFile selects the JSON file state store.
	StateStoreProviderFile = "file"
	// StateStoreProviderRedis selects the Redis state store.
	StateStoreProviderRedis = "redis"
)
