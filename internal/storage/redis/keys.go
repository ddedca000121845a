package redis

import "fmt"

// Key prefix for all client data
const keyPrefix = "aiventure"

// credentialKey returns the Redis key for the credential record
func credentialKey(record string) string {
	return fmt.Sprintf("%s:credential:%s", keyPrefix, record)
}
