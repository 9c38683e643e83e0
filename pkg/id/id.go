package id

import (
	"github.com/gofrs/uuid"
)

// GenTraceID new trace id
func GenTraceID() string {
	return GenUUIDString()
}

// GenUUIDString new uuid
func GenUUIDString() string {
	return uuid.Must(uuid.NewV4()).String()
}
