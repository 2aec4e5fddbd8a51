package repository

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go/pkg/models"
	"golang.org/x/crypto/blake2b"
)

// recordKey derives the at-rest record key for a bearer-style identifier.
// The raw value never reaches the database.
func recordKey(id string) string {
	sum := blake2b.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// convertSurrealID renders a SurrealDB record ID as "table:id"
func convertSurrealID(id interface{}) string {
	switch v := id.(type) {
	case string:
		return v
	case models.RecordID:
		return fmt.Sprintf("%s:%v", v.Table, v.ID)
	case *models.RecordID:
		if v != nil {
			return fmt.Sprintf("%s:%v", v.Table, v.ID)
		}
	case map[string]interface{}:
		tb, _ := v["tb"].(string)
		if idVal, ok := v["id"]; ok {
			if tb != "" {
				return fmt.Sprintf("%s:%v", tb, idVal)
			}
			return fmt.Sprintf("%v", idVal)
		}
	}
	return ""
}

// parseTime accepts the datetime encodings the driver hands back
func parseTime(v interface{}) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case models.CustomDateTime:
		return t.Time
	case *models.CustomDateTime:
		if t != nil {
			return t.Time
		}
	case string:
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed
		}
	}
	return time.Time{}
}

func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if v, ok := m[key].(map[string]interface{}); ok {
		return v
	}
	return nil
}
