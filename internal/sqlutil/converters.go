package sqlutil

import (
	"database/sql"
	"time"
)

// Conversions between the sql.Null* types the query layer returns and the
// pointer forms the domain models carry.

// FromSqlStringPtr converts sql.NullString to a Go string pointer
func FromSqlStringPtr(val sql.NullString) *string {
	if !val.Valid {
		return nil
	}
	return &val.String
}

// ToSqlTime converts a Go time pointer to sql.NullTime
func ToSqlTime(val *time.Time) sql.NullTime {
	if val == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *val, Valid: true}
}
