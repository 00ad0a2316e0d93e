package model

import "time"

// Outcome status codes written by the triage pipeline.
const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
	StatusNoLink  = "NO_LINK"
	StatusError   = "ERROR"
)

// SuccessRecord is one processed link-action message that completed its click.
type SuccessRecord struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Timestamp      time.Time `json:"timestamp" gorm:"column:timestamp;autoCreateTime"`
	Sender         string    `json:"sender" gorm:"type:varchar(255);not null"`
	Subject        string    `json:"subject" gorm:"type:text"`
	Link           string    `json:"link" gorm:"type:text"`
	Status         string    `json:"status" gorm:"type:varchar(50);not null"`
	Observations   string    `json:"observations" gorm:"type:text"`
	ProcessingTime float64   `json:"processing_time"`
}

// TableName specifies the table name for SuccessRecord
func (SuccessRecord) TableName() string {
	return "rpa_success"
}

// FailureRecord is one processed link-action message that did not complete.
// Covers the FAILED, NO_LINK and ERROR statuses.
type FailureRecord struct {
	ID             uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Timestamp      time.Time `json:"timestamp" gorm:"column:timestamp;autoCreateTime"`
	Sender         string    `json:"sender" gorm:"type:varchar(255);not null"`
	Subject        string    `json:"subject" gorm:"type:text"`
	Link           string    `json:"link" gorm:"type:text"`
	Status         string    `json:"status" gorm:"type:varchar(50);not null"`
	Observations   string    `json:"observations" gorm:"type:text"`
	ErrorDetails   string    `json:"error_details" gorm:"type:text"`
	ProcessingTime float64   `json:"processing_time"`
}

// TableName specifies the table name for FailureRecord
func (FailureRecord) TableName() string {
	return "rpa_failed"
}

// LegacyRecord is the pre-partitioning unified outcome table. New rows are no
// longer written to it; the retention purge still drains it by age.
type LegacyRecord struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Timestamp    time.Time `json:"timestamp" gorm:"column:timestamp;autoCreateTime"`
	Sender       string    `json:"sender" gorm:"type:varchar(255)"`
	Subject      string    `json:"subject" gorm:"type:text"`
	Link         string    `json:"link" gorm:"type:text"`
	Status       string    `json:"status" gorm:"type:varchar(50)"`
	Observations string    `json:"observations" gorm:"type:text"`
}

// TableName specifies the table name for LegacyRecord
func (LegacyRecord) TableName() string {
	return "rpa_records"
}

// ConfigEntry is an operator-set key/value pair.
type ConfigEntry struct {
	Key       string    `json:"key" gorm:"primaryKey;type:varchar(255)"`
	Value     string    `json:"value" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for ConfigEntry
func (ConfigEntry) TableName() string {
	return "config"
}
