package store

import (
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"inbox-rpa/internal/model"
)

// Stats is an aggregate snapshot of the outcome tables.
type Stats struct {
	TotalRecords   int64            `json:"total_records"`
	CountsByStatus map[string]int64 `json:"counts_by_status"`
	TodayCount     int64            `json:"today_count"`
}

// OutcomeStore persists per-message outcomes and owns retention and export.
// Every operation opens and releases its own connection; no handle is shared
// across operations.
type OutcomeStore struct {
	path       string
	exportPath string
}

// NewOutcomeStore creates a store backed by the SQLite database at path.
func NewOutcomeStore(path, exportPath string) *OutcomeStore {
	return &OutcomeStore{path: path, exportPath: exportPath}
}

// Path returns the database file path.
func (s *OutcomeStore) Path() string {
	return s.path
}

// open acquires a connection for a single operation. The returned closer must
// run on every exit path.
func (s *OutcomeStore) open() (*gorm.DB, func(), error) {
	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	closer := func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}
	return db, closer, nil
}

// Init creates or migrates the outcome tables.
func (s *OutcomeStore) Init() error {
	db, closer, err := s.open()
	if err != nil {
		return err
	}
	defer closer()

	if err := db.AutoMigrate(
		&model.SuccessRecord{},
		&model.FailureRecord{},
		&model.LegacyRecord{},
		&model.ConfigEntry{},
	); err != nil {
		return fmt.Errorf("failed to auto migrate: %w", err)
	}

	logrus.Info("Outcome store initialized")
	return nil
}

// RecordSuccess appends one row to the success table. Returns false on any
// storage fault; never panics out of the store.
func (s *OutcomeStore) RecordSuccess(rec model.SuccessRecord) bool {
	db, closer, err := s.open()
	if err != nil {
		logrus.Errorf("Failed to record success for %s (%s): %v", rec.Sender, rec.Subject, err)
		return false
	}
	defer closer()

	if err := db.Create(&rec).Error; err != nil {
		logrus.Errorf("Failed to record success for %s (%s): %v", rec.Sender, rec.Subject, err)
		return false
	}

	logrus.Infof("Success record inserted: %s - %s", rec.Sender, rec.Status)
	return true
}

// RecordFailure appends one row to the failure table. Returns false on any
// storage fault.
func (s *OutcomeStore) RecordFailure(rec model.FailureRecord) bool {
	db, closer, err := s.open()
	if err != nil {
		logrus.Errorf("Failed to record failure for %s (%s): %v", rec.Sender, rec.Subject, err)
		return false
	}
	defer closer()

	if err := db.Create(&rec).Error; err != nil {
		logrus.Errorf("Failed to record failure for %s (%s): %v", rec.Sender, rec.Subject, err)
		return false
	}

	logrus.Infof("Failure record inserted: %s - %s", rec.Sender, rec.Status)
	return true
}

// Statistics computes aggregate counts fresh on every call. A zero-valued
// Stats is returned on storage fault rather than an error.
func (s *OutcomeStore) Statistics() Stats {
	stats := Stats{CountsByStatus: make(map[string]int64)}

	db, closer, err := s.open()
	if err != nil {
		logrus.Errorf("Failed to compute statistics: %v", err)
		return stats
	}
	defer closer()

	type statusCount struct {
		Status string
		Count  int64
	}

	for _, table := range []string{
		model.SuccessRecord{}.TableName(),
		model.FailureRecord{}.TableName(),
	} {
		var total int64
		if err := db.Table(table).Count(&total).Error; err != nil {
			logrus.Errorf("Failed to count %s: %v", table, err)
			return Stats{CountsByStatus: make(map[string]int64)}
		}
		stats.TotalRecords += total

		var counts []statusCount
		if err := db.Table(table).
			Select("status, COUNT(*) as count").
			Group("status").
			Scan(&counts).Error; err != nil {
			logrus.Errorf("Failed to group %s by status: %v", table, err)
			return Stats{CountsByStatus: make(map[string]int64)}
		}
		for _, c := range counts {
			stats.CountsByStatus[c.Status] += c.Count
		}

		var today int64
		now := time.Now()
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if err := db.Table(table).
			Where("timestamp >= ?", midnight).
			Count(&today).Error; err != nil {
			logrus.Errorf("Failed to count today's rows in %s: %v", table, err)
			return Stats{CountsByStatus: make(map[string]int64)}
		}
		stats.TodayCount += today
	}

	return stats
}

// RecentRecord is one outcome row as served to the dashboard, merged from the
// success and failure tables.
type RecentRecord struct {
	ID             uint      `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	Sender         string    `json:"sender"`
	Subject        string    `json:"subject"`
	Link           string    `json:"link"`
	Status         string    `json:"status"`
	Observations   string    `json:"observations"`
	ErrorDetails   string    `json:"error_details,omitempty"`
	ProcessingTime float64   `json:"processing_time"`
}

// RecentRecords returns the newest limit outcomes across both tables, newest
// first. Returns an empty slice on storage fault.
func (s *OutcomeStore) RecentRecords(limit int) []RecentRecord {
	if limit <= 0 {
		limit = 10
	}

	db, closer, err := s.open()
	if err != nil {
		logrus.Errorf("Failed to read recent records: %v", err)
		return []RecentRecord{}
	}
	defer closer()

	var successes []model.SuccessRecord
	if err := db.Order("timestamp DESC").Limit(limit).Find(&successes).Error; err != nil {
		logrus.Errorf("Failed to read recent records: reading success table: %v", err)
		return []RecentRecord{}
	}

	var failures []model.FailureRecord
	if err := db.Order("timestamp DESC").Limit(limit).Find(&failures).Error; err != nil {
		logrus.Errorf("Failed to read recent records: reading failure table: %v", err)
		return []RecentRecord{}
	}

	records := make([]RecentRecord, 0, len(successes)+len(failures))
	for _, rec := range successes {
		records = append(records, RecentRecord{
			ID: rec.ID, Timestamp: rec.Timestamp, Sender: rec.Sender, Subject: rec.Subject,
			Link: rec.Link, Status: rec.Status, Observations: rec.Observations,
			ProcessingTime: rec.ProcessingTime,
		})
	}
	for _, rec := range failures {
		records = append(records, RecentRecord{
			ID: rec.ID, Timestamp: rec.Timestamp, Sender: rec.Sender, Subject: rec.Subject,
			Link: rec.Link, Status: rec.Status, Observations: rec.Observations,
			ErrorDetails: rec.ErrorDetails, ProcessingTime: rec.ProcessingTime,
		})
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].Timestamp.After(records[j].Timestamp)
	})
	if len(records) > limit {
		records = records[:limit]
	}
	return records
}

// PurgeOlderThan deletes legacy unified-table rows older than the cutoff and
// returns the number removed. ok is false on storage fault so the caller can
// keep the maintenance action due instead of counting the fault as a clean
// zero-row purge.
func (s *OutcomeStore) PurgeOlderThan(days int) (int, bool) {
	db, closer, err := s.open()
	if err != nil {
		logrus.Errorf("Failed to purge old records: %v", err)
		return 0, false
	}
	defer closer()

	cutoff := time.Now().AddDate(0, 0, -days)
	result := db.Where("timestamp < ?", cutoff).Delete(&model.LegacyRecord{})
	if result.Error != nil {
		logrus.Errorf("Failed to purge old records: %v", result.Error)
		return 0, false
	}

	logrus.Infof("Purged %d records older than %d days", result.RowsAffected, days)
	return int(result.RowsAffected), true
}

// SetConfig inserts or updates an operator configuration entry.
func (s *OutcomeStore) SetConfig(key, value string) bool {
	db, closer, err := s.open()
	if err != nil {
		logrus.Errorf("Failed to update config %s: %v", key, err)
		return false
	}
	defer closer()

	entry := model.ConfigEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	if err := db.Save(&entry).Error; err != nil {
		logrus.Errorf("Failed to update config %s: %v", key, err)
		return false
	}

	return true
}

// GetConfig reads an operator configuration entry.
func (s *OutcomeStore) GetConfig(key string) (string, bool) {
	db, closer, err := s.open()
	if err != nil {
		logrus.Errorf("Failed to read config %s: %v", key, err)
		return "", false
	}
	defer closer()

	var entry model.ConfigEntry
	if err := db.First(&entry, "key = ?", key).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logrus.Errorf("Failed to read config %s: %v", key, err)
		}
		return "", false
	}

	return entry.Value, true
}

// ExportSnapshot materializes the success and failure tables into a two-sheet
// spreadsheet and returns its path. Returns "" on fault.
func (s *OutcomeStore) ExportSnapshot() string {
	db, closer, err := s.open()
	if err != nil {
		logrus.Errorf("Failed to export snapshot: %v", err)
		return ""
	}
	defer closer()

	var successes []model.SuccessRecord
	if err := db.Order("id").Find(&successes).Error; err != nil {
		logrus.Errorf("Failed to export snapshot: reading success table: %v", err)
		return ""
	}

	var failures []model.FailureRecord
	if err := db.Order("id").Find(&failures).Error; err != nil {
		logrus.Errorf("Failed to export snapshot: reading failure table: %v", err)
		return ""
	}

	f := excelize.NewFile()
	defer f.Close()

	const successSheet = "Exitosos"
	const failureSheet = "Fallidos"

	// The default sheet becomes the success sheet.
	if err := f.SetSheetName("Sheet1", successSheet); err != nil {
		logrus.Errorf("Failed to export snapshot: %v", err)
		return ""
	}
	if _, err := f.NewSheet(failureSheet); err != nil {
		logrus.Errorf("Failed to export snapshot: %v", err)
		return ""
	}

	successHeader := []interface{}{"id", "timestamp", "sender", "subject", "link", "status", "observations", "processing_time"}
	if err := f.SetSheetRow(successSheet, "A1", &successHeader); err != nil {
		logrus.Errorf("Failed to export snapshot: %v", err)
		return ""
	}
	for i, rec := range successes {
		row := []interface{}{
			rec.ID, rec.Timestamp.Format(time.DateTime), rec.Sender, rec.Subject,
			rec.Link, rec.Status, rec.Observations, rec.ProcessingTime,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(successSheet, cell, &row); err != nil {
			logrus.Errorf("Failed to export snapshot: %v", err)
			return ""
		}
	}

	failureHeader := []interface{}{"id", "timestamp", "sender", "subject", "link", "status", "observations", "error_details", "processing_time"}
	if err := f.SetSheetRow(failureSheet, "A1", &failureHeader); err != nil {
		logrus.Errorf("Failed to export snapshot: %v", err)
		return ""
	}
	for i, rec := range failures {
		row := []interface{}{
			rec.ID, rec.Timestamp.Format(time.DateTime), rec.Sender, rec.Subject,
			rec.Link, rec.Status, rec.Observations, rec.ErrorDetails, rec.ProcessingTime,
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(failureSheet, cell, &row); err != nil {
			logrus.Errorf("Failed to export snapshot: %v", err)
			return ""
		}
	}

	if err := f.SaveAs(s.exportPath); err != nil {
		logrus.Errorf("Failed to export snapshot: %v", err)
		return ""
	}

	logrus.Infof("Exported %d success and %d failure records to %s", len(successes), len(failures), s.exportPath)
	return s.exportPath
}
