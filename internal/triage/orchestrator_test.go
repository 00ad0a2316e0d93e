package triage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"inbox-rpa/internal/automation"
	"inbox-rpa/internal/extract"
	"inbox-rpa/internal/mailbox"
	"inbox-rpa/internal/model"
	"inbox-rpa/internal/store"
)

const testSender = "info@netflix.com"

type fakeProvider struct {
	messages []mailbox.Message
	err      error
}

func (f *fakeProvider) FetchUnread(ctx context.Context) ([]mailbox.Message, error) {
	return f.messages, f.err
}
func (f *fakeProvider) MarkRead(uid uint32) error { return nil }
func (f *fakeProvider) Close() error              { return nil }

type fakeRunner struct {
	result automation.Result
	urls   []string
	panics bool
}

func (f *fakeRunner) Execute(ctx context.Context, url string) automation.Result {
	if f.panics {
		panic("browser backend exploded")
	}
	f.urls = append(f.urls, url)
	return f.result
}
func (f *fakeRunner) CleanCache() error { return nil }

type fakeDispatcher struct {
	recipients  []string
	attachments []string
	err         error
}

func (f *fakeDispatcher) Dispatch(to, attachmentPath string) error {
	f.recipients = append(f.recipients, to)
	f.attachments = append(f.attachments, attachmentPath)
	return f.err
}

func newTestPipeline(t *testing.T, provider *fakeProvider, runner *fakeRunner, dispatcher *fakeDispatcher) (*Orchestrator, *store.OutcomeStore) {
	t.Helper()
	dir := t.TempDir()
	st := store.NewOutcomeStore(filepath.Join(dir, "test.db"), filepath.Join(dir, "report.xlsx"))
	require.NoError(t, st.Init())

	extractor, err := extract.NewExtractor("/account/update-primary-location", `https?://[^\s<>"]+`)
	require.NoError(t, err)

	return NewOrchestrator(provider, extractor, runner, st, dispatcher, nil, testSender), st
}

func successRecords(t *testing.T, st *store.OutcomeStore) []model.SuccessRecord {
	t.Helper()
	db := openStoreDB(t, st)
	var recs []model.SuccessRecord
	require.NoError(t, db.Find(&recs).Error)
	return recs
}

func failureRecords(t *testing.T, st *store.OutcomeStore) []model.FailureRecord {
	t.Helper()
	db := openStoreDB(t, st)
	var recs []model.FailureRecord
	require.NoError(t, db.Find(&recs).Error)
	return recs
}

func openStoreDB(t *testing.T, st *store.OutcomeStore) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(st.Path()), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func linkActionMessage() mailbox.Message {
	return mailbox.Message{
		UID:     1,
		From:    testSender,
		Subject: "Confirm location",
		HTML:    `<a href="https://x.test/account/update-primary-location?t=1">Confirm</a>`,
	}
}

func TestRunCycleSuccessWritesExactlyOneRecord(t *testing.T) {
	provider := &fakeProvider{messages: []mailbox.Message{linkActionMessage()}}
	runner := &fakeRunner{result: automation.Result{Success: true}}
	orch, st := newTestPipeline(t, provider, runner, &fakeDispatcher{})

	summary := orch.RunCycle(context.Background())

	assert.Equal(t, 1, summary.Fetched)
	assert.Equal(t, 1, summary.Successes)
	assert.Equal(t, []string{"https://x.test/account/update-primary-location?t=1"}, runner.urls)

	succ := successRecords(t, st)
	require.Len(t, succ, 1)
	assert.Equal(t, model.StatusSuccess, succ[0].Status)
	assert.Equal(t, "https://x.test/account/update-primary-location?t=1", succ[0].Link)
	assert.Empty(t, failureRecords(t, st))

	stats := st.Statistics()
	assert.Equal(t, int64(1), stats.TotalRecords)
	assert.Equal(t, int64(1), stats.CountsByStatus[model.StatusSuccess])
}

func TestRunCycleClickTimeoutWritesFailedRecord(t *testing.T) {
	provider := &fakeProvider{messages: []mailbox.Message{linkActionMessage()}}
	runner := &fakeRunner{result: automation.Result{Success: false, Reason: "element timeout"}}
	orch, st := newTestPipeline(t, provider, runner, &fakeDispatcher{})

	summary := orch.RunCycle(context.Background())

	assert.Equal(t, 1, summary.Failures)
	assert.Empty(t, successRecords(t, st))

	fails := failureRecords(t, st)
	require.Len(t, fails, 1)
	assert.Equal(t, model.StatusFailed, fails[0].Status)
	assert.Equal(t, "element timeout", fails[0].ErrorDetails)
	assert.Contains(t, fails[0].Observations, "clic")
}

func TestRunCycleNoLinkWritesNoLinkRecord(t *testing.T) {
	msg := linkActionMessage()
	msg.HTML = `<a href="https://x.test/unsubscribe">bye</a>`
	provider := &fakeProvider{messages: []mailbox.Message{msg}}
	runner := &fakeRunner{result: automation.Result{Success: true}}
	orch, st := newTestPipeline(t, provider, runner, &fakeDispatcher{})

	summary := orch.RunCycle(context.Background())

	assert.Equal(t, 1, summary.NoLink)
	assert.Empty(t, runner.urls, "executor must not run without a link")

	fails := failureRecords(t, st)
	require.Len(t, fails, 1)
	assert.Equal(t, model.StatusNoLink, fails[0].Status)
	assert.Empty(t, fails[0].Link)
}

func TestRunCycleUnexpectedFaultWritesErrorRecordAndContinues(t *testing.T) {
	first := linkActionMessage()
	second := linkActionMessage()
	second.UID = 2
	second.Subject = "Second message"
	provider := &fakeProvider{messages: []mailbox.Message{first, second}}
	runner := &fakeRunner{panics: true}
	orch, st := newTestPipeline(t, provider, runner, &fakeDispatcher{})

	summary := orch.RunCycle(context.Background())

	// Both messages fault, both produce one ERROR record each.
	assert.Equal(t, 2, summary.Errors)

	fails := failureRecords(t, st)
	require.Len(t, fails, 2)
	for _, rec := range fails {
		assert.Equal(t, model.StatusError, rec.Status)
		assert.Contains(t, rec.ErrorDetails, "browser backend exploded")
	}
}

func TestRunCycleReportRequestDispatchesArtifact(t *testing.T) {
	report := mailbox.Message{
		UID:     3,
		From:    "operator@example.com",
		Subject: "REPORTE mensual",
	}
	provider := &fakeProvider{messages: []mailbox.Message{report}}
	dispatcher := &fakeDispatcher{}
	orch, st := newTestPipeline(t, provider, &fakeRunner{}, dispatcher)

	summary := orch.RunCycle(context.Background())

	assert.Equal(t, 1, summary.Reports)
	require.Len(t, dispatcher.recipients, 1)
	assert.Equal(t, "operator@example.com", dispatcher.recipients[0])
	assert.NotEmpty(t, dispatcher.attachments[0])

	// Report requests are a side channel: no outcome record.
	assert.Empty(t, successRecords(t, st))
	assert.Empty(t, failureRecords(t, st))
}

func TestRunCycleIgnoredSenderLeavesNoTrace(t *testing.T) {
	provider := &fakeProvider{messages: []mailbox.Message{{
		UID: 4, From: "stranger@example.com", Subject: "hello", Text: "nothing relevant",
	}}}
	runner := &fakeRunner{}
	orch, st := newTestPipeline(t, provider, runner, &fakeDispatcher{})

	summary := orch.RunCycle(context.Background())

	assert.Equal(t, 1, summary.Ignored)
	assert.Empty(t, runner.urls)
	assert.Empty(t, successRecords(t, st))
	assert.Empty(t, failureRecords(t, st))
}

func TestRunCycleFetchFailureAbortsQuietly(t *testing.T) {
	provider := &fakeProvider{err: assert.AnError}
	orch, _ := newTestPipeline(t, provider, &fakeRunner{}, &fakeDispatcher{})

	summary := orch.RunCycle(context.Background())
	assert.Zero(t, summary.Fetched)
}

func TestRunCycleMixedSnapshotProcessesEverything(t *testing.T) {
	report := mailbox.Message{UID: 5, From: "ops@example.com", Subject: "REPORTE"}
	action := linkActionMessage()
	ignored := mailbox.Message{UID: 6, From: "noise@example.com", Subject: "hi"}
	provider := &fakeProvider{messages: []mailbox.Message{report, action, ignored}}
	runner := &fakeRunner{result: automation.Result{Success: true}}
	dispatcher := &fakeDispatcher{}
	orch, st := newTestPipeline(t, provider, runner, dispatcher)

	summary := orch.RunCycle(context.Background())

	assert.Equal(t, 3, summary.Fetched)
	assert.Equal(t, 1, summary.Reports)
	assert.Equal(t, 1, summary.Successes)
	assert.Equal(t, 1, summary.Ignored)
	require.Len(t, successRecords(t, st), 1)
}
