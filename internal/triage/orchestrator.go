package triage

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"inbox-rpa/internal/automation"
	"inbox-rpa/internal/classify"
	"inbox-rpa/internal/extract"
	"inbox-rpa/internal/mailbox"
	"inbox-rpa/internal/metrics"
	"inbox-rpa/internal/model"
	"inbox-rpa/internal/report"
	"inbox-rpa/internal/store"
)

// CycleSummary aggregates what one triage cycle did, for the cycle log line.
type CycleSummary struct {
	Fetched   int
	Reports   int
	Successes int
	Failures  int
	NoLink    int
	Errors    int
	Ignored   int
}

// Orchestrator runs the end-to-end triage cycle: fetch, classify, extract,
// click, persist. One cycle per invocation; the caller owns the repeat loop.
type Orchestrator struct {
	provider     mailbox.Provider
	extractor    *extract.Extractor
	runner       automation.Runner
	store        *store.OutcomeStore
	dispatcher   report.Dispatcher
	metrics      *metrics.Metrics
	senderFilter string
}

// NewOrchestrator wires the triage pipeline components together.
func NewOrchestrator(
	provider mailbox.Provider,
	extractor *extract.Extractor,
	runner automation.Runner,
	st *store.OutcomeStore,
	dispatcher report.Dispatcher,
	m *metrics.Metrics,
	senderFilter string,
) *Orchestrator {
	return &Orchestrator{
		provider:     provider,
		extractor:    extractor,
		runner:       runner,
		store:        st,
		dispatcher:   dispatcher,
		metrics:      m,
		senderFilter: senderFilter,
	}
}

// RunCycle processes one unread snapshot end to end. A fault while handling
// one message never aborts the remaining messages; the cycle itself returns
// a summary and raises nothing.
func (o *Orchestrator) RunCycle(ctx context.Context) CycleSummary {
	var summary CycleSummary

	if o.metrics != nil {
		o.metrics.CycleCount.Inc()
	}

	messages, err := o.provider.FetchUnread(ctx)
	if err != nil {
		logrus.Errorf("Failed to fetch unread messages: %v", err)
		return summary
	}
	summary.Fetched = len(messages)
	if o.metrics != nil {
		o.metrics.MessagesSeen.Add(float64(len(messages)))
	}

	if len(messages) == 0 {
		logrus.Info("No unread messages found")
		return summary
	}

	var reportRequests, linkActions []mailbox.Message
	for _, msg := range messages {
		switch classify.Classify(msg, o.senderFilter) {
		case classify.IntentReportRequest:
			reportRequests = append(reportRequests, msg)
		case classify.IntentLinkAction:
			linkActions = append(linkActions, msg)
		default:
			summary.Ignored++
			logrus.Debugf("Ignoring message from %s: %s", msg.From, msg.Subject)
		}
	}

	for _, msg := range reportRequests {
		o.handleReportRequest(msg, &summary)
	}

	for _, msg := range linkActions {
		o.handleLinkAction(ctx, msg, &summary)
	}

	logrus.Infof(
		"Cycle complete: fetched=%d reports=%d success=%d failed=%d no_link=%d errors=%d ignored=%d",
		summary.Fetched, summary.Reports, summary.Successes, summary.Failures,
		summary.NoLink, summary.Errors, summary.Ignored,
	)
	return summary
}

// handleReportRequest exports the outcome snapshot and mails it back to the
// requester. Report requests are a side channel; no outcome record is written.
func (o *Orchestrator) handleReportRequest(msg mailbox.Message, summary *CycleSummary) {
	logrus.Infof("Report requested by %s", msg.From)

	artifact := o.store.ExportSnapshot()
	if artifact == "" {
		logrus.Errorf("Failed to generate report artifact for %s", msg.From)
		return
	}

	if err := o.dispatcher.Dispatch(msg.From, artifact); err != nil {
		logrus.Errorf("Failed to dispatch report to %s: %v", msg.From, err)
		return
	}

	summary.Reports++
	if o.metrics != nil {
		o.metrics.ReportsSent.Inc()
	}
}

// handleLinkAction extracts and clicks one message's link and writes exactly
// one outcome record. Unexpected faults become an ERROR record and processing
// continues with the next message.
func (o *Orchestrator) handleLinkAction(ctx context.Context, msg mailbox.Message, summary *CycleSummary) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			summary.Errors++
			if o.metrics != nil {
				o.metrics.ErrorCount.Inc()
			}
			logrus.Errorf("Unexpected fault processing %q: %v", msg.Subject, r)
			o.store.RecordFailure(model.FailureRecord{
				Sender:         msg.From,
				Subject:        msg.Subject,
				Status:         model.StatusError,
				Observations:   fmt.Sprintf("Error: %v", r),
				ErrorDetails:   fmt.Sprintf("%v", r),
				ProcessingTime: time.Since(start).Seconds(),
			})
		}
	}()

	link, ok := o.extractor.Extract(msg)
	if !ok {
		summary.NoLink++
		if o.metrics != nil {
			o.metrics.NoLinkCount.Inc()
		}
		o.store.RecordFailure(model.FailureRecord{
			Sender:         msg.From,
			Subject:        msg.Subject,
			Status:         model.StatusNoLink,
			Observations:   "No se encontró link válido",
			ProcessingTime: time.Since(start).Seconds(),
		})
		return
	}

	result := o.runner.Execute(ctx, link)
	elapsed := time.Since(start).Seconds()
	if o.metrics != nil {
		o.metrics.ProcessingTime.Observe(elapsed)
	}

	if result.Success {
		summary.Successes++
		if o.metrics != nil {
			o.metrics.ClickSuccesses.Inc()
		}
		o.store.RecordSuccess(model.SuccessRecord{
			Sender:         msg.From,
			Subject:        msg.Subject,
			Link:           link,
			Status:         model.StatusSuccess,
			Observations:   "Procesado correctamente",
			ProcessingTime: elapsed,
		})
		return
	}

	summary.Failures++
	if o.metrics != nil {
		o.metrics.ClickFailures.Inc()
	}
	o.store.RecordFailure(model.FailureRecord{
		Sender:         msg.From,
		Subject:        msg.Subject,
		Link:           link,
		Status:         model.StatusFailed,
		Observations:   "Error al hacer clic en botón",
		ErrorDetails:   result.Reason,
		ProcessingTime: elapsed,
	})
}
