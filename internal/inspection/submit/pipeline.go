// Package submit implements the one-shot submission pipeline: upload staged
// photos, assemble submission records, append them to the ticket's history,
// translate the disposition into the ticket's new status and persist it all
// in a single write. Any failure reports the whole operation as failed; the
// session keeps its state so the user can retry without re-entering answers.
// Already-uploaded objects are not rolled back (accepted leak).
package submit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	stderrors "fieldservice-inspection/internal/common/errors"
	"fieldservice-inspection/internal/common/logger"
	"fieldservice-inspection/internal/common/metrics"
	"fieldservice-inspection/internal/common/notify"
	"fieldservice-inspection/internal/common/observability"
	"fieldservice-inspection/internal/common/storage"
	"fieldservice-inspection/internal/inspection/finalize"
	"fieldservice-inspection/internal/inspection/form"
	"fieldservice-inspection/internal/inspection/index"
	"fieldservice-inspection/internal/inspection/session"
	"fieldservice-inspection/internal/inspection/ticket"
)

// Pipeline performs the terminal submission for a session. Indexer and
// Notifier are optional post-commit effects; they never fail a submission.
type Pipeline struct {
	Storage  storage.ObjectStore
	Tickets  ticket.Store
	Indexer  index.Indexer
	Notifier notify.PendencyNotifier
	Obs      *observability.Observability
	Logger   logger.Logger

	// Now is swappable for tests; defaults to time.Now.
	Now func() time.Time
}

// Submit runs the pipeline exactly once for the session. The in-flight guard
// in the session rejects a concurrent second attempt; a session that already
// submitted fails fast because the ticket is no longer fillable.
func (p *Pipeline) Submit(ctx context.Context, sess *session.Session) error {
	disposition, err := sess.BeginSubmit()
	if err != nil {
		return err
	}

	start := p.now()
	t, records, err := p.run(ctx, sess, disposition)
	if err != nil {
		sess.FailSubmit()
		if se, ok := err.(*stderrors.StandardError); ok {
			metrics.SubmissionsFailed.WithLabelValues(string(se.Code)).Inc()
		} else {
			metrics.SubmissionsFailed.WithLabelValues("UNKNOWN").Inc()
		}
		if p.Obs != nil {
			p.Obs.RecordSubmission(ctx, "failed")
		}
		p.Logger.Error("Submission failed", map[string]interface{}{
			"ticketId": sess.TicketID,
			"error":    err.Error(),
		})
		return err
	}

	sess.CompleteSubmit()
	metrics.SubmissionsCompleted.WithLabelValues(string(t.Status)).Inc()
	metrics.SubmissionDuration.Observe(p.now().Sub(start).Seconds())
	if p.Obs != nil {
		p.Obs.RecordSubmission(ctx, string(t.Status))
		p.Obs.RecordSubmissionDuration(ctx, p.now().Sub(start), string(t.Status))
	}
	p.Logger.Info("Submission committed", map[string]interface{}{
		"ticketId": t.ID,
		"status":   string(t.Status),
		"records":  len(records),
	})

	p.afterCommit(ctx, t, records, disposition)
	return nil
}

// run executes the fallible steps; the session stays untouched until the
// caller sees the result.
func (p *Pipeline) run(ctx context.Context, sess *session.Session, disposition finalize.Disposition) (*ticket.Ticket, []ticket.SubmissionRecord, error) {
	completedAt := p.now()

	// Step 1+2: upload staged photos and assemble one record per
	// questionnaire, in questionnaire order.
	var records []ticket.SubmissionRecord
	for _, q := range sess.Questionnaires() {
		photoURLs, err := p.uploadPhotos(ctx, sess, q)
		if err != nil {
			return nil, nil, err
		}
		records = append(records, p.assembleRecord(sess, q, photoURLs, completedAt))
	}

	// Step 3: read-modify-write of the ticket history. No concurrency token;
	// one technician per ticket is assumed.
	t, err := p.Tickets.Get(ctx, sess.TenantID, sess.TicketID)
	if err != nil {
		return nil, nil, err
	}
	if !t.Status.Fillable() {
		return nil, nil, stderrors.NewTicketFinalizedError(t.ID, string(t.Status))
	}
	t.Submissions = append(t.Submissions, records...)

	// Step 4: translate the disposition into the status transition.
	p.applyDisposition(t, disposition, completedAt)

	// Step 5: single write carrying history, status and pendency record.
	if err := p.Tickets.Update(ctx, t); err != nil {
		return nil, nil, err
	}
	return t, records, nil
}

// uploadPhotos promotes one questionnaire's staged photos to durable storage.
// Uploads proceed sequentially per question; URLs keep staging order.
func (p *Pipeline) uploadPhotos(ctx context.Context, sess *session.Session, q *form.Questionnaire) (map[string][]string, error) {
	urls := make(map[string][]string)
	for _, node := range q.Flatten() {
		if node.ResponseType != form.TypePhotoSet {
			continue
		}
		staged := sess.Photos().Photos(q.ID, node.ID)
		for _, photo := range staged {
			key := fmt.Sprintf("tickets/%s/%s/%s-%s%s",
				sess.TicketID, q.ID,
				p.now().UTC().Format("20060102T150405"),
				uuid.NewString(),
				extensionFor(photo.ContentType),
			)
			url, err := p.Storage.Put(ctx, key, photo.ContentType, photo.Data)
			if err != nil {
				return nil, stderrors.NewUploadFailedError(key, err)
			}
			urls[node.ID] = append(urls[node.ID], url)
			metrics.PhotosUploaded.Inc()
		}
	}
	return urls, nil
}

func (p *Pipeline) assembleRecord(sess *session.Session, q *form.Questionnaire, photoURLs map[string][]string, completedAt time.Time) ticket.SubmissionRecord {
	answerValues := make(map[string]interface{})
	for id, a := range sess.Responses().All(q.ID) {
		if a.Type == form.TypeFlag {
			answerValues[id] = a.Flag
		} else {
			answerValues[id] = a.Text
		}
	}

	// Signatures are embedded as encoded data, not object-store references.
	return ticket.SubmissionRecord{
		QuestionnaireID:   q.ID,
		QuestionnaireName: q.Name,
		Answers:           answerValues,
		Signatures:        sess.Responses().Signatures(q.ID),
		PhotoURLs:         photoURLs,
		CompletedAt:       completedAt,
	}
}

func (p *Pipeline) applyDisposition(t *ticket.Ticket, d finalize.Disposition, now time.Time) {
	switch d.Kind {
	case finalize.KindTechnical:
		t.Status = ticket.StatusTechnicalPending
		t.TechnicalIssue = &ticket.PendingIssue{
			Kind:        "technical",
			Description: d.Description,
			Resolved:    false,
			CreatedAt:   now,
		}

	case finalize.KindFinancial:
		t.Status = ticket.StatusFinancialPending
		issue := &ticket.PendingIssue{
			Kind:           string(d.FinancialKind),
			Description:    d.Description,
			EstimatedValue: d.EstimatedValue,
			Resolved:       false,
			CreatedAt:      now,
		}
		if d.PartsRemoved != nil {
			issue.PartsRemoved = d.PartsRemoved.Removed
			issue.PartsItems = d.PartsRemoved.Items
			issue.PartsLocation = d.PartsRemoved.Location
		}
		t.FinancialIssue = issue
		t.CommerciallyRelevant = true

	default:
		t.Status = ticket.StatusCompleted
	}
	t.UpdatedAt = now
}

// afterCommit runs the best-effort side effects once the ticket write has
// committed.
func (p *Pipeline) afterCommit(ctx context.Context, t *ticket.Ticket, records []ticket.SubmissionRecord, d finalize.Disposition) {
	if p.Indexer != nil {
		for _, rec := range records {
			if err := p.Indexer.IndexSubmission(ctx, t.TenantID, t.ID, rec); err != nil {
				p.Logger.Warn("Submission indexing failed", map[string]interface{}{
					"ticketId":        t.ID,
					"questionnaireId": rec.QuestionnaireID,
					"error":           err.Error(),
				})
			}
		}
	}

	if p.Notifier != nil && d.Kind != finalize.KindNoPendency {
		kind := "technical"
		if d.Kind == finalize.KindFinancial {
			kind = string(d.FinancialKind)
		}
		p.Notifier.NotifyPendency(ctx, t.ID, kind, d.Description)
	}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}
