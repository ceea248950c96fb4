// Package index pushes committed submissions into the search index the
// dashboards read from. Indexing runs after the ticket write has committed
// and is best effort: a failure here never fails the submission.
package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fieldservice-inspection/internal/common/database"
	"fieldservice-inspection/internal/common/logger"
	"fieldservice-inspection/internal/inspection/ticket"
)

// Indexer records a committed submission for search.
type Indexer interface {
	IndexSubmission(ctx context.Context, tenantID, ticketID string, rec ticket.SubmissionRecord) error
}

// ESIndexer implements Indexer on Elasticsearch.
type ESIndexer struct {
	es     *database.ElasticsearchClient
	index  string
	logger logger.Logger
}

func NewESIndexer(es *database.ElasticsearchClient, index string, log logger.Logger) *ESIndexer {
	return &ESIndexer{es: es, index: index, logger: log}
}

type submissionDoc struct {
	TenantID          string    `json:"tenantId"`
	TicketID          string    `json:"ticketId"`
	QuestionnaireID   string    `json:"questionnaireId"`
	QuestionnaireName string    `json:"questionnaireName"`
	AnswerCount       int       `json:"answerCount"`
	PhotoCount        int       `json:"photoCount"`
	CompletedAt       time.Time `json:"completedAt"`
}

func (i *ESIndexer) IndexSubmission(ctx context.Context, tenantID, ticketID string, rec ticket.SubmissionRecord) error {
	photoCount := 0
	for _, urls := range rec.PhotoURLs {
		photoCount += len(urls)
	}

	doc := submissionDoc{
		TenantID:          tenantID,
		TicketID:          ticketID,
		QuestionnaireID:   rec.QuestionnaireID,
		QuestionnaireName: rec.QuestionnaireName,
		AnswerCount:       len(rec.Answers),
		PhotoCount:        photoCount,
		CompletedAt:       rec.CompletedAt,
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode submission doc: %w", err)
	}

	res, err := i.es.Client.Index(
		i.index,
		bytes.NewReader(body),
		i.es.Client.Index.WithContext(ctx),
		i.es.Client.Index.WithDocumentID(uuid.NewString()),
	)
	if err != nil {
		return fmt.Errorf("index submission: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index submission: %s", res.Status())
	}

	i.logger.Debug("Submission indexed", map[string]interface{}{
		"ticketId":        ticketID,
		"questionnaireId": rec.QuestionnaireID,
	})
	return nil
}
