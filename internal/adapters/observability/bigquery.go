package observability

import (
	"context"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/rs/zerolog"

	"github.com/cp25sy5-modjot/expense-extractor/internal/domain"
)

const insertTimeout = 5 * time.Second

// InvocationRow is the BigQuery shape of an invocation.
type InvocationRow struct {
	RequestID     string              `bigquery:"request_id"`
	Operation     string              `bigquery:"operation"`
	Status        string              `bigquery:"status"`
	Model         bigquery.NullString `bigquery:"model"`
	LatencyMS     int64               `bigquery:"latency_ms"`
	InputSummary  string              `bigquery:"input_summary"`
	OutputSummary string              `bigquery:"output_summary"`
	Error         bigquery.NullString `bigquery:"error"`
	CreatedTS     time.Time           `bigquery:"created_ts"`
}

type putter interface {
	Put(ctx context.Context, src interface{}) error
}

// BigQueryRecorder streams invocations into a table. Insert failures are
// logged and never reach the caller.
type BigQueryRecorder struct {
	inserter putter
	log      zerolog.Logger
}

func NewBigQueryRecorder(client *bigquery.Client, dataset, table string, log zerolog.Logger) *BigQueryRecorder {
	return &BigQueryRecorder{
		inserter: client.Dataset(dataset).Table(table).Inserter(),
		log:      log,
	}
}

func (r *BigQueryRecorder) Record(ctx context.Context, inv domain.Invocation) {
	// detached so a cancelled request still gets recorded
	ictx, cancel := context.WithTimeout(context.WithoutCancel(ctx), insertTimeout)
	defer cancel()

	if err := r.inserter.Put(ictx, toRow(inv)); err != nil {
		r.log.Error().Err(err).Str("request_id", inv.RequestID).Msg("failed to insert invocation")
	}
}

func toRow(inv domain.Invocation) *InvocationRow {
	at := inv.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return &InvocationRow{
		RequestID:     inv.RequestID,
		Operation:     inv.Operation,
		Status:        string(inv.Status),
		Model:         bigquery.NullString{StringVal: inv.Model, Valid: inv.Model != ""},
		LatencyMS:     inv.Latency.Milliseconds(),
		InputSummary:  inv.InputSummary,
		OutputSummary: inv.OutputSummary,
		Error:         bigquery.NullString{StringVal: inv.Error, Valid: inv.Error != ""},
		CreatedTS:     at,
	}
}
