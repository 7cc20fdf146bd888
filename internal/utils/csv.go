package utils

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"tradeArena/internal/domain"
)

// ExecutionRow is the CSV shape of one execution.
type ExecutionRow struct {
	ID            string `csv:"id"`
	ExecutedAt    string `csv:"executed_at"`
	Round         int    `csv:"round"`
	AgentID       string `csv:"agent_id"`
	Side          string `csv:"side"`
	Symbol        string `csv:"symbol"`
	Shares        string `csv:"shares"`
	Price         string `csv:"price"`
	Value         string `csv:"value"`
	Justification string `csv:"justification"`
}

// ExecutionRows flattens executions for export. Amounts keep full decimal precision.
func ExecutionRows(execs []*domain.ExecutionRecord) []*ExecutionRow {
	rows := make([]*ExecutionRow, 0, len(execs))
	for _, e := range execs {
		row := &ExecutionRow{
			ID:         e.ID,
			ExecutedAt: e.ExecutedAt.UTC().Format(time.RFC3339),
			Round:      e.Round,
			AgentID:    e.AgentID,
			Side:       string(e.Side),
			Symbol:     e.Symbol,
			Shares:     e.Shares.String(),
			Price:      e.Price.String(),
			Value:      e.Value().String(),
		}
		if e.Justification != nil {
			row.Justification = *e.Justification
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteExecutionsCSV writes executions with a header row.
func WriteExecutionsCSV(w io.Writer, execs []*domain.ExecutionRecord) error {
	if err := gocsv.Marshal(ExecutionRows(execs), w); err != nil {
		return fmt.Errorf("marshal executions: %w", err)
	}
	return nil
}

// WriteExecutionsToCSV writes executions to filename, replacing any existing file.
func WriteExecutionsToCSV(execs []*domain.ExecutionRecord, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := WriteExecutionsCSV(file, execs); err != nil {
		return err
	}
	return file.Sync()
}
