package sheets

import "context"

// ExportRow is one transaction shaped for the spreadsheet: the id in the
// first column is what later locates the row for removal.
type ExportRow struct {
	ID          int64
	Date        string // YYYY-MM-DD
	Description string
	Amount      string // decimal with two places
	Category    string
}

// Ports for outbound export adapters.
type (
	Appender interface {
		Append(ctx context.Context, row ExportRow) (rowRef string, err error)
	}

	Remover interface {
		Remove(ctx context.Context, row ExportRow) error
	}
)
