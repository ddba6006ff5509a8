package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type InvoiceData struct {
	StationName    string
	ContractNumber string
	InvoiceNumber  string
	Series         string
	Competency     string
	IssueDate      string
	Status         string

	ClientName  string
	ClientTaxID string

	Lines []InvoiceLine

	GrossValue string
	NetValue   string
	PaidValue  string
	Notes      string
}

type InvoiceLine struct {
	Description string
	Contracted  int
	Executed    int
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, invoice InvoiceData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, invoice.StationName, props.Text{
			Size:  16,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(10,
		text.NewCol(12, "Nota Fiscal "+invoice.InvoiceNumber, props.Text{
			Size:  13,
			Style: fontstyle.Bold,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Contract: "+invoice.ContractNumber, props.Text{Top: 0}),
			text.New("Series: "+invoice.Series, props.Text{Top: 4}),
			text.New("Competency: "+invoice.Competency, props.Text{Top: 8}),
			text.New("Issue date: "+invoice.IssueDate, props.Text{Top: 12}),
			text.New("Status: "+invoice.Status, props.Text{Top: 16}),
		),
		col.New(6).Add(
			text.New(invoice.ClientName, props.Text{Style: fontstyle.Bold}),
			text.New(invoice.ClientTaxID, props.Text{Top: 5}),
		),
	)

	m.AddRow(10,
		text.NewCol(8, "Program type", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, "Contracted", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		text.NewCol(2, "Executed", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, line := range invoice.Lines {
		m.AddRow(8,
			text.NewCol(8, line.Description, props.Text{Size: 9}),
			text.NewCol(2, fmt.Sprintf("%d", line.Contracted), props.Text{Size: 9, Align: align.Right}),
			text.NewCol(2, fmt.Sprintf("%d", line.Executed), props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Gross", props.Text{Size: 9}),
		text.NewCol(2, invoice.GrossValue, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Net", props.Text{Size: 9}),
		text.NewCol(2, invoice.NetValue, props.Text{Size: 9, Align: align.Right}),
	)
	m.AddRow(10,
		col.New(8),
		text.NewCol(2, "Paid", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(2, invoice.PaidValue, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)

	if invoice.Notes != "" {
		m.AddRow(16,
			text.NewCol(12, invoice.Notes, props.Text{Size: 8, Top: 4}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
