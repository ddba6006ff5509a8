package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	invoicingdomain "github.com/ondasul/airtrack/internal/invoicing/domain"
	"github.com/ondasul/airtrack/internal/providers/pdf"
)

type invoiceCompetencyRequest struct {
	Competency *string `json:"competency"`
}

func (s *Server) CreateInvoice(c *gin.Context) {
	contractID, err := parseSnowflakeID("id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req invoiceCompetencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoicingSvc.Create(c.Request.Context(), contractID, req.Competency)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetOrCreateInvoice(c *gin.Context) {
	contractID, err := parseSnowflakeID("id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req invoiceCompetencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoicingSvc.GetOrCreate(c.Request.Context(), contractID, req.Competency)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) IssueInvoice(c *gin.Context) {
	contractID, err := parseSnowflakeID("id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req struct {
		Competency *string                   `json:"competency"`
		Data       invoicingdomain.IssueData `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoicingSvc.Issue(c.Request.Context(), contractID, req.Competency, req.Data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if s.obsMetrics != nil {
		if contract, contractErr := s.contractSvc.GetByID(c.Request.Context(), contractID); contractErr == nil {
			s.obsMetrics.RecordInvoiceIssued(c.Request.Context(), string(contract.InvoiceDynamic))
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListInvoices(c *gin.Context) {
	contractID, err := parseSnowflakeID("id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	includeCanceled, err := parseOptionalBool("include_canceled", c.Query("include_canceled"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	req := invoicingdomain.ListRequest{ContractID: contractID}
	if competency := c.Query("competency"); competency != "" {
		req.Competency = &competency
	}
	if includeCanceled != nil {
		req.IncludeCanceled = *includeCanceled
	}

	resp, err := s.invoicingSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	recordID, err := parseSnowflakeID("id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoicingSvc.GetByID(c.Request.Context(), recordID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PayInvoice(c *gin.Context) {
	recordID, err := parseSnowflakeID("id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var data invoicingdomain.PayData
	if err := c.ShouldBindJSON(&data); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoicingSvc.Pay(c.Request.Context(), recordID, data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CancelInvoice(c *gin.Context) {
	recordID, err := parseSnowflakeID("id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.invoicingSvc.Cancel(c.Request.Context(), recordID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	recordID, err := parseSnowflakeID("id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var data invoicingdomain.UpdateData
	if err := c.ShouldBindJSON(&data); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoicingSvc.Update(c.Request.Context(), recordID, data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) DeleteInvoice(c *gin.Context) {
	recordID, err := parseSnowflakeID("id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.invoicingSvc.Delete(c.Request.Context(), recordID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"deleted": true}})
}

func (s *Server) InvoicePDF(c *gin.Context) {
	recordID, err := parseSnowflakeID("id", c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	record, err := s.invoicingSvc.GetByID(c.Request.Context(), recordID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	data, err := s.buildInvoicePDFData(c, record)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	reader, err := s.pdfProvider.GenerateInvoice(c.Request.Context(), *data)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename=invoice-"+record.ID.String()+".pdf")
	c.Data(http.StatusOK, "application/pdf", content)
}

func (s *Server) buildInvoicePDFData(c *gin.Context, record *invoicingdomain.InvoiceRecord) (*pdf.InvoiceData, error) {
	ctx := c.Request.Context()

	contract, err := s.contractSvc.GetByID(ctx, record.ContractID)
	if err != nil {
		return nil, err
	}

	client, err := s.clientSvc.GetByID(ctx, contract.ClientID)
	if err != nil {
		return nil, err
	}

	items, err := s.contractSvc.ListItems(ctx, contract.ID)
	if err != nil {
		return nil, err
	}

	data := &pdf.InvoiceData{
		StationName:    s.cfg.AppName,
		ContractNumber: contract.Number,
		Status:         string(record.Status),
		ClientName:     client.Name,
		GrossValue:     formatMoney(record.GrossValue),
		NetValue:       formatMoney(record.NetValue),
		PaidValue:      formatMoney(record.PaidValue),
		Notes:          derefString(record.Notes),
		InvoiceNumber:  derefString(record.IssueNumber),
		Series:         derefString(record.Series),
		Competency:     derefString(record.Competency),
	}
	if record.IssueDate != nil {
		data.IssueDate = record.IssueDate.Format(dateOnlyLayout)
	}
	if client.TaxID != nil {
		data.ClientTaxID = *client.TaxID
	}

	for _, item := range items {
		line := pdf.InvoiceLine{
			Description: item.ProgramType,
			Executed:    item.ExecutedQuantity,
		}
		if item.ContractedQuantity != nil {
			line.Contracted = *item.ContractedQuantity
		}
		data.Lines = append(data.Lines, line)
	}

	return data, nil
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func formatMoney(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
