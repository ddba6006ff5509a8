package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	contractdomain "github.com/ondasul/airtrack/internal/contract/domain"
	invoicingdomain "github.com/ondasul/airtrack/internal/invoicing/domain"
	"github.com/ondasul/airtrack/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	GenID       *snowflake.Node
	ContractSvc contractdomain.Service
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID       *snowflake.Node
	invoicerepo repository.Repository[invoicingdomain.InvoiceRecord]
	contractSvc contractdomain.Service
}

func NewService(p ServiceParam) invoicingdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoicing.service"),
		genID: p.GenID,

		invoicerepo: repository.ProvideStore[invoicingdomain.InvoiceRecord](p.DB),
		contractSvc: p.ContractSvc,
	}
}

// normalizeCompetency validates the competency against the contract's
// dynamic and period.
func normalizeCompetency(contract *contractdomain.Contract, competency *string) (*string, error) {
	if contract.InvoiceDynamic == contractdomain.DynamicSingle {
		if competency != nil && *competency != "" {
			return nil, invoicingdomain.ErrCompetencyNotAllowed
		}
		return nil, nil
	}

	if competency == nil || *competency == "" {
		return nil, invoicingdomain.ErrCompetencyRequired
	}
	month, err := invoicingdomain.ParseCompetency(*competency)
	if err != nil {
		return nil, err
	}

	monthEnd := month.AddDate(0, 1, -1)
	if monthEnd.Before(truncateToDay(contract.StartDate)) {
		return nil, invoicingdomain.ErrCompetencyOutsidePeriod
	}
	if contract.EndDate != nil && month.After(truncateToDay(*contract.EndDate)) {
		return nil, invoicingdomain.ErrCompetencyOutsidePeriod
	}

	normalized := invoicingdomain.FormatCompetency(month)
	return &normalized, nil
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// findCurrent returns the non-canceled record for the contract and
// competency, or nil.
func (s *Service) findCurrent(ctx context.Context, contractID snowflake.ID, competency *string) (*invoicingdomain.InvoiceRecord, error) {
	query := s.db.WithContext(ctx).
		Where("contract_id = ?", contractID).
		Where("status <> ?", invoicingdomain.StatusCanceled)
	if competency == nil {
		query = query.Where("competency IS NULL")
	} else {
		query = query.Where("competency = ?", *competency)
	}

	var record invoicingdomain.InvoiceRecord
	err := query.First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

func (s *Service) GetOrCreate(ctx context.Context, contractID snowflake.ID, competency *string) (*invoicingdomain.InvoiceRecord, error) {
	contract, err := s.contractSvc.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeCompetency(contract, competency)
	if err != nil {
		return nil, err
	}

	existing, err := s.findCurrent(ctx, contractID, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	return s.createPending(ctx, contractID, normalized)
}

func (s *Service) Create(ctx context.Context, contractID snowflake.ID, competency *string) (*invoicingdomain.InvoiceRecord, error) {
	contract, err := s.contractSvc.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeCompetency(contract, competency)
	if err != nil {
		return nil, err
	}

	existing, err := s.findCurrent(ctx, contractID, normalized)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, invoicingdomain.ErrDuplicateCompetency
	}
	return s.createPending(ctx, contractID, normalized)
}

func (s *Service) createPending(ctx context.Context, contractID snowflake.ID, competency *string) (*invoicingdomain.InvoiceRecord, error) {
	record := &invoicingdomain.InvoiceRecord{
		ID:         s.genID.Generate(),
		ContractID: contractID,
		Competency: competency,
		Status:     invoicingdomain.StatusPending,
	}
	if err := s.invoicerepo.Create(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

func (s *Service) Issue(ctx context.Context, contractID snowflake.ID, competency *string, data invoicingdomain.IssueData) (*invoicingdomain.InvoiceRecord, error) {
	contract, err := s.contractSvc.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeCompetency(contract, competency)
	if err != nil {
		return nil, err
	}

	record, err := s.findCurrent(ctx, contractID, normalized)
	if err != nil {
		return nil, err
	}
	if record == nil {
		// Single-dynamic contracts issue on demand; monthly requires the
		// competency record to exist first.
		if contract.InvoiceDynamic != contractdomain.DynamicSingle {
			return nil, invoicingdomain.ErrInvoiceNotFound
		}
		record, err = s.createPending(ctx, contractID, normalized)
		if err != nil {
			return nil, err
		}
	}

	switch record.Status {
	case invoicingdomain.StatusPending, invoicingdomain.StatusIssued:
	default:
		return nil, invoicingdomain.ErrInvalidTransition
	}

	updates := map[string]any{
		"status":         invoicingdomain.StatusIssued,
		"issue_number":   data.IssueNumber,
		"series":         data.Series,
		"receipt_number": data.ReceiptNumber,
		"issue_date":     data.IssueDate,
		"gross_value":    data.GrossValue,
		"net_value":      data.NetValue,
		"agents":         data.Agents,
		"notes":          data.Notes,
	}
	if err := s.applyUpdates(ctx, record.ID, updates); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, record.ID)
}

func (s *Service) Pay(ctx context.Context, recordID snowflake.ID, data invoicingdomain.PayData) (*invoicingdomain.InvoiceRecord, error) {
	record, err := s.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.Status != invoicingdomain.StatusIssued {
		return nil, invoicingdomain.ErrInvalidTransition
	}

	updates := map[string]any{
		"status":         invoicingdomain.StatusPaid,
		"payment_date":   data.PaymentDate,
		"paid_value":     data.PaidValue,
		"payment_method": data.PaymentMethod,
	}
	if err := s.applyUpdates(ctx, recordID, updates); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, recordID)
}

func (s *Service) Cancel(ctx context.Context, recordID snowflake.ID) (*invoicingdomain.InvoiceRecord, error) {
	record, err := s.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	switch record.Status {
	case invoicingdomain.StatusPending, invoicingdomain.StatusIssued:
	default:
		return nil, invoicingdomain.ErrInvalidTransition
	}

	if err := s.applyUpdates(ctx, recordID, map[string]any{"status": invoicingdomain.StatusCanceled}); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, recordID)
}

func (s *Service) Update(ctx context.Context, recordID snowflake.ID, data invoicingdomain.UpdateData) (*invoicingdomain.InvoiceRecord, error) {
	record, err := s.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if record.Status == invoicingdomain.StatusCanceled {
		return nil, invoicingdomain.ErrInvalidTransition
	}

	updates := map[string]any{}
	setIfPresent(updates, "issue_number", data.IssueNumber)
	setIfPresent(updates, "series", data.Series)
	setIfPresent(updates, "receipt_number", data.ReceiptNumber)
	setIfPresent(updates, "gross_value", data.GrossValue)
	setIfPresent(updates, "net_value", data.NetValue)
	setIfPresent(updates, "payment_method", data.PaymentMethod)
	setIfPresent(updates, "agents", data.Agents)
	setIfPresent(updates, "notes", data.Notes)
	if len(updates) == 0 {
		return record, nil
	}

	if err := s.applyUpdates(ctx, recordID, updates); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, recordID)
}

func setIfPresent[T any](updates map[string]any, column string, value *T) {
	if value != nil {
		updates[column] = *value
	}
}

func (s *Service) applyUpdates(ctx context.Context, recordID snowflake.ID, updates map[string]any) error {
	return s.db.WithContext(ctx).Model(&invoicingdomain.InvoiceRecord{}).
		Where("id = ?", recordID).
		Updates(updates).Error
}

func (s *Service) Delete(ctx context.Context, recordID snowflake.ID) error {
	record, err := s.GetByID(ctx, recordID)
	if err != nil {
		return err
	}
	s.log.Warn("invoice record deleted",
		zap.Int64("record_id", int64(record.ID)),
		zap.Int64("contract_id", int64(record.ContractID)),
	)
	return s.db.WithContext(ctx).Delete(&invoicingdomain.InvoiceRecord{}, "id = ?", recordID).Error
}

func (s *Service) GetByID(ctx context.Context, recordID snowflake.ID) (*invoicingdomain.InvoiceRecord, error) {
	record, err := s.invoicerepo.FindOne(ctx, &invoicingdomain.InvoiceRecord{ID: recordID})
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, invoicingdomain.ErrInvoiceNotFound
	}
	return record, nil
}

func (s *Service) List(ctx context.Context, req invoicingdomain.ListRequest) ([]*invoicingdomain.InvoiceRecord, error) {
	query := s.db.WithContext(ctx).Where("contract_id = ?", req.ContractID)
	if req.Competency != nil && *req.Competency != "" {
		query = query.Where("competency = ?", *req.Competency)
	}
	if !req.IncludeCanceled {
		query = query.Where("status <> ?", invoicingdomain.StatusCanceled)
	}

	var records []*invoicingdomain.InvoiceRecord
	if err := query.Order("competency ASC, created_at ASC").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
