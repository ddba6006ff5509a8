package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/ondasul/airtrack/internal/cache"
	catalogdomain "github.com/ondasul/airtrack/internal/catalog/domain"
	clientdomain "github.com/ondasul/airtrack/internal/client/domain"
	"github.com/ondasul/airtrack/internal/clock"
	"github.com/ondasul/airtrack/internal/config"
	contractdomain "github.com/ondasul/airtrack/internal/contract/domain"
	invoicingdomain "github.com/ondasul/airtrack/internal/invoicing/domain"
	playbackdomain "github.com/ondasul/airtrack/internal/playback/domain"
	reportingdomain "github.com/ondasul/airtrack/internal/reporting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// clientNameTTL bounds display-name staleness. Names never feed allocation.
const clientNameTTL = 30 * time.Second

type ServiceParam struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Config      config.Config
	Clock       clock.Clock
	ClientSvc   clientdomain.Service
	CatalogSvc  catalogdomain.Service
	ContractSvc contractdomain.Service
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	alertThreshold float64

	clientSvc   clientdomain.Service
	catalogSvc  catalogdomain.Service
	contractSvc contractdomain.Service

	clientNames *cache.Cache[snowflake.ID, string]
}

func NewService(p ServiceParam) reportingdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("reporting.service"),
		clock: p.Clock,

		alertThreshold: p.Config.DailyAlertThreshold,

		clientSvc:   p.ClientSvc,
		catalogSvc:  p.CatalogSvc,
		contractSvc: p.ContractSvc,

		clientNames: cache.New[snowflake.ID, string](clientNameTTL, p.Clock),
	}
}

func (s *Service) clientName(ctx context.Context, clientID snowflake.ID) *string {
	if name, ok := s.clientNames.Get(clientID); ok {
		return &name
	}
	client, err := s.clientSvc.GetByID(ctx, clientID)
	if err != nil {
		return nil
	}
	s.clientNames.Set(clientID, client.Name)
	return &client.Name
}

func (s *Service) ListUnaccounted(ctx context.Context, req reportingdomain.UnaccountedRequest) (*reportingdomain.UnaccountedReport, error) {
	query := s.db.WithContext(ctx).Model(&playbackdomain.PlaybackEvent{}).
		Where("processed = ? AND counted = ?", true, false)
	if !req.From.IsZero() {
		query = query.Where("aired_at >= ?", req.From.UTC())
	}
	if !req.To.IsZero() {
		query = query.Where("aired_at <= ?", req.To.UTC())
	}
	if req.ProgramType != "" {
		query = query.Where("program_type = ?", req.ProgramType)
	}

	var events []*playbackdomain.PlaybackEvent
	if err := query.Order("aired_at ASC").Find(&events).Error; err != nil {
		return nil, err
	}

	report := &reportingdomain.UnaccountedReport{
		ByReason: map[playbackdomain.ReasonCode][]reportingdomain.UnaccountedRecord{},
	}
	for _, event := range events {
		if event.ReasonCode == nil {
			continue
		}
		record := reportingdomain.UnaccountedRecord{
			EventID:     event.ID,
			RawFileName: event.RawFileName,
			AiredAt:     event.AiredAt,
			ProgramType: event.ProgramType,
			ReasonCode:  *event.ReasonCode,
		}
		if event.AudioFileID != nil {
			if file, err := s.catalogSvc.GetByID(ctx, *event.AudioFileID); err == nil {
				record.ClientName = s.clientName(ctx, file.ClientID)
			}
		}
		report.Total++
		report.ByReason[*event.ReasonCode] = append(report.ByReason[*event.ReasonCode], record)
	}
	return report, nil
}

func (s *Service) GetMonitoringSummary(ctx context.Context, contractID snowflake.ID, refDate time.Time) (*reportingdomain.MonitoringSummary, error) {
	contract, err := s.contractSvc.GetByID(ctx, contractID)
	if err != nil {
		return nil, err
	}
	items, err := s.contractSvc.ListItems(ctx, contractID)
	if err != nil {
		return nil, err
	}
	goals, err := s.contractSvc.ListFileGoals(ctx, contractID)
	if err != nil {
		return nil, err
	}

	summary := &reportingdomain.MonitoringSummary{
		ContractID:     contract.ID,
		ContractNumber: contract.Number,
	}
	if name := s.clientName(ctx, contract.ClientID); name != nil {
		summary.ClientName = *name
	}

	dailyGoal := 0
	for _, item := range items {
		line := reportingdomain.ItemLine{
			ProgramType:        item.ProgramType,
			ContractedQuantity: item.ContractedQuantity,
			DailyGoalQuantity:  item.DailyGoalQuantity,
			ExecutedQuantity:   item.ExecutedQuantity,
		}
		summary.Items = append(summary.Items, line)
		if item.ContractedQuantity != nil {
			summary.ItemSeries.TotalGoal += *item.ContractedQuantity
		}
		if item.DailyGoalQuantity != nil {
			dailyGoal += *item.DailyGoalQuantity
		}
		summary.ItemSeries.TotalExecuted += item.ExecutedQuantity
	}

	for _, goal := range goals {
		line := reportingdomain.GoalLine{
			AudioFileID:      goal.AudioFileID,
			GoalQuantity:     goal.GoalQuantity,
			Mode:             goal.Mode,
			Active:           goal.Active,
			ExecutedQuantity: goal.ExecutedQuantity,
			Saturated:        goal.Saturated(),
		}
		if file, err := s.catalogSvc.GetByID(ctx, goal.AudioFileID); err == nil {
			line.FileName = file.FileName
		}
		summary.Goals = append(summary.Goals, line)
		summary.GoalSeries.TotalGoal += goal.GoalQuantity
		summary.GoalSeries.TotalExecuted += goal.ExecutedQuantity
	}

	if dailyGoal > 0 {
		slice, err := s.dailySlice(ctx, contract.ID, dailyGoal, refDate)
		if err != nil {
			return nil, err
		}
		summary.Daily = slice
	}
	return summary, nil
}

func (s *Service) dailySlice(ctx context.Context, contractID snowflake.ID, dailyGoal int, refDate time.Time) (*reportingdomain.DailySlice, error) {
	if refDate.IsZero() {
		refDate = s.clock.Now()
	}
	y, m, d := refDate.UTC().Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.AddDate(0, 0, 1)

	var executed int64
	err := s.db.WithContext(ctx).Model(&playbackdomain.PlaybackEvent{}).
		Where("attributed_contract_id = ? AND counted = ?", contractID, true).
		Where("aired_at >= ? AND aired_at < ?", dayStart, dayEnd).
		Count(&executed).Error
	if err != nil {
		return nil, err
	}

	percent := float64(executed) / float64(dailyGoal) * 100
	return &reportingdomain.DailySlice{
		Date:          dayStart,
		DailyGoal:     dailyGoal,
		DailyExecuted: int(executed),
		PercentMet:    percent,
		Alert:         percent < s.alertThreshold,
	}, nil
}

func (s *Service) TodaySummary(ctx context.Context) ([]*reportingdomain.DailyContractSummary, error) {
	contracts, err := s.contractSvc.List(ctx, contractdomain.ListContractRequest{
		Status: contractdomain.ContractStatusActive,
	})
	if err != nil {
		return nil, err
	}

	var out []*reportingdomain.DailyContractSummary
	for _, contract := range contracts {
		items, err := s.contractSvc.ListItems(ctx, contract.ID)
		if err != nil {
			return nil, err
		}
		dailyGoal := 0
		for _, item := range items {
			if item.DailyGoalQuantity != nil {
				dailyGoal += *item.DailyGoalQuantity
			}
		}
		if dailyGoal == 0 {
			continue
		}

		slice, err := s.dailySlice(ctx, contract.ID, dailyGoal, time.Time{})
		if err != nil {
			return nil, err
		}
		summary := &reportingdomain.DailyContractSummary{
			ContractID:     contract.ID,
			ContractNumber: contract.Number,
			Daily:          *slice,
		}
		if name := s.clientName(ctx, contract.ClientID); name != nil {
			summary.ClientName = *name
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *Service) DashboardStats(ctx context.Context) (*reportingdomain.DashboardStats, error) {
	stats := &reportingdomain.DashboardStats{}

	err := s.db.WithContext(ctx).Model(&contractdomain.Contract{}).
		Where("status = ?", contractdomain.ContractStatusActive).
		Count(&stats.ActiveContracts).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&invoicingdomain.InvoiceRecord{}).
		Where("status = ?", invoicingdomain.StatusPending).
		Count(&stats.PendingInvoices).Error
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	err = s.db.WithContext(ctx).Model(&contractdomain.Contract{}).
		Where("status = ?", contractdomain.ContractStatusActive).
		Where("end_date IS NOT NULL AND end_date >= ? AND end_date <= ?", now, now.AddDate(0, 0, 30)).
		Count(&stats.ExpiringSoon).Error
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Model(&playbackdomain.PlaybackEvent{}).
		Where("processed = ?", false).
		Count(&stats.UnprocessedEvents).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
