package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/ondasul/airtrack/internal/catalog/domain"
	playbackdomain "github.com/ondasul/airtrack/internal/playback/domain"
	"github.com/ondasul/airtrack/pkg/db"
	"github.com/ondasul/airtrack/pkg/db/option"
	"github.com/ondasul/airtrack/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	CatalogSvc catalogdomain.Service
}

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID      *snowflake.Node
	eventrepo  repository.Repository[playbackdomain.PlaybackEvent]
	catalogSvc catalogdomain.Service
}

func NewService(p ServiceParam) playbackdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("playback.service"),
		genID: p.GenID,

		eventrepo:  repository.ProvideStore[playbackdomain.PlaybackEvent](p.DB),
		catalogSvc: p.CatalogSvc,
	}
}

func (s *Service) Submit(ctx context.Context, req playbackdomain.SubmitRequest) (*playbackdomain.SubmitResult, error) {
	if req.RawFileName == "" {
		return nil, playbackdomain.ErrInvalidFileName
	}
	if req.AiredAt.IsZero() {
		return nil, playbackdomain.ErrInvalidAiredAt
	}
	source := req.Source
	if source == "" {
		source = playbackdomain.SourceWatcher
	}

	event := &playbackdomain.PlaybackEvent{
		ID:          s.genID.Generate(),
		RawFileName: req.RawFileName,
		AiredAt:     req.AiredAt.UTC(),
		Source:      source,
		ProgramType: req.ProgramType,
		Frequency:   req.Frequency,
	}
	if err := s.eventrepo.Create(ctx, event); err != nil {
		if db.IsDuplicateKeyErr(err) {
			existing, ferr := s.eventrepo.FindOne(ctx, &playbackdomain.PlaybackEvent{
				RawFileName: event.RawFileName,
				AiredAt:     event.AiredAt,
				Source:      event.Source,
			})
			if ferr != nil {
				return nil, ferr
			}
			return &playbackdomain.SubmitResult{Event: existing, AlreadyExisting: true}, nil
		}
		return nil, err
	}
	return &playbackdomain.SubmitResult{Event: event}, nil
}

func (s *Service) CreateBatch(ctx context.Context, req playbackdomain.BatchRequest) (*playbackdomain.BatchResult, error) {
	if req.AudioFileID == 0 || req.Date.IsZero() || len(req.Times) == 0 {
		return nil, playbackdomain.ErrInvalidBatch
	}
	file, err := s.catalogSvc.GetByID(ctx, req.AudioFileID)
	if err != nil {
		return nil, err
	}

	result := &playbackdomain.BatchResult{}
	year, month, day := req.Date.UTC().Date()
	for _, raw := range req.Times {
		clock, ok := parseClock(raw)
		if !ok {
			result.InvalidTimes = append(result.InvalidTimes, raw)
			continue
		}

		sub, err := s.Submit(ctx, playbackdomain.SubmitRequest{
			RawFileName: file.FileName,
			AiredAt:     time.Date(year, month, day, clock.hour, clock.minute, clock.second, 0, time.UTC),
			Source:      playbackdomain.SourceManual,
			ProgramType: req.ProgramType,
			Frequency:   req.Frequency,
		})
		if err != nil {
			return nil, err
		}
		if sub.AlreadyExisting {
			result.AlreadyExisting++
		} else {
			result.Created++
		}
	}

	s.log.Info("manual batch ingested",
		zap.Int64("audio_file_id", int64(req.AudioFileID)),
		zap.Int("created", result.Created),
		zap.Int("already_existing", result.AlreadyExisting),
		zap.Int("invalid_times", len(result.InvalidTimes)),
	)
	return result, nil
}

type clockOfDay struct {
	hour, minute, second int
}

// parseClock accepts HH:MM or HH:MM:SS air times from manual entry.
func parseClock(raw string) (clockOfDay, bool) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return clockOfDay{t.Hour(), t.Minute(), t.Second()}, true
		}
	}
	return clockOfDay{}, false
}

func (s *Service) List(ctx context.Context, req playbackdomain.ListRequest) ([]*playbackdomain.PlaybackEvent, error) {
	filter := &playbackdomain.PlaybackEvent{}
	if req.ReasonCode != "" {
		filter.ReasonCode = &req.ReasonCode
	}
	if req.ProgramType != "" {
		filter.ProgramType = req.ProgramType
	}

	opts := []option.QueryOption{
		option.WithSortBy(option.QuerySortBy{Field: "aired_at", Allow: map[string]bool{"aired_at": true}}),
		option.WithLimitOffset(req.Limit, req.Offset),
	}
	if !req.From.IsZero() {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "aired_at", Operator: option.GTE, Value: req.From.UTC()}))
	}
	if !req.To.IsZero() {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "aired_at", Operator: option.LTE, Value: req.To.UTC()}))
	}
	// The boolean filters ride as explicit conditions; a false value would
	// vanish from the struct query, and filtering after pagination would
	// shorten pages.
	if req.Processed != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "processed", Operator: option.EQ, Value: *req.Processed}))
	}
	if req.Counted != nil {
		opts = append(opts, option.ApplyOperator(option.Condition{Field: "counted", Operator: option.EQ, Value: *req.Counted}))
	}

	return s.eventrepo.Find(ctx, filter, opts...)
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (*playbackdomain.PlaybackEvent, error) {
	event, err := s.eventrepo.FindOne(ctx, &playbackdomain.PlaybackEvent{ID: id})
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, playbackdomain.ErrEventNotFound
	}
	return event, nil
}

func (s *Service) ListPending(ctx context.Context, from, to time.Time, includeProcessed bool) ([]*playbackdomain.PlaybackEvent, error) {
	query := s.db.WithContext(ctx).Model(&playbackdomain.PlaybackEvent{}).
		Where("aired_at >= ? AND aired_at <= ?", from.UTC(), to.UTC()).
		Order("aired_at ASC")
	if !includeProcessed {
		query = query.Where("processed = ?", false)
	}

	var events []*playbackdomain.PlaybackEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (s *Service) MarkProcessed(ctx context.Context, id snowflake.ID, outcome playbackdomain.Outcome) error {
	updates := map[string]any{
		"processed":              true,
		"counted":                outcome.Counted,
		"attributed_contract_id": outcome.AttributedContractID,
		"audio_file_id":          outcome.AudioFileID,
		"reason_code":            outcome.ReasonCode,
	}
	res := s.db.WithContext(ctx).Model(&playbackdomain.PlaybackEvent{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return playbackdomain.ErrEventNotFound
	}
	return nil
}
